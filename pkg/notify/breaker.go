// Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied. See the License for the
// specific language governing permissions and limitations
// under the License.

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/metrics"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Breaker fails fast once the backend has rejected FailureThreshold
// consecutive notifications. It never retries: every Dispatch is at most one
// call into the wrapped dispatcher.
type Breaker struct {
	next   core.Dispatcher
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger *slog.Logger
}

func NewBreaker(next core.Dispatcher, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = time.Minute
	}
	b := &Breaker{next: next, logger: logger}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("dispatch breaker state changed", "notifier", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	}
	b.cb = gobreaker.NewCircuitBreaker[struct{}](settings)
	return b
}

func (b *Breaker) Dispatch(ctx context.Context, n core.Notification) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Dispatch(ctx, n)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", core.ErrDispatchFailed, err)
	}
	return err
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}
