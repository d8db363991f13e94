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

package reconnect

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/metrics"
)

type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// StableAfter is how long a session must last before the backoff resets.
	StableAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = time.Minute
	}
	if c.StableAfter <= 0 {
		c.StableAfter = 30 * time.Second
	}
	return c
}

// Session dials, subscribes and consumes until the connection breaks or ctx
// is cancelled.
type Session func(ctx context.Context) error

var errSessionEnded = errors.New("session ended")

// Run keeps a session alive until ctx is cancelled. There is no attempt limit.
func Run(ctx context.Context, name string, cfg Config, logger *slog.Logger, session Session) error {
	cfg = cfg.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	attempt := 0
	for {
		started := time.Now()
		err := session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errSessionEnded
		}

		if time.Since(started) >= cfg.StableAfter {
			b.Reset()
			attempt = 0
		}
		attempt++
		wait := b.NextBackOff()

		logger.Warn("listener session ended, reconnecting",
			"listener", name,
			"attempt", attempt,
			"retry_in", wait,
			"error", err,
		)
		metrics.ListenerReconnects.WithLabelValues(name).Inc()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// ErrSuperseded stops a Retry whose connection has already been replaced.
var ErrSuperseded = errors.New("connection superseded")

// Retry runs op until it succeeds, ctx ends or op returns ErrSuperseded.
// Listeners use it for work that must complete on every (re)connect, such as
// subscribing.
func Retry(ctx context.Context, cfg Config, notify func(err error, wait time.Duration), op func() error) error {
	cfg = cfg.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialInterval
	b.MaxInterval = cfg.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.RetryNotify(func() error {
		err := op()
		if errors.Is(err, ErrSuperseded) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), notify)
}
