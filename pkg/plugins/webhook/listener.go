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

package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

type Options struct {
	Port int
	// Token, when set, must be presented as a bearer token.
	Token string
	// RatePerSecond and Burst bound how fast callers may ring.
	RatePerSecond float64
	Burst         int
}

// Listener accepts POST /<topic> with the payload as body, for doorbells that
// can fire an HTTP request but do not speak MQTT.
type Listener struct {
	name      string
	opts      Options
	limiter   *rate.Limiter
	maxBody   int64
	logger    *slog.Logger
	server    *http.Server
	handler   core.MessageHandler
	connected atomic.Bool
}

func New(name string, opts Options, logger *slog.Logger) *Listener {
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	return &Listener{
		name:    name,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		maxBody: 1 << 10,
		logger:  logger,
	}
}

func (l *Listener) Name() string    { return l.name }
func (l *Listener) Type() string    { return "webhook" }
func (l *Listener) Connected() bool { return l.connected.Load() }

// Handler serves ring requests. handler must be set before it is used.
func (l *Listener) Handler(handler core.MessageHandler) http.Handler {
	l.handler = handler
	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handlePost)
	return mux
}

func (l *Listener) Start(ctx context.Context, handler core.MessageHandler) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", l.opts.Port))
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	l.server = &http.Server{
		Handler:           l.Handler(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.server.Shutdown(shutdownCtx)
	}()

	l.connected.Store(true)
	defer l.connected.Store(false)
	l.logger.Info("webhook listener starting", "name", l.name, "port", l.opts.Port)
	if err := l.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (l *Listener) Stop(ctx context.Context) error {
	if l.server != nil {
		return l.server.Shutdown(ctx)
	}
	return nil
}

func (l *Listener) handlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if l.opts.Token != "" && r.Header.Get("Authorization") != "Bearer "+l.opts.Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !l.limiter.Allow() {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, l.maxBody))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	topic := strings.TrimPrefix(r.URL.Path, "/")
	l.logger.Debug("webhook message", "name", l.name, "topic", topic, "remote", core.RemoteID(r))
	l.handler(topic, body)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"status":"accepted"}`))
}
