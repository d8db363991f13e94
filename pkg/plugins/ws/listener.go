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

package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

// Frame is one inbound message: {"topic":"doorbell/ring","payload":"ON"}.
type Frame struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

type Listener struct {
	name      string
	port      int
	upgrader  websocket.Upgrader
	server    *http.Server
	logger    *slog.Logger
	handler   core.MessageHandler
	clients   atomic.Int32
	listening atomic.Bool
}

func New(name string, port int, logger *slog.Logger) *Listener {
	return &Listener{
		name: name,
		port: port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (l *Listener) Name() string    { return l.name }
func (l *Listener) Type() string    { return "websocket" }
func (l *Listener) Connected() bool { return l.listening.Load() }

func (l *Listener) Clients() int { return int(l.clients.Load()) }

func (l *Listener) Handler(handler core.MessageHandler) http.Handler {
	l.handler = handler
	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleConnection)
	return mux
}

func (l *Listener) Start(ctx context.Context, handler core.MessageHandler) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", l.port))
	if err != nil {
		return fmt.Errorf("websocket listen: %w", err)
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

	l.listening.Store(true)
	defer l.listening.Store(false)
	l.logger.Info("websocket listener starting", "name", l.name, "port", l.port)
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

func (l *Listener) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Error("ws upgrade failed", "error", err)
		return
	}

	clientID := core.RemoteID(r)
	l.clients.Add(1)
	defer func() {
		conn.Close()
		l.clients.Add(-1)
		l.logger.Info("ws client disconnected", "client_id", clientID)
	}()

	l.logger.Info("ws client connected", "client_id", clientID)
	conn.SetReadLimit(4 << 10)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.logger.Error("ws read error", "client_id", clientID, "error", err)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Topic == "" {
			l.logger.Debug("ws frame ignored", "client_id", clientID, "error", err)
			continue
		}
		l.handler(f.Topic, []byte(f.Payload))
	}
}
