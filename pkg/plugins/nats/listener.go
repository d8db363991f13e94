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

package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

type Options struct {
	URL            string
	Topic          string
	ClientIDPrefix string
	Username       string
	Password       string
	ReconnectWait  time.Duration
}

// Listener subscribes to the subject derived from the topic
// ("doorbell/ring" becomes "doorbell.ring", the NATS MQTT gateway's mapping).
// nats.go re-issues subscriptions after every reconnect.
type Listener struct {
	name   string
	opts   Options
	logger *slog.Logger

	mu sync.Mutex
	nc *nats.Conn
}

func New(name string, opts Options, logger *slog.Logger) *Listener {
	if opts.ReconnectWait == 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	return &Listener{name: name, opts: opts, logger: logger}
}

func (l *Listener) Name() string { return l.name }
func (l *Listener) Type() string { return "nats" }

func (l *Listener) Subject() string {
	return core.TopicToDotted(l.opts.Topic)
}

func (l *Listener) Connected() bool {
	l.mu.Lock()
	nc := l.nc
	l.mu.Unlock()
	return nc != nil && nc.IsConnected()
}

func (l *Listener) Start(ctx context.Context, handler core.MessageHandler) error {
	natsOpts := []nats.Option{
		nats.Name(core.NewClientID(l.opts.ClientIDPrefix)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(l.opts.ReconnectWait),
		nats.ConnectHandler(func(nc *nats.Conn) {
			l.logger.Info("nats connected", "name", l.name, "server", nc.ConnectedUrlRedacted())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			l.logger.Warn("nats disconnected", "name", l.name, "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			l.logger.Info("nats reconnected", "name", l.name, "server", nc.ConnectedUrlRedacted())
		}),
	}
	if l.opts.Username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(l.opts.Username, l.opts.Password))
	}

	nc, err := nats.Connect(l.opts.URL, natsOpts...)
	if err != nil {
		return fmt.Errorf("%w: nats connect: %w", core.ErrConnectionFailure, err)
	}
	l.mu.Lock()
	l.nc = nc
	l.mu.Unlock()

	sub, err := nc.Subscribe(l.Subject(), func(m *nats.Msg) {
		handler(core.DottedToTopic(m.Subject), m.Data)
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("nats subscribe %s: %w", l.Subject(), err)
	}
	l.logger.Info("nats listener subscribed", "name", l.name, "subject", l.Subject())

	<-ctx.Done()
	_ = sub.Unsubscribe()
	nc.Close()
	return nil
}

func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	nc := l.nc
	l.mu.Unlock()
	if nc != nil {
		nc.Close()
	}
	return nil
}
