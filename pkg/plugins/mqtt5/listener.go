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

package mqtt5

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/reconnect"
)

type Options struct {
	BrokerURL      string
	Topic          string
	QoS            byte
	ClientIDPrefix string
	Username       string
	Password       string
	KeepAlive      time.Duration
	IgnoreRetained bool
	SubscribeRetry reconnect.Config
}

type Listener struct {
	name      string
	opts      Options
	logger    *slog.Logger
	connected atomic.Bool
	session   atomic.Uint64

	mu      sync.Mutex
	handler core.MessageHandler
	cm      *autopaho.ConnectionManager
}

func New(name string, opts Options, logger *slog.Logger) *Listener {
	if opts.KeepAlive == 0 {
		opts.KeepAlive = 30 * time.Second
	}
	return &Listener{name: name, opts: opts, logger: logger}
}

func (l *Listener) Name() string    { return l.name }
func (l *Listener) Type() string    { return "mqtt5" }
func (l *Listener) Connected() bool { return l.connected.Load() }

func (l *Listener) clientConfig(ctx context.Context) (autopaho.ClientConfig, error) {
	serverURL, err := url.Parse(l.opts.BrokerURL)
	if err != nil {
		return autopaho.ClientConfig{}, fmt.Errorf("mqtt5 invalid URL: %w", err)
	}

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{serverURL},
		KeepAlive:                     uint16(l.opts.KeepAlive / time.Second),
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         0,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			gen := l.session.Add(1)
			l.connected.Store(false)
			l.logger.Info("mqtt5 connection up", "name", l.name)
			// the session does not survive a reconnect, subscribe every time
			go l.subscribe(ctx, gen, func(ctx context.Context) error {
				_, err := cm.Subscribe(ctx, &paho.Subscribe{
					Subscriptions: []paho.SubscribeOptions{
						{Topic: l.opts.Topic, QoS: l.opts.QoS},
					},
				})
				return err
			})
		},
		OnConnectError: func(err error) {
			l.session.Add(1)
			l.connected.Store(false)
			l.logger.Warn("mqtt5 connect failed", "name", l.name, "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: core.NewClientID(l.opts.ClientIDPrefix),
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					l.onPublish(pr.Packet)
					return true, nil
				},
			},
			OnClientError: func(err error) {
				l.session.Add(1)
				l.connected.Store(false)
				l.logger.Warn("mqtt5 client error", "name", l.name, "error", err)
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				l.session.Add(1)
				l.connected.Store(false)
				l.logger.Warn("mqtt5 server disconnect", "name", l.name, "reason", d.ReasonCode)
			},
		},
	}
	if l.opts.Username != "" {
		cfg.ConnectUsername = l.opts.Username
		cfg.ConnectPassword = []byte(l.opts.Password)
	}
	return cfg, nil
}

// Start hands the connection to autopaho, which keeps reconnecting for as
// long as ctx is live.
func (l *Listener) Start(ctx context.Context, handler core.MessageHandler) error {
	l.mu.Lock()
	l.handler = handler
	l.mu.Unlock()

	cfg, err := l.clientConfig(ctx)
	if err != nil {
		return err
	}

	cm, err := autopaho.NewConnection(ctx, cfg)
	if err != nil {
		return fmt.Errorf("mqtt5 connection: %w", err)
	}
	l.mu.Lock()
	l.cm = cm
	l.mu.Unlock()

	l.logger.Info("mqtt5 listener starting", "name", l.name, "broker", core.Redact(l.opts.BrokerURL), "topic", l.opts.Topic)

	<-ctx.Done()
	l.connected.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = cm.Disconnect(shutdownCtx)
	return nil
}

func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	cm := l.cm
	l.mu.Unlock()
	if cm == nil {
		return nil
	}
	l.connected.Store(false)
	return cm.Disconnect(ctx)
}

// subscribe retries until the broker acknowledges the subscription or the
// connection identified by gen is gone. Connected only turns true on success.
func (l *Listener) subscribe(ctx context.Context, gen uint64, sub func(ctx context.Context) error) {
	err := reconnect.Retry(ctx, l.opts.SubscribeRetry,
		func(err error, wait time.Duration) {
			l.logger.Warn("mqtt5 subscribe failed, retrying", "name", l.name, "topic", l.opts.Topic, "retry_in", wait, "error", err)
		},
		func() error {
			if l.session.Load() != gen {
				return reconnect.ErrSuperseded
			}
			return sub(ctx)
		},
	)
	if err != nil || l.session.Load() != gen {
		return
	}
	l.connected.Store(true)
	l.logger.Info("mqtt5 subscribed", "name", l.name, "topic", l.opts.Topic)
}

func (l *Listener) onPublish(p *paho.Publish) {
	if p == nil {
		return
	}
	if l.opts.IgnoreRetained && p.Retain {
		return
	}
	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()
	if handler != nil {
		handler(p.Topic, p.Payload)
	}
}
