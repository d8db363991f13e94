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

package mqtt

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/reconnect"
)

// client is the part of mqtt.Client the listener uses.
type client interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

type Options struct {
	BrokerURL      string
	Topic          string
	QoS            byte
	ClientIDPrefix string
	Username       string
	Password       string
	KeepAlive      time.Duration
	MaxReconnect   time.Duration
	IgnoreRetained bool
	// SubscribeRetry paces subscribe attempts after a connect whose SUBSCRIBE
	// failed.
	SubscribeRetry reconnect.Config
}

type Listener struct {
	name      string
	opts      Options
	newClient func(*mqtt.ClientOptions) client
	logger    *slog.Logger

	mu        sync.Mutex
	ctx       context.Context
	client    client
	handler   core.MessageHandler
	connected atomic.Bool
	// session changes on every connect and connection loss so a pending
	// subscribe retry can tell it belongs to a dead connection.
	session atomic.Uint64
}

func New(name string, opts Options, logger *slog.Logger) *Listener {
	if opts.KeepAlive == 0 {
		opts.KeepAlive = 60 * time.Second
	}
	if opts.MaxReconnect == 0 {
		opts.MaxReconnect = time.Minute
	}
	return &Listener{
		name:   name,
		opts:   opts,
		logger: logger,
		newClient: func(o *mqtt.ClientOptions) client {
			return mqtt.NewClient(o)
		},
	}
}

func (l *Listener) Name() string    { return l.name }
func (l *Listener) Type() string    { return "mqtt" }
func (l *Listener) Connected() bool { return l.connected.Load() }

// Start connects and blocks until ctx is cancelled. The paho client retries
// the initial connection and every dropped connection on its own; the
// subscription is re-issued from the on-connect hook each time.
func (l *Listener) Start(ctx context.Context, handler core.MessageHandler) error {
	clientID := core.NewClientID(l.opts.ClientIDPrefix)

	mqttOpts := mqtt.NewClientOptions().
		AddBroker(l.opts.BrokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(l.opts.MaxReconnect).
		SetKeepAlive(l.opts.KeepAlive).
		SetOnConnectHandler(func(mqtt.Client) {
			l.onConnect()
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			l.session.Add(1)
			l.connected.Store(false)
			l.logger.Warn("mqtt connection lost", "name", l.name, "error", err)
		}).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			l.logger.Info("mqtt reconnecting", "name", l.name, "broker", core.Redact(l.opts.BrokerURL))
		})
	if l.opts.Username != "" {
		mqttOpts.SetUsername(l.opts.Username)
		mqttOpts.SetPassword(l.opts.Password)
	}

	c := l.newClient(mqttOpts)
	l.mu.Lock()
	l.ctx = ctx
	l.client = c
	l.handler = handler
	l.mu.Unlock()

	l.logger.Info("mqtt listener starting",
		"name", l.name,
		"broker", core.Redact(l.opts.BrokerURL),
		"client_id", clientID,
		"topic", l.opts.Topic,
	)

	token := c.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			l.logger.Error("mqtt connect failed", "name", l.name, "error", token.Error())
		}
	}()

	<-ctx.Done()
	l.connected.Store(false)
	c.Disconnect(250)
	return nil
}

func (l *Listener) Stop(ctx context.Context) error {
	l.mu.Lock()
	c := l.client
	l.mu.Unlock()
	if c != nil {
		l.connected.Store(false)
		c.Disconnect(250)
	}
	return nil
}

// onConnect runs on paho's handler goroutine after every (re)connect. The
// listener only reports connected once the broker acknowledged the
// subscription; a failed SUBSCRIBE is retried until it succeeds or the
// connection is replaced.
func (l *Listener) onConnect() {
	l.mu.Lock()
	c := l.client
	ctx := l.ctx
	l.mu.Unlock()
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	gen := l.session.Add(1)
	l.connected.Store(false)
	l.logger.Info("mqtt connected", "name", l.name, "broker", core.Redact(l.opts.BrokerURL))

	err := reconnect.Retry(ctx, l.opts.SubscribeRetry,
		func(err error, wait time.Duration) {
			l.logger.Warn("mqtt subscribe failed, retrying", "name", l.name, "topic", l.opts.Topic, "retry_in", wait, "error", err)
		},
		func() error {
			if l.session.Load() != gen {
				return reconnect.ErrSuperseded
			}
			if token := c.Subscribe(l.opts.Topic, l.opts.QoS, l.onMessage); token.Wait() && token.Error() != nil {
				return token.Error()
			}
			return nil
		},
	)
	if err != nil || l.session.Load() != gen {
		return
	}
	l.connected.Store(true)
	l.logger.Info("mqtt subscribed", "name", l.name, "topic", l.opts.Topic, "qos", l.opts.QoS)
}

func (l *Listener) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if l.opts.IgnoreRetained && msg.Retained() {
		l.logger.Debug("mqtt retained message ignored", "name", l.name, "topic", msg.Topic())
		return
	}

	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()
	if handler != nil {
		handler(msg.Topic(), msg.Payload())
	}
}
