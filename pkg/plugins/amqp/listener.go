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

package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Azure/go-amqp"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/reconnect"
)

type Options struct {
	URL      string
	Topic    string
	Address  string
	Username string
	Password string
	// Credit is the number of unsettled messages the broker may push.
	Credit    int32
	Reconnect reconnect.Config
}

// Listener consumes an AMQP 1.0 address. ActiveMQ Artemis and similar brokers
// expose MQTT topics as dotted addresses, so "doorbell/ring" is read from
// "doorbell.ring" unless an explicit address is configured.
type Listener struct {
	name      string
	opts      Options
	logger    *slog.Logger
	connected atomic.Bool
	handler   core.MessageHandler
}

func New(name string, opts Options, logger *slog.Logger) *Listener {
	if opts.Address == "" {
		opts.Address = core.TopicToDotted(opts.Topic)
	}
	if opts.Credit <= 0 {
		opts.Credit = 10
	}
	return &Listener{name: name, opts: opts, logger: logger}
}

func (l *Listener) Name() string    { return l.name }
func (l *Listener) Type() string    { return "amqp" }
func (l *Listener) Connected() bool { return l.connected.Load() }

func (l *Listener) Start(ctx context.Context, handler core.MessageHandler) error {
	l.handler = handler
	l.logger.Info("amqp listener starting", "name", l.name, "url", core.Redact(l.opts.URL), "address", l.opts.Address)
	return reconnect.Run(ctx, l.name, l.opts.Reconnect, l.logger, l.session)
}

func (l *Listener) Stop(ctx context.Context) error {
	l.connected.Store(false)
	return nil
}

func (l *Listener) session(ctx context.Context) error {
	var connOpts *amqp.ConnOptions
	if l.opts.Username != "" {
		connOpts = &amqp.ConnOptions{SASLType: amqp.SASLTypePlain(l.opts.Username, l.opts.Password)}
	}

	conn, err := amqp.Dial(ctx, l.opts.URL, connOpts)
	if err != nil {
		return fmt.Errorf("%w: amqp dial: %w", core.ErrConnectionFailure, err)
	}
	defer conn.Close()

	sess, err := conn.NewSession(ctx, nil)
	if err != nil {
		return fmt.Errorf("amqp session: %w", err)
	}

	receiver, err := sess.NewReceiver(ctx, l.opts.Address, &amqp.ReceiverOptions{
		Credit: l.opts.Credit,
	})
	if err != nil {
		return fmt.Errorf("amqp receiver %s: %w", l.opts.Address, err)
	}

	l.connected.Store(true)
	defer l.connected.Store(false)
	l.logger.Info("amqp subscribed", "name", l.name, "address", l.opts.Address)

	topic := l.TopicFor()
	for {
		msg, err := receiver.Receive(ctx, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: amqp receive: %w", core.ErrConnectionFailure, err)
		}

		l.handler(topic, msg.GetData())
		if err := receiver.AcceptMessage(ctx, msg); err != nil {
			l.logger.Warn("amqp accept failed", "name", l.name, "error", err)
		}
	}
}

// TopicFor is the topic reported for every message read from the address.
func (l *Listener) TopicFor() string {
	return core.DottedToTopic(l.opts.Address)
}
