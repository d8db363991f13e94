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

package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/reconnect"
)

const DefaultExchange = "amq.topic"

type Options struct {
	URL      string
	Topic    string
	Exchange string
	// Queue is left empty to get an exclusive server-named queue.
	Queue     string
	Reconnect reconnect.Config
}

// Listener binds a queue to a topic exchange. With the RabbitMQ MQTT plugin
// enabled, MQTT publishes to "doorbell/ring" arrive on amq.topic with routing
// key "doorbell.ring".
type Listener struct {
	name      string
	opts      Options
	logger    *slog.Logger
	connected atomic.Bool
	handler   core.MessageHandler
}

func New(name string, opts Options, logger *slog.Logger) *Listener {
	if opts.Exchange == "" {
		opts.Exchange = DefaultExchange
	}
	return &Listener{name: name, opts: opts, logger: logger}
}

func (l *Listener) Name() string    { return l.name }
func (l *Listener) Type() string    { return "rabbitmq" }
func (l *Listener) Connected() bool { return l.connected.Load() }

func (l *Listener) RoutingKey() string {
	return core.TopicToDotted(l.opts.Topic)
}

func (l *Listener) Start(ctx context.Context, handler core.MessageHandler) error {
	l.handler = handler
	l.logger.Info("rabbitmq listener starting",
		"name", l.name,
		"url", core.Redact(l.opts.URL),
		"exchange", l.opts.Exchange,
		"routing_key", l.RoutingKey(),
	)
	return reconnect.Run(ctx, l.name, l.opts.Reconnect, l.logger, l.session)
}

func (l *Listener) Stop(ctx context.Context) error {
	l.connected.Store(false)
	return nil
}

func (l *Listener) session(ctx context.Context) error {
	conn, err := amqp.Dial(l.opts.URL)
	if err != nil {
		return fmt.Errorf("%w: rabbitmq dial: %w", core.ErrConnectionFailure, err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer ch.Close()

	exclusive := l.opts.Queue == ""
	q, err := ch.QueueDeclare(l.opts.Queue, !exclusive, exclusive, exclusive, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, l.RoutingKey(), l.opts.Exchange, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue bind %s: %w", q.Name, err)
	}

	consumerTag := core.NewClientID("doorbell-" + l.name)
	deliveries, err := ch.Consume(q.Name, consumerTag, true, exclusive, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	l.connected.Store(true)
	defer l.connected.Store(false)
	l.logger.Info("rabbitmq subscribed", "name", l.name, "queue", q.Name)

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr, ok := <-closed:
			if !ok || amqpErr == nil {
				return fmt.Errorf("%w: rabbitmq connection closed", core.ErrConnectionFailure)
			}
			return fmt.Errorf("%w: %w", core.ErrConnectionFailure, amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			l.handler(core.DottedToTopic(d.RoutingKey), d.Body)
		}
	}
}
