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

package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/reconnect"
)

type Options struct {
	Brokers []string
	Topic   string
	// KafkaTopic is the Kafka topic to read; MQTT bridges usually write every
	// MQTT topic into one Kafka topic and put the MQTT topic in the key.
	KafkaTopic string
	GroupID    string
	Reconnect  reconnect.Config
}

type Listener struct {
	name      string
	opts      Options
	logger    *slog.Logger
	connected atomic.Bool
	handler   core.MessageHandler
}

func New(name string, opts Options, logger *slog.Logger) *Listener {
	if opts.KafkaTopic == "" {
		opts.KafkaTopic = core.TopicToDotted(opts.Topic)
	}
	if opts.GroupID == "" {
		opts.GroupID = "doorbell-" + name
	}
	return &Listener{name: name, opts: opts, logger: logger}
}

func (l *Listener) Name() string    { return l.name }
func (l *Listener) Type() string    { return "kafka" }
func (l *Listener) Connected() bool { return l.connected.Load() }

func (l *Listener) Start(ctx context.Context, handler core.MessageHandler) error {
	l.handler = handler
	l.logger.Info("kafka listener starting",
		"name", l.name,
		"brokers", strings.Join(l.opts.Brokers, ","),
		"kafka_topic", l.opts.KafkaTopic,
		"group_id", l.opts.GroupID,
	)
	return reconnect.Run(ctx, l.name, l.opts.Reconnect, l.logger, l.session)
}

func (l *Listener) Stop(ctx context.Context) error {
	l.connected.Store(false)
	return nil
}

func (l *Listener) session(ctx context.Context) error {
	if len(l.opts.Brokers) == 0 {
		return fmt.Errorf("%w: kafka: no brokers configured", core.ErrConnectionFailure)
	}

	// the reader connects lazily, probe a broker so Connected means something
	probe, err := kafka.DialContext(ctx, "tcp", l.opts.Brokers[0])
	if err != nil {
		return fmt.Errorf("%w: kafka dial: %w", core.ErrConnectionFailure, err)
	}
	probe.Close()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     l.opts.Brokers,
		Topic:       l.opts.KafkaTopic,
		GroupID:     l.opts.GroupID,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    1e6,
		StartOffset: kafka.LastOffset,
	})
	defer reader.Close()

	l.connected.Store(true)
	defer l.connected.Store(false)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: kafka read: %w", core.ErrConnectionFailure, err)
		}
		l.handler(TopicOf(msg), msg.Value)
	}
}

// TopicOf recovers the originating topic of a record: the key, a "topic"
// header, or the Kafka topic itself.
func TopicOf(msg kafka.Message) string {
	if len(msg.Key) > 0 {
		return string(msg.Key)
	}
	for _, h := range msg.Headers {
		if h.Key == "topic" || h.Key == "mqtt_topic" {
			return string(h.Value)
		}
	}
	return core.DottedToTopic(msg.Topic)
}
