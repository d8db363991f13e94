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

package main

import (
	"log/slog"
	"strings"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/capture"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/config"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/notify"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/amqp"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/kafka"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/mqtt"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/mqtt5"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/nats"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/ntfy"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/pushover"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/rabbitmq"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/reconnect"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/snapshot"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/solace"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/webhook"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/ws"
)

func registerPlugins(reg *plugins.Registry) {
	registerListeners(reg)

	registerOpenCV(reg)
	reg.RegisterOpener("snapshot", func(cfg config.CaptureConfig) (capture.Opener, error) {
		return snapshot.NewOpener(cfg.Timeout), nil
	})

	reg.RegisterEncoder("jpeg", func() (capture.Encoder, error) { return capture.JPEGEncoder{}, nil })

	reg.RegisterDispatcher("pushover", func(cfg config.NotifyConfig, logger *slog.Logger) (core.Dispatcher, error) {
		return withBreaker(pushover.New(cfg.URL, cfg.Timeout, logger), cfg, logger), nil
	})
	reg.RegisterDispatcher("ntfy", func(cfg config.NotifyConfig, logger *slog.Logger) (core.Dispatcher, error) {
		return withBreaker(ntfy.New(cfg.URL, cfg.Timeout, logger), cfg, logger), nil
	})
}

func withBreaker(d core.Dispatcher, cfg config.NotifyConfig, logger *slog.Logger) core.Dispatcher {
	if !cfg.Breaker.Enabled {
		return d
	}
	return notify.NewBreaker(d, notify.BreakerConfig{
		Name:             cfg.Type,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
	}, logger)
}

func reconnectConfig(lc config.ListenerConfig) reconnect.Config {
	return reconnect.Config{
		InitialInterval: lc.Reconnect.InitialInterval,
		MaxInterval:     lc.Reconnect.MaxInterval,
		StableAfter:     lc.Reconnect.StableAfter,
	}
}

func registerListeners(reg *plugins.Registry) {
	reg.RegisterListener("mqtt", func(lc config.ListenerConfig, topic string, logger *slog.Logger) (core.Listener, error) {
		return mqtt.New(lc.Name, mqtt.Options{
			BrokerURL:      lc.URL,
			Topic:          topic,
			QoS:            lc.QoS,
			ClientIDPrefix: lc.ClientID,
			Username:       lc.Username,
			Password:       lc.Password,
			KeepAlive:      lc.KeepAlive,
			MaxReconnect:   lc.Reconnect.MaxInterval,
			IgnoreRetained: lc.IgnoreRetained,
			SubscribeRetry: reconnectConfig(lc),
		}, logger), nil
	})
	reg.RegisterListener("mqtt5", func(lc config.ListenerConfig, topic string, logger *slog.Logger) (core.Listener, error) {
		return mqtt5.New(lc.Name, mqtt5.Options{
			BrokerURL:      lc.URL,
			Topic:          topic,
			QoS:            lc.QoS,
			ClientIDPrefix: lc.ClientID,
			Username:       lc.Username,
			Password:       lc.Password,
			KeepAlive:      lc.KeepAlive,
			IgnoreRetained: lc.IgnoreRetained,
			SubscribeRetry: reconnectConfig(lc),
		}, logger), nil
	})
	reg.RegisterListener("rabbitmq", func(lc config.ListenerConfig, topic string, logger *slog.Logger) (core.Listener, error) {
		return rabbitmq.New(lc.Name, rabbitmq.Options{
			URL:       lc.URL,
			Topic:     topic,
			Exchange:  lc.Option("exchange", ""),
			Queue:     lc.Option("queue", ""),
			Reconnect: reconnectConfig(lc),
		}, logger), nil
	})
	reg.RegisterListener("amqp", func(lc config.ListenerConfig, topic string, logger *slog.Logger) (core.Listener, error) {
		return amqp.New(lc.Name, amqp.Options{
			URL:       lc.URL,
			Topic:     topic,
			Address:   lc.Option("address", ""),
			Username:  lc.Username,
			Password:  lc.Password,
			Credit:    int32(lc.IntOption("credit", 0)),
			Reconnect: reconnectConfig(lc),
		}, logger), nil
	})
	reg.RegisterListener("kafka", func(lc config.ListenerConfig, topic string, logger *slog.Logger) (core.Listener, error) {
		return kafka.New(lc.Name, kafka.Options{
			Brokers:    strings.Split(lc.URL, ","),
			Topic:      topic,
			KafkaTopic: lc.Option("kafka_topic", ""),
			GroupID:    lc.Option("group_id", ""),
			Reconnect:  reconnectConfig(lc),
		}, logger), nil
	})
	reg.RegisterListener("nats", func(lc config.ListenerConfig, topic string, logger *slog.Logger) (core.Listener, error) {
		return nats.New(lc.Name, nats.Options{
			URL:            lc.URL,
			Topic:          topic,
			ClientIDPrefix: lc.ClientID,
			Username:       lc.Username,
			Password:       lc.Password,
			ReconnectWait:  lc.Reconnect.InitialInterval,
		}, logger), nil
	})
	reg.RegisterListener("solace", func(lc config.ListenerConfig, topic string, logger *slog.Logger) (core.Listener, error) {
		return solace.New(lc.Name, solace.Options{
			Host:      lc.URL,
			VPN:       lc.Option("vpn", "default"),
			Username:  lc.Username,
			Password:  lc.Password,
			Topic:     topic,
			Reconnect: reconnectConfig(lc),
		}, logger), nil
	})
	reg.RegisterListener("webhook", func(lc config.ListenerConfig, _ string, logger *slog.Logger) (core.Listener, error) {
		return webhook.New(lc.Name, webhook.Options{
			Port:  lc.Port,
			Token: lc.Password,
			Burst: lc.IntOption("burst", 0),
		}, logger), nil
	})
	reg.RegisterListener("websocket", func(lc config.ListenerConfig, _ string, logger *slog.Logger) (core.Listener, error) {
		return ws.New(lc.Name, lc.Port, logger), nil
	})
}
