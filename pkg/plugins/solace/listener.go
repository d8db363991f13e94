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

package solace

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"solace.dev/go/messaging"
	"solace.dev/go/messaging/pkg/solace"
	"solace.dev/go/messaging/pkg/solace/config"
	"solace.dev/go/messaging/pkg/solace/message"
	"solace.dev/go/messaging/pkg/solace/resource"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/reconnect"
)

type Options struct {
	Host      string
	VPN       string
	Username  string
	Password  string
	Topic     string
	Reconnect reconnect.Config
}

// Listener holds a direct subscription on a Solace broker. The API retries
// dropped connections itself; the outer loop only rebuilds the service once
// the API reports the session as permanently down.
type Listener struct {
	name      string
	opts      Options
	logger    *slog.Logger
	connected atomic.Bool
	handler   core.MessageHandler
}

func New(name string, opts Options, logger *slog.Logger) *Listener {
	if opts.VPN == "" {
		opts.VPN = "default"
	}
	return &Listener{name: name, opts: opts, logger: logger}
}

func (l *Listener) Name() string    { return l.name }
func (l *Listener) Type() string    { return "solace" }
func (l *Listener) Connected() bool { return l.connected.Load() }

func (l *Listener) Start(ctx context.Context, handler core.MessageHandler) error {
	l.handler = handler
	l.logger.Info("solace listener starting", "name", l.name, "host", l.opts.Host, "vpn", l.opts.VPN, "topic", l.opts.Topic)
	return reconnect.Run(ctx, l.name, l.opts.Reconnect, l.logger, l.session)
}

func (l *Listener) Stop(ctx context.Context) error {
	l.connected.Store(false)
	return nil
}

func (l *Listener) properties() config.ServicePropertyMap {
	return config.ServicePropertyMap{
		config.TransportLayerPropertyHost:                 l.opts.Host,
		config.ServicePropertyVPNName:                     l.opts.VPN,
		config.AuthenticationPropertySchemeBasicUserName:  l.opts.Username,
		config.AuthenticationPropertySchemeBasicPassword:  l.opts.Password,
		config.TransportLayerPropertyReconnectionAttempts: -1,
	}
}

func (l *Listener) session(ctx context.Context) error {
	service, err := messaging.NewMessagingServiceBuilder().
		FromConfigurationProvider(l.properties()).
		Build()
	if err != nil {
		return fmt.Errorf("solace build: %w", err)
	}

	down := make(chan error, 1)
	service.AddReconnectionAttemptListener(func(e solace.ServiceEvent) {
		l.connected.Store(false)
		l.logger.Warn("solace reconnecting", "name", l.name, "error", e.GetCause())
	})
	service.AddReconnectionListener(func(e solace.ServiceEvent) {
		l.connected.Store(true)
		l.logger.Info("solace reconnected", "name", l.name)
	})
	service.AddServiceInterruptionListener(func(e solace.ServiceEvent) {
		select {
		case down <- e.GetCause():
		default:
		}
	})

	if err := service.Connect(); err != nil {
		return fmt.Errorf("%w: solace connect: %w", core.ErrConnectionFailure, err)
	}
	defer service.Disconnect()

	receiver, err := service.CreateDirectMessageReceiverBuilder().
		WithSubscriptions(resource.TopicSubscriptionOf(l.opts.Topic)).
		Build()
	if err != nil {
		return fmt.Errorf("solace receiver build: %w", err)
	}
	if err := receiver.Start(); err != nil {
		return fmt.Errorf("solace receiver start: %w", err)
	}
	defer receiver.Terminate(5 * time.Second)

	if err := receiver.ReceiveAsync(func(msg message.InboundMessage) {
		payload, _ := msg.GetPayloadAsBytes()
		l.handler(msg.GetDestinationName(), payload)
	}); err != nil {
		return fmt.Errorf("solace receive: %w", err)
	}

	l.connected.Store(true)
	defer l.connected.Store(false)

	select {
	case <-ctx.Done():
		return nil
	case cause := <-down:
		return fmt.Errorf("%w: solace service interrupted: %v", core.ErrConnectionFailure, cause)
	}
}
