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

package plugins

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/capture"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/config"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

// DefaultEncoder is used when capture.encoder is left empty.
const DefaultEncoder = "jpeg"

type ListenerFactory func(cfg config.ListenerConfig, topic string, logger *slog.Logger) (core.Listener, error)

type OpenerFactory func(cfg config.CaptureConfig) (capture.Opener, error)

type EncoderFactory func() (capture.Encoder, error)

type DispatcherFactory func(cfg config.NotifyConfig, logger *slog.Logger) (core.Dispatcher, error)

// Registry maps configured type names to plugin constructors.
type Registry struct {
	listeners   map[string]ListenerFactory
	openers     map[string]OpenerFactory
	encoders    map[string]EncoderFactory
	dispatchers map[string]DispatcherFactory
	logger      *slog.Logger
	mu          sync.RWMutex
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		listeners:   make(map[string]ListenerFactory),
		openers:     make(map[string]OpenerFactory),
		encoders:    make(map[string]EncoderFactory),
		dispatchers: make(map[string]DispatcherFactory),
		logger:      logger,
	}
}

func (r *Registry) RegisterListener(typ string, f ListenerFactory) {
	r.mu.Lock()
	r.listeners[typ] = f
	r.mu.Unlock()
	r.logger.Debug("registered listener", "type", typ)
}

func (r *Registry) RegisterOpener(typ string, f OpenerFactory) {
	r.mu.Lock()
	r.openers[typ] = f
	r.mu.Unlock()
	r.logger.Debug("registered capture source", "type", typ)
}

func (r *Registry) RegisterEncoder(typ string, f EncoderFactory) {
	r.mu.Lock()
	r.encoders[typ] = f
	r.mu.Unlock()
	r.logger.Debug("registered encoder", "type", typ)
}

func (r *Registry) RegisterDispatcher(typ string, f DispatcherFactory) {
	r.mu.Lock()
	r.dispatchers[typ] = f
	r.mu.Unlock()
	r.logger.Debug("registered dispatcher", "type", typ)
}

func (r *Registry) NewListener(cfg config.ListenerConfig, topic string) (core.Listener, error) {
	r.mu.RLock()
	f, ok := r.listeners[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: listener %q", core.ErrUnknownType, cfg.Type)
	}
	return f(cfg, topic, r.logger.With("component", "listener", "listener", cfg.Name))
}

func (r *Registry) NewOpener(cfg config.CaptureConfig) (capture.Opener, error) {
	r.mu.RLock()
	f, ok := r.openers[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capture %q", core.ErrUnknownType, cfg.Type)
	}
	return f(cfg)
}

func (r *Registry) NewEncoder(typ string) (capture.Encoder, error) {
	r.mu.RLock()
	f, ok := r.encoders[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: encoder %q", core.ErrUnknownType, typ)
	}
	return f()
}

func (r *Registry) NewDispatcher(cfg config.NotifyConfig) (core.Dispatcher, error) {
	r.mu.RLock()
	f, ok := r.dispatchers[cfg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: notifier %q", core.ErrUnknownType, cfg.Type)
	}
	return f(cfg, r.logger.With("component", "notify", "notifier", cfg.Type))
}

// NewCapturer assembles the frame capturer from the configured source and
// encoder types.
func (r *Registry) NewCapturer(cfg config.CaptureConfig) (*capture.Capturer, error) {
	opener, err := r.NewOpener(cfg)
	if err != nil {
		return nil, err
	}
	encoderType := cfg.Encoder
	if encoderType == "" {
		encoderType = DefaultEncoder
	}
	encoder, err := r.NewEncoder(encoderType)
	if err != nil {
		return nil, err
	}
	return capture.New(cfg.URL, opener, encoder, cfg.Quality, r.logger.With("component", "capture")), nil
}

// ListenerTypes returns the registered listener type names, sorted.
func (r *Registry) ListenerTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.listeners))
	for t := range r.listeners {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
