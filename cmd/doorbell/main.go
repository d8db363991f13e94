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
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/admin"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/controller"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/logging"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/metrics"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/supervisor"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/internal/trigger"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/capture"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/config"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/history"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins/gpio"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = config.DefaultPath
	}
	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		logger.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	logger = logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level)

	if err := run(cfg, configPath, logger); err != nil {
		logger.Error("doorbell bridge stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath string, logger *slog.Logger) error {
	registry := plugins.NewRegistry(logger)
	registerPlugins(registry)

	listener, err := registry.NewListener(cfg.Listener, cfg.Trigger.Topic)
	if err != nil {
		return err
	}
	capturer, err := registry.NewCapturer(cfg.Capture)
	if err != nil {
		return err
	}
	dispatcher, err := registry.NewDispatcher(cfg.Notify)
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.History, logger.With("component", "history"))
	if err != nil {
		return err
	}
	defer store.Close()

	broadcaster := admin.NewBroadcaster()
	opts := []controller.Option{
		controller.WithHistory(store),
		controller.WithObserver(broadcaster.Publish),
	}
	if cfg.Indicator.Type == "gpio" {
		indicator, err := gpio.Open(cfg.Indicator.Pin, cfg.Indicator.ActiveLow)
		if err != nil {
			logger.Warn("ring indicator unavailable", "pin", cfg.Indicator.Pin, "error", err)
		} else {
			defer indicator.Close()
			opts = append(opts, controller.WithIndicator(indicator))
		}
	}

	predicate := trigger.NewPredicate(cfg.Trigger.Topic, cfg.Trigger.Payload)
	ctrl := controller.New(
		predicate,
		capturer,
		dispatcher,
		settingsFrom(cfg.Notify),
		controller.Config{
			QueueSize:       cfg.Controller.QueueSize,
			CaptureTimeout:  cfg.Capture.Timeout,
			DispatchTimeout: cfg.Notify.DispatchTimeout(),
		},
		logger.With("component", "controller"),
		opts...,
	)

	metrics.RegisterListenerGauge(listener.Name(), listener.Connected)

	onReload := newReloader(cfg, ctrl, capturer, predicate, logger)

	tree := supervisor.NewTree(logger, supervisor.DefaultTreeConfig())
	tree.AddMessagingService(supervisor.NewFunc("listener-"+listener.Name(), func(ctx context.Context) error {
		return listener.Start(ctx, ctrl.Handler(listener.Name()))
	}))
	tree.AddPipelineService(ctrl)
	tree.AddAdminService(config.NewWatcher(configPath, onReload, logger.With("component", "config")))
	if cfg.Admin.Enabled {
		tree.AddAdminService(admin.New(cfg.Admin.Port, listener.Connected, store, broadcaster, logger.With("component", "admin")))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("doorbell bridge started",
		"config", configPath,
		"listener", listener.Name(),
		"listener_type", listener.Type(),
		"topic", cfg.Trigger.Topic,
		"camera", core.Redact(cfg.Capture.URL),
		"notifier", cfg.Notify.Type,
	)

	err = tree.Serve(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if stopErr := listener.Stop(shutdownCtx); stopErr != nil {
		logger.Warn("listener stop failed", "error", stopErr)
	}
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logger.Warn("services did not stop in time", "count", len(report))
	}

	logger.Info("doorbell bridge stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// newReloader applies the hot-reloadable part of a new configuration. The
// watcher logs the reload itself.
func newReloader(cfg *config.Config, ctrl *controller.Controller, capturer *capture.Capturer, predicate *trigger.Predicate, logger *slog.Logger) config.ReloadFunc {
	return func(next *config.Config) {
		ctrl.UpdateSettings(settingsFrom(next.Notify))
		capturer.SetQuality(next.Capture.Quality)
		predicate.Replace(predicate.Topic(), next.Trigger.Payload)
		if next.Listener.Type != cfg.Listener.Type || next.Listener.URL != cfg.Listener.URL ||
			next.Trigger.Topic != cfg.Trigger.Topic || next.Capture.URL != cfg.Capture.URL {
			logger.Warn("listener and camera changes need a restart")
		}
	}
}

func settingsFrom(n config.NotifyConfig) controller.Settings {
	return controller.Settings{
		Recipient:      n.User,
		Token:          n.Token,
		Title:          n.Title,
		Message:        n.Message,
		AttachmentName: n.AttachmentName,
	}
}
