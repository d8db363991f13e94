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

package config

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// ReloadFunc receives every configuration that loaded and validated after the
// file changed on disk.
type ReloadFunc func(cfg *Config)

type Watcher struct {
	path     string
	onReload ReloadFunc
	resolve  func(path string) (*Config, error)
	interval time.Duration
	logger   *slog.Logger
	lastMod  time.Time
}

func NewWatcher(path string, onReload ReloadFunc, logger *slog.Logger) *Watcher {
	w := &Watcher{
		path:     path,
		onReload: onReload,
		resolve:  Resolve,
		interval: 5 * time.Second,
		logger:   logger,
	}
	if info, err := os.Stat(path); err == nil {
		w.lastMod = info.ModTime()
	}
	return w
}

func (w *Watcher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("config stat failed", "path", w.path, "error", err)
		return
	}

	if !info.ModTime().After(w.lastMod) {
		return
	}

	w.lastMod = info.ModTime()

	cfg, err := w.resolve(w.path)
	if err != nil {
		w.logger.Error("config reload failed", "path", w.path, "error", err)
		return
	}

	w.onReload(cfg)
	w.logger.Info("config reloaded",
		"path", w.path,
		"payload", cfg.Trigger.Payload,
		"title", cfg.Notify.Title,
		"quality", cfg.Capture.Quality,
	)
}

func (w *Watcher) String() string { return "config-watcher" }
