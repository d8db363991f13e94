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

package logging

import (
	"context"
	"log/slog"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

type TriggerLogger struct {
	logger *slog.Logger
}

func NewTriggerLogger(logger *slog.Logger) *TriggerLogger {
	return &TriggerLogger{logger: logger}
}

func (t *TriggerLogger) Log(rec core.TriggerRecord) {
	level := slog.LevelInfo
	switch rec.Outcome {
	case core.OutcomeCaptureFailed, core.OutcomeDispatchFailed:
		level = slog.LevelError
	case core.OutcomeDropped:
		level = slog.LevelWarn
	}

	attrs := []any{
		"trigger_id", rec.ID,
		"listener", rec.Listener,
		"topic", rec.Topic,
		"outcome", rec.Outcome,
		"image_bytes", rec.ImageBytes,
		"duration", rec.Duration(),
	}
	if rec.Error != "" {
		attrs = append(attrs, "error", rec.Error)
	}
	t.logger.Log(context.Background(), level, "trigger", attrs...)
}
