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
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTriggerLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	tl := NewTriggerLogger(New(&buf, "json", "debug"))

	now := time.Now()
	tl.Log(core.TriggerRecord{ID: "a", Topic: "doorbell/ring", Outcome: core.OutcomeDelivered, ReceivedAt: now, FinishedAt: now.Add(time.Second), ImageBytes: 1024})
	tl.Log(core.TriggerRecord{ID: "b", Topic: "doorbell/ring", Outcome: core.OutcomeCaptureFailed, Error: "no frame"})
	tl.Log(core.TriggerRecord{ID: "c", Topic: "doorbell/ring", Outcome: core.OutcomeDropped})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d", len(lines))
	}

	wantLevels := []string{"INFO", "ERROR", "WARN"}
	for i, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		if entry["level"] != wantLevels[i] {
			t.Errorf("line %d: expected level %s, got %v", i, wantLevels[i], entry["level"])
		}
		if entry["msg"] != "trigger" {
			t.Errorf("line %d: unexpected msg %v", i, entry["msg"])
		}
	}
	if !strings.Contains(lines[1], `"error":"no frame"`) {
		t.Fatalf("expected error attribute, got %s", lines[1])
	}
	if strings.Contains(lines[0], `"error"`) {
		t.Fatalf("delivered trigger should not carry an error: %s", lines[0])
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "text", "info").Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}
