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

package ntfy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDispatchPutsImage(t *testing.T) {
	var got *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"id":"abc123","event":"message"}`))
	}))
	defer srv.Close()

	n := core.Notification{
		Recipient: "front-door",
		Token:     "tk_secret",
		Title:     "Doorbell",
		Message:   "Doorbell (Image)",
		Attachment: &core.Attachment{
			Name:        "doorbell.jpg",
			ContentType: "image/jpeg",
			Data:        []byte{1, 2, 3},
		},
	}
	if err := New(srv.URL+"/", time.Second, testLogger()).Dispatch(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Method != http.MethodPut {
		t.Fatalf("expected PUT, got %s", got.Method)
	}
	if got.URL.Path != "/front-door" {
		t.Fatalf("unexpected path %s", got.URL.Path)
	}
	checks := map[string]string{
		"Title":         "Doorbell",
		"Message":       "Doorbell (Image)",
		"Filename":      "doorbell.jpg",
		"Authorization": "Bearer tk_secret",
	}
	for k, v := range checks {
		if got.Header.Get(k) != v {
			t.Errorf("header %s = %q, want %q", k, got.Header.Get(k), v)
		}
	}
	if len(body) != 3 {
		t.Fatalf("expected image body, got %d bytes", len(body))
	}
}

func TestDispatchTextOnly(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		if r.Header.Get("Authorization") != "" {
			t.Error("no token configured, expected no Authorization header")
		}
		w.Write([]byte(`{"id":"x"}`))
	}))
	defer srv.Close()

	n := core.Notification{Recipient: "front-door", Title: "Doorbell", Message: "Doorbell"}
	if err := New(srv.URL, time.Second, testLogger()).Dispatch(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "Doorbell" {
		t.Fatalf("expected message as body, got %q", body)
	}
}

func TestDispatchErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write([]byte(`{"code":41301,"http":413,"error":"attachment too large"}`))
	}))
	defer srv.Close()

	n := core.Notification{Recipient: "front-door", Title: "Doorbell", Message: "m",
		Attachment: &core.Attachment{Name: "doorbell.jpg", ContentType: "image/jpeg", Data: []byte{1}}}
	err := New(srv.URL, time.Second, testLogger()).Dispatch(context.Background(), n)
	if !errors.Is(err, core.ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "attachment too large") {
		t.Fatalf("expected backend diagnostic, got %v", err)
	}
}
