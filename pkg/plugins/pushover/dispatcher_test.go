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

package pushover

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

func doorbellNotification() core.Notification {
	return core.Notification{
		Recipient: "user-key",
		Token:     "app-token",
		Title:     "Doorbell",
		Message:   "Doorbell (Image)",
		Attachment: &core.Attachment{
			Name:        "doorbell.jpg",
			ContentType: "image/jpeg",
			Data:        []byte{0xff, 0xd8, 0xff, 0xd9},
		},
	}
}

func TestDispatchMultipart(t *testing.T) {
	var fields map[string]string
	var attachment []byte
	var filename, partType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, hdr, err := r.FormFile("attachment")
		if err != nil {
			t.Errorf("attachment missing: %v", err)
			return
		}
		defer f.Close()
		attachment, _ = io.ReadAll(f)
		filename = hdr.Filename
		partType = hdr.Header.Get("Content-Type")
		w.Write([]byte(`{"status":1,"request":"req-1"}`))
	}))
	defer srv.Close()

	d := New(srv.URL, time.Second, testLogger())
	if err := d.Dispatch(context.Background(), doorbellNotification()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{"token": "app-token", "user": "user-key", "title": "Doorbell", "message": "Doorbell (Image)"}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %q, want %q", k, fields[k], v)
		}
	}
	if filename != "doorbell.jpg" || partType != "image/jpeg" {
		t.Fatalf("unexpected attachment header %q %q", filename, partType)
	}
	if len(attachment) != 4 {
		t.Fatalf("expected 4 attachment bytes, got %d", len(attachment))
	}
}

func TestDispatchWithoutAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		if _, _, err := r.FormFile("attachment"); err == nil {
			t.Error("did not expect an attachment")
		}
		w.Write([]byte(`{"status":1,"request":"req-2"}`))
	}))
	defer srv.Close()

	n := doorbellNotification()
	n.Attachment = nil
	if err := New(srv.URL, time.Second, testLogger()).Dispatch(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDispatchRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"user":"invalid","errors":["user identifier is invalid"],"status":0,"request":"req-3"}`))
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second, testLogger()).Dispatch(context.Background(), doorbellNotification())
	if !errors.Is(err, core.ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "user identifier is invalid") || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected backend diagnostics in error, got %v", err)
	}
}

func TestDispatchUnparseableResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second, testLogger()).Dispatch(context.Background(), doorbellNotification())
	if !errors.Is(err, core.ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
}

func TestDispatchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := New(url, time.Second, testLogger()).Dispatch(context.Background(), doorbellNotification())
	if !errors.Is(err, core.ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
}

func TestDispatchAttachmentTooLarge(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	n := doorbellNotification()
	n.Attachment.Data = make([]byte, MaxAttachmentBytes+1)
	err := New(srv.URL, time.Second, testLogger()).Dispatch(context.Background(), n)
	if !errors.Is(err, core.ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}
	if called {
		t.Fatal("oversized attachment must not be sent")
	}
}
