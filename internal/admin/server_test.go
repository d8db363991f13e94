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

package admin

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/history"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthAndReady(t *testing.T) {
	connected := false
	srv := New(0, func() bool { return connected }, nil, nil, testLogger())
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz while disconnected: expected 503, got %d", rec.Code)
	}

	connected = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz while connected: expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(0, nil, nil, nil, testLogger()).Routes()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatal("expected default prometheus collectors in output")
	}
}

func TestHistoryEndpoint(t *testing.T) {
	store := history.NewMemoryStore(10)
	for _, id := range []string{"a", "b", "c"} {
		store.Record(context.Background(), core.TriggerRecord{ID: id, Outcome: core.OutcomeDelivered})
	}
	h := New(0, nil, store, nil, testLogger()).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []core.TriggerRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected history: %+v", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestHistoryWithoutStore(t *testing.T) {
	h := New(0, nil, nil, nil, testLogger()).Routes()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %q", rec.Body.String())
	}
}

func TestEventsStream(t *testing.T) {
	b := NewBroadcaster()
	ts := httptest.NewServer(New(0, nil, nil, b, testLogger()).Routes())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.Publish(core.TriggerRecord{ID: "t-1", Outcome: core.OutcomeCaptureFailed})

	reader := bufio.NewReader(resp.Body)
	var dataLine string
	for dataLine == "" {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
		}
	}

	var got core.TriggerRecord
	if err := json.Unmarshal([]byte(dataLine), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.ID != "t-1" || got.Outcome != core.OutcomeCaptureFailed {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	ch, unsubscribe := b.Subscribe()
	if b.Clients() != 1 {
		t.Fatalf("expected 1 client, got %d", b.Clients())
	}
	unsubscribe()
	unsubscribe()
	if b.Clients() != 0 {
		t.Fatalf("expected 0 clients, got %d", b.Clients())
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel")
	}
	b.Publish(core.TriggerRecord{ID: "after"})
}

func TestBroadcasterSkipsSlowClient(t *testing.T) {
	b := NewBroadcaster()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	for i := 0; i < 100; i++ {
		b.Publish(core.TriggerRecord{ID: "x"})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("expected full buffer, got %d/%d", len(ch), cap(ch))
	}
}
