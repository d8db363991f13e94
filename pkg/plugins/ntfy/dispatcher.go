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
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

type errorResponse struct {
	Code  int    `json:"code"`
	HTTP  int    `json:"http"`
	Error string `json:"error"`
}

type publishResponse struct {
	ID string `json:"id"`
}

// Dispatcher publishes to an ntfy server. The notification's Recipient is the
// ntfy topic and Token, when set, is sent as a bearer token.
type Dispatcher struct {
	server string
	client *http.Client
	logger *slog.Logger
}

func New(server string, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		server: strings.TrimRight(server, "/"),
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (d *Dispatcher) Name() string { return "ntfy" }

func (d *Dispatcher) Dispatch(ctx context.Context, n core.Notification) error {
	target := d.server + "/" + url.PathEscape(n.Recipient)

	var body io.Reader = strings.NewReader(n.Message)
	if n.HasAttachment() {
		body = bytes.NewReader(n.Attachment.Data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, body)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrDispatchFailed, err)
	}
	req.Header.Set("Title", n.Title)
	if n.HasAttachment() {
		req.Header.Set("Message", n.Message)
		req.Header.Set("Filename", n.Attachment.Name)
		req.Header.Set("Content-Type", n.Attachment.ContentType)
	}
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			return fmt.Errorf("%w: status %d code %d: %s", core.ErrDispatchFailed, resp.StatusCode, e.Code, e.Error)
		}
		return fmt.Errorf("%w: status %d", core.ErrDispatchFailed, resp.StatusCode)
	}

	var p publishResponse
	_ = json.Unmarshal(raw, &p)
	d.logger.Debug("ntfy notification published", "id", p.ID, "topic", n.Recipient)
	return nil
}
