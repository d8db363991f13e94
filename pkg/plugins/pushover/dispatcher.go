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
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

const (
	DefaultURL = "https://api.pushover.net/1/messages.json"

	// MaxAttachmentBytes is the largest attachment the Pushover API accepts.
	MaxAttachmentBytes = 5 * 1024 * 1024
)

type response struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

type Dispatcher struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func New(url string, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if url == "" {
		url = DefaultURL
	}
	return &Dispatcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (d *Dispatcher) Name() string { return "pushover" }

func (d *Dispatcher) Dispatch(ctx context.Context, n core.Notification) error {
	if n.HasAttachment() && len(n.Attachment.Data) > MaxAttachmentBytes {
		return fmt.Errorf("%w: attachment of %d bytes exceeds pushover limit", core.ErrDispatchFailed, len(n.Attachment.Data))
	}

	body, contentType, err := encodeForm(n)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", core.ErrDispatchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, body)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrDispatchFailed, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", core.ErrDispatchFailed, err)
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return fmt.Errorf("%w: status %d: unparseable response %q", core.ErrDispatchFailed, resp.StatusCode, truncate(raw, 200))
	}
	if resp.StatusCode != http.StatusOK || r.Status != 1 {
		return fmt.Errorf("%w: status %d request %s: %s", core.ErrDispatchFailed, resp.StatusCode, r.Request, strings.Join(r.Errors, "; "))
	}

	d.logger.Debug("pushover notification accepted", "request", r.Request, "attachment", n.HasAttachment())
	return nil
}

func encodeForm(n core.Notification) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ key, value string }{
		{"token", n.Token},
		{"user", n.Recipient},
		{"title", n.Title},
		{"message", n.Message},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.key, f.value); err != nil {
			return nil, "", err
		}
	}

	if n.HasAttachment() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachment"; filename=%q`, n.Attachment.Name))
		h.Set("Content-Type", n.Attachment.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(n.Attachment.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
