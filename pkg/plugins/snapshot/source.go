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

package snapshot

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/capture"
)

// Opener fetches a still image over HTTP. Many IP cameras serve one next to
// their RTSP stream; credentials in the URL are sent as basic auth.
type Opener struct {
	client *http.Client
}

func NewOpener(timeout time.Duration) *Opener {
	return &Opener{client: &http.Client{Timeout: timeout}}
}

func (o *Opener) Open(ctx context.Context, uri string) (capture.Source, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot url: %w", err)
	}
	user := u.User
	u.User = nil

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if user != nil {
		pass, _ := user.Password()
		req.SetBasicAuth(user.Username(), pass)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("snapshot endpoint returned %s", resp.Status)
	}
	return &source{body: resp.Body}, nil
}

type source struct {
	body io.ReadCloser
}

func (s *source) Read(ctx context.Context) (image.Image, error) {
	img, _, err := image.Decode(io.LimitReader(s.body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return img, nil
}

func (s *source) Close() error {
	return s.body.Close()
}
