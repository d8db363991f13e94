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

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

// Source is an open video source. Read returns the first frame available.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

type Opener interface {
	Open(ctx context.Context, uri string) (Source, error)
}

type OpenerFunc func(ctx context.Context, uri string) (Source, error)

func (f OpenerFunc) Open(ctx context.Context, uri string) (Source, error) {
	return f(ctx, uri)
}

type Encoder interface {
	Encode(img image.Image, quality int) ([]byte, error)
	ContentType() string
}

type Capturer struct {
	uri      string
	opener   Opener
	encoder  Encoder
	quality  atomic.Int32
	// inFlight is held from Open until the source is closed, which can
	// outlive a Capture call whose ctx expired.
	inFlight atomic.Bool
	logger   *slog.Logger
}

func New(uri string, opener Opener, encoder Encoder, quality int, logger *slog.Logger) *Capturer {
	c := &Capturer{
		uri:     uri,
		opener:  opener,
		encoder: encoder,
		logger:  logger,
	}
	c.SetQuality(quality)
	return c
}

func (c *Capturer) SetQuality(q int) {
	c.quality.Store(int32(q))
}

func (c *Capturer) Quality() int {
	return int(c.quality.Load())
}

type result struct {
	frame *core.Frame
	err   error
}

// Capture opens the source, reads one frame, encodes it and closes the source.
// Opening and reading run on a goroutine that owns the source: if ctx expires
// first the call returns immediately and the goroutine closes the source once
// the blocking driver call comes back. Until then further calls fail with
// ErrCaptureUnavailable so at most one handle to the camera is ever open.
func (c *Capturer) Capture(ctx context.Context) (*core.Frame, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: previous capture still releasing the source", core.ErrCaptureUnavailable)
	}

	start := time.Now()
	quality := c.Quality()

	var opened atomic.Bool
	done := make(chan result, 1)

	go func() {
		defer c.inFlight.Store(false)

		src, err := c.opener.Open(ctx, c.uri)
		if err != nil {
			done <- result{err: fmt.Errorf("%w: %w", core.ErrCaptureUnavailable, err)}
			return
		}
		opened.Store(true)
		defer func() {
			if cerr := src.Close(); cerr != nil {
				c.logger.Warn("close video source failed", "uri", core.Redact(c.uri), "error", cerr)
			}
		}()

		img, err := src.Read(ctx)
		if err != nil {
			done <- result{err: fmt.Errorf("%w: %w", core.ErrNoFrame, err)}
			return
		}
		if img == nil || img.Bounds().Empty() {
			done <- result{err: fmt.Errorf("%w: empty frame", core.ErrNoFrame)}
			return
		}

		data, err := c.encoder.Encode(img, quality)
		if err != nil {
			done <- result{err: fmt.Errorf("%w: %w", core.ErrEncode, err)}
			return
		}
		if len(data) == 0 {
			done <- result{err: fmt.Errorf("%w: encoder produced no bytes", core.ErrEncode)}
			return
		}

		b := img.Bounds()
		done <- result{frame: &core.Frame{
			Width:       b.Dx(),
			Height:      b.Dy(),
			Data:        data,
			ContentType: c.encoder.ContentType(),
			CapturedAt:  time.Now().UTC(),
		}}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		c.logger.Debug("frame captured",
			"width", r.frame.Width,
			"height", r.frame.Height,
			"bytes", len(r.frame.Data),
			"quality", quality,
			"elapsed", time.Since(start),
		)
		return r.frame, nil
	case <-ctx.Done():
		if opened.Load() {
			return nil, fmt.Errorf("%w: %w", core.ErrNoFrame, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", core.ErrCaptureUnavailable, ctx.Err())
	}
}

// IsTimeout reports whether a capture error came from the deadline rather
// than from the source itself.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
