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

//go:build opencv

package opencv

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/capture"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

// Opener opens network streams through OpenCV's FFmpeg backend.
type Opener struct {
	api gocv.VideoCaptureAPI
}

func NewOpener() *Opener {
	return &Opener{api: gocv.VideoCaptureFFmpeg}
}

func (o *Opener) Open(_ context.Context, uri string) (capture.Source, error) {
	vc, err := gocv.OpenVideoCaptureWithAPI(uri, o.api)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", core.Redact(uri), err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open %s: stream not opened", core.Redact(uri))
	}
	return &source{vc: vc}, nil
}

type source struct {
	vc *gocv.VideoCapture
}

// Read returns the first decodable frame. The driver call cannot be
// interrupted; the caller bounds it from outside.
func (s *source) Read(_ context.Context) (image.Image, error) {
	mat := gocv.NewMat()
	defer mat.Close()

	if ok := s.vc.Read(&mat); !ok || mat.Empty() {
		return nil, errors.New("no frame read from stream")
	}
	return mat.ToImage()
}

func (s *source) Close() error {
	return s.vc.Close()
}

// Encoder encodes through cv::imencode.
type Encoder struct{}

func (Encoder) ContentType() string { return "image/jpeg" }

func (Encoder) Encode(img image.Image, quality int) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
