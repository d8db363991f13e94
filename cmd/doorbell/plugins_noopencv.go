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

//go:build !opencv

package main

import (
	"errors"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/capture"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/config"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/plugins"
)

var errNoOpenCV = errors.New("binary built without OpenCV, rebuild with -tags opencv or use capture.type snapshot")

func registerOpenCV(reg *plugins.Registry) {
	reg.RegisterOpener("rtsp", func(config.CaptureConfig) (capture.Opener, error) {
		return nil, errNoOpenCV
	})
	reg.RegisterEncoder("opencv", func() (capture.Encoder, error) { return nil, errNoOpenCV })
}
