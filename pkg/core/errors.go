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

package core

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionFailure  = errors.New("connection failure")
	ErrCaptureUnavailable = fmt.Errorf("%w: capture source unavailable", ErrConnectionFailure)
	ErrNoFrame            = errors.New("no frame")
	ErrEncode             = errors.New("encode error")
	ErrDispatchFailed     = errors.New("dispatch failed")
	ErrUnknownType        = errors.New("unknown type")
)

// OutcomeFor maps a pipeline error onto the outcome recorded for a trigger.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDelivered
	case errors.Is(err, ErrDispatchFailed):
		return OutcomeDispatchFailed
	default:
		return OutcomeCaptureFailed
	}
}
