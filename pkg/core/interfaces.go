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

import "context"

// MessageHandler receives every message a listener sees on its subscription.
// Implementations must not block.
type MessageHandler func(topic string, payload []byte)

type Listener interface {
	Name() string
	Type() string
	Start(ctx context.Context, handler MessageHandler) error
	Stop(ctx context.Context) error
	Connected() bool
}

type Capturer interface {
	Capture(ctx context.Context) (*Frame, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

type HistoryStore interface {
	Record(ctx context.Context, rec TriggerRecord) error
	Recent(ctx context.Context, limit int) ([]TriggerRecord, error)
	Close() error
}

type Indicator interface {
	Set(on bool) error
	Close() error
}
