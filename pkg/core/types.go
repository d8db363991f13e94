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

import "time"

type Outcome string

const (
	OutcomeDelivered      Outcome = "delivered"
	OutcomeCaptureFailed  Outcome = "capture_failed"
	OutcomeDispatchFailed Outcome = "dispatch_failed"
	OutcomeDropped        Outcome = "dropped"
)

// RingEvent is a trigger accepted by the controller. The payload is copied
// out of the listener's buffer before the event is queued.
type RingEvent struct {
	ID         string
	Listener   string
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

type Frame struct {
	Width       int
	Height      int
	Data        []byte
	ContentType string
	CapturedAt  time.Time
}

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Notification struct {
	Recipient  string
	Token      string
	Title      string
	Message    string
	Attachment *Attachment
}

func (n Notification) HasAttachment() bool {
	return n.Attachment != nil && len(n.Attachment.Data) > 0
}

type TriggerRecord struct {
	ID         string    `json:"id"`
	Listener   string    `json:"listener"`
	Topic      string    `json:"topic"`
	ReceivedAt time.Time `json:"received_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	ImageBytes int       `json:"image_bytes"`
}

func (r TriggerRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.ReceivedAt)
}
