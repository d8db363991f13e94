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

package trigger

import (
	"bytes"
	"sync/atomic"
)

type rule struct {
	topic   string
	payload []byte
}

// Predicate decides whether a message is a doorbell ring. Topic and payload
// are compared byte for byte; "on" or "ON\n" do not match "ON".
type Predicate struct {
	rule atomic.Pointer[rule]
}

func NewPredicate(topic, payload string) *Predicate {
	p := &Predicate{}
	p.Replace(topic, payload)
	return p
}

func (p *Predicate) Match(topic string, payload []byte) bool {
	r := p.rule.Load()
	return topic == r.topic && bytes.Equal(payload, r.payload)
}

func (p *Predicate) Topic() string {
	return p.rule.Load().topic
}

func (p *Predicate) Payload() string {
	return string(p.rule.Load().payload)
}

// Replace swaps the rule atomically. The listener's subscription is not
// touched, so only a payload change takes effect without a restart.
func (p *Predicate) Replace(topic, payload string) {
	p.rule.Store(&rule{topic: topic, payload: []byte(payload)})
}
