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

package history

import (
	"context"
	"sync"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

// MemoryStore keeps the most recent trigger records in a fixed ring.
type MemoryStore struct {
	mu      sync.RWMutex
	records []core.TriggerRecord
	next    int
	full    bool
}

func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = DefaultSize
	}
	return &MemoryStore{records: make([]core.TriggerRecord, size)}
}

func (m *MemoryStore) Record(_ context.Context, rec core.TriggerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[m.next] = rec
	m.next = (m.next + 1) % len(m.records)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to limit records, newest first. A non-positive limit
// returns everything held.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]core.TriggerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := m.next
	if m.full {
		count = len(m.records)
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]core.TriggerRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (m.next - 1 - i + len(m.records)) % len(m.records)
		out = append(out, m.records[idx])
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
