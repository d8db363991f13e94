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
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

// SQLiteStore persists trigger records across restarts.
type SQLiteStore struct {
	conn *sql.DB
	size int
	mu   sync.Mutex
}

func NewSQLiteStore(path string, size int) (*SQLiteStore, error) {
	if size <= 0 {
		size = DefaultSize
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &SQLiteStore{conn: conn, size: size}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS triggers (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		listener TEXT NOT NULL,
		topic TEXT NOT NULL,
		received_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		image_bytes INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_triggers_finished_at ON triggers(finished_at);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLiteStore) Record(ctx context.Context, rec core.TriggerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO triggers (id, listener, topic, received_at, finished_at, outcome, error, image_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Listener, rec.Topic,
		rec.ReceivedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(rec.Outcome), rec.Error, rec.ImageBytes,
	)
	if err != nil {
		return fmt.Errorf("insert trigger record: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM triggers WHERE seq NOT IN (SELECT seq FROM triggers ORDER BY seq DESC LIMIT ?)`,
		s.size,
	)
	if err != nil {
		return fmt.Errorf("prune trigger records: %w", err)
	}
	return tx.Commit()
}

// Recent returns records newest first, in insertion order.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]core.TriggerRecord, error) {
	if limit <= 0 {
		limit = s.size
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, listener, topic, received_at, finished_at, outcome, error, image_bytes
		 FROM triggers ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trigger records: %w", err)
	}
	defer rows.Close()

	var out []core.TriggerRecord
	for rows.Next() {
		var (
			rec                core.TriggerRecord
			received, finished string
			outcome            string
		)
		if err := rows.Scan(&rec.ID, &rec.Listener, &rec.Topic, &received, &finished, &outcome, &rec.Error, &rec.ImageBytes); err != nil {
			return nil, fmt.Errorf("scan trigger record: %w", err)
		}
		rec.Outcome = core.Outcome(outcome)
		rec.ReceivedAt, _ = time.Parse(time.RFC3339Nano, received)
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
