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
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

const DefaultRedisKey = "doorbell:history"

// RedisStore keeps trigger records in a sorted set scored by finish time so
// several bridges can share one history.
type RedisStore struct {
	client *redis.Client
	key    string
	size   int
	logger *slog.Logger
}

func NewRedisStore(addr, key string, size int, logger *slog.Logger) (*RedisStore, error) {
	if key == "" {
		key = DefaultRedisKey
	}
	if size <= 0 {
		size = DefaultSize
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return &RedisStore{client: client, key: key, size: size, logger: logger}, nil
}

func (r *RedisStore) Record(ctx context.Context, rec core.TriggerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trigger record: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.ZAdd(ctx, r.key, redis.Z{
		Score:  float64(rec.FinishedAt.UnixNano()),
		Member: data,
	})
	pipe.ZRemRangeByRank(ctx, r.key, 0, int64(-r.size-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record: %w", err)
	}
	return nil
}

func (r *RedisStore) Recent(ctx context.Context, limit int) ([]core.TriggerRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	entries, err := r.client.ZRevRange(ctx, r.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis recent: %w", err)
	}

	out := make([]core.TriggerRecord, 0, len(entries))
	for _, entry := range entries {
		var rec core.TriggerRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil {
			r.logger.Warn("skipping malformed history entry", "key", r.key, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
