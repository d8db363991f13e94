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
	"fmt"
	"log/slog"

	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/config"
	"github.com/wso2/api-platform/gateway/doorbell-bridge/pkg/core"
)

const DefaultSize = 100

// NewStore builds the history backend named by cfg.Type.
func NewStore(cfg config.HistoryConfig, logger *slog.Logger) (core.HistoryStore, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(cfg.Size), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisKey, cfg.Size, logger)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, cfg.Size)
	default:
		return nil, fmt.Errorf("%w: history %q", core.ErrUnknownType, cfg.Type)
	}
}
