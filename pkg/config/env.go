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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
)

type LookupFunc func(key string) (string, bool)

// LoadDotEnv populates the process environment from a .env file. Variables
// that are already set win, and a missing file is ignored.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays DOORBELL_* variables onto cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("DOORBELL_LISTENER_TYPE", &cfg.Listener.Type)
	str("DOORBELL_BROKER_URL", &cfg.Listener.URL)
	str("DOORBELL_BROKER_USERNAME", &cfg.Listener.Username)
	str("DOORBELL_BROKER_PASSWORD", &cfg.Listener.Password)
	str("DOORBELL_TOPIC", &cfg.Trigger.Topic)
	str("DOORBELL_PAYLOAD", &cfg.Trigger.Payload)
	str("DOORBELL_CAMERA_URL", &cfg.Capture.URL)
	str("DOORBELL_NOTIFY_USER", &cfg.Notify.User)
	str("DOORBELL_NOTIFY_TOKEN", &cfg.Notify.Token)
	str("DOORBELL_LOG_LEVEL", &cfg.Log.Level)

	if err := num("DOORBELL_JPEG_QUALITY", &cfg.Capture.Quality); err != nil {
		return err
	}
	if err := num("DOORBELL_ADMIN_PORT", &cfg.Admin.Port); err != nil {
		return err
	}
	return nil
}
