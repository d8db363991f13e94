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
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "/etc/doorbell/config.yaml"

type Config struct {
	Listener   ListenerConfig   `yaml:"listener"`
	Trigger    TriggerConfig    `yaml:"trigger"`
	Capture    CaptureConfig    `yaml:"capture"`
	Notify     NotifyConfig     `yaml:"notify"`
	Controller ControllerConfig `yaml:"controller"`
	History    HistoryConfig    `yaml:"history"`
	Admin      AdminConfig      `yaml:"admin"`
	Indicator  IndicatorConfig  `yaml:"indicator"`
	Log        LogConfig        `yaml:"log"`
}

type ListenerConfig struct {
	Name           string            `yaml:"name" validate:"required"`
	Type           string            `yaml:"type" validate:"required,oneof=mqtt mqtt5 rabbitmq amqp kafka nats solace webhook websocket"`
	URL            string            `yaml:"url"`
	Port           int               `yaml:"port" validate:"gte=0,lte=65535"`
	ClientID       string            `yaml:"client_id"`
	Username       string            `yaml:"username"`
	Password       string            `yaml:"password"`
	QoS            byte              `yaml:"qos" validate:"lte=2"`
	KeepAlive      time.Duration     `yaml:"keep_alive"`
	IgnoreRetained bool              `yaml:"ignore_retained"`
	Reconnect      ReconnectConfig   `yaml:"reconnect"`
	Config         map[string]string `yaml:"config"`
}

// Option returns a plugin specific setting from the listener's config map.
func (lc ListenerConfig) Option(key, fallback string) string {
	if v, ok := lc.Config[key]; ok && v != "" {
		return v
	}
	return fallback
}

func (lc ListenerConfig) IntOption(key string, fallback int) int {
	v, ok := lc.Config[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// IsServer reports whether the listener accepts inbound connections instead of
// dialling a broker.
func (lc ListenerConfig) IsServer() bool {
	return lc.Type == "webhook" || lc.Type == "websocket"
}

// UsesDottedNames reports whether the listener maps the trigger topic onto a
// dotted routing key, subject or topic name on the broker.
func (lc ListenerConfig) UsesDottedNames() bool {
	switch lc.Type {
	case "rabbitmq", "amqp", "kafka", "nats":
		return true
	}
	return false
}

type ReconnectConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	StableAfter     time.Duration `yaml:"stable_after"`
}

type TriggerConfig struct {
	Topic   string `yaml:"topic" validate:"required"`
	Payload string `yaml:"payload" validate:"required"`
}

type CaptureConfig struct {
	Type    string        `yaml:"type" validate:"required,oneof=rtsp snapshot"`
	URL     string        `yaml:"url" validate:"required"`
	Encoder string        `yaml:"encoder" validate:"omitempty,oneof=jpeg opencv"`
	Quality int           `yaml:"quality" validate:"gte=0,lte=100"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type NotifyConfig struct {
	Type           string        `yaml:"type" validate:"required,oneof=pushover ntfy"`
	URL            string        `yaml:"url" validate:"omitempty,url"`
	User           string        `yaml:"user" validate:"required"`
	Token          string        `yaml:"token" validate:"required_if=Type pushover"`
	Title          string        `yaml:"title" validate:"required"`
	Message        string        `yaml:"message" validate:"required"`
	AttachmentName string        `yaml:"attachment_name" validate:"required"`
	Timeout        time.Duration `yaml:"timeout" validate:"gt=0"`
	Breaker        BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

type ControllerConfig struct {
	QueueSize int `yaml:"queue_size" validate:"gte=1"`
}

// dispatchGrace lets the notifier's own HTTP timeout fire before the
// controller abandons the dispatch.
const dispatchGrace = time.Second

// DispatchTimeout bounds one dispatch in the controller. It follows
// notify.timeout so there is a single knob for the notification round trip.
func (n NotifyConfig) DispatchTimeout() time.Duration {
	return n.Timeout + dispatchGrace
}

type HistoryConfig struct {
	Type       string `yaml:"type" validate:"required,oneof=memory redis sqlite"`
	Size       int    `yaml:"size" validate:"gte=1"`
	RedisAddr  string `yaml:"redis_addr" validate:"required_if=Type redis"`
	RedisKey   string `yaml:"redis_key"`
	SQLitePath string `yaml:"sqlite_path" validate:"required_if=Type sqlite"`
}

type AdminConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port" validate:"gte=0,lte=65535"`
}

type IndicatorConfig struct {
	Type      string `yaml:"type" validate:"required,oneof=none gpio"`
	Pin       int    `yaml:"pin" validate:"gte=0"`
	ActiveLow bool   `yaml:"active_low"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

func Default() *Config {
	return &Config{
		Listener: ListenerConfig{
			Name:      "doorbell",
			Type:      "mqtt",
			URL:       "tcp://localhost:1883",
			ClientID:  "doorbell-bridge",
			KeepAlive: 60 * time.Second,
			Reconnect: ReconnectConfig{
				InitialInterval: time.Second,
				MaxInterval:     time.Minute,
				StableAfter:     30 * time.Second,
			},
		},
		Trigger: TriggerConfig{
			Topic:   "doorbell/ring",
			Payload: "ON",
		},
		Capture: CaptureConfig{
			Type:    "rtsp",
			Encoder: "jpeg",
			Quality: 9,
			Timeout: 5 * time.Second,
		},
		Notify: NotifyConfig{
			Type:           "pushover",
			Title:          "Doorbell",
			Message:        "Doorbell (Image)",
			AttachmentName: "doorbell.jpg",
			Timeout:        10 * time.Second,
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				OpenTimeout:      time.Minute,
			},
		},
		Controller: ControllerConfig{
			QueueSize: 8,
		},
		History: HistoryConfig{
			Type:     "memory",
			Size:     100,
			RedisKey: "doorbell:history",
		},
		Admin: AdminConfig{
			Enabled: true,
			Port:    9090,
		},
		Indicator: IndicatorConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Resolve is the full start-up path: file, environment overrides, validation.
// A missing file is not an error when the environment supplies everything.
func Resolve(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = Default()
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
