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
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// NewClientID returns "<prefix>-<8 hex chars>", unique per process start so
// two bridges never kick each other off a broker.
func NewClientID(prefix string) string {
	if prefix == "" {
		prefix = "doorbell"
	}
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "-" + id[:8]
}

func RemoteID(r *http.Request) string {
	if clientID := r.Header.Get("X-Doorbell-Client-ID"); clientID != "" {
		return clientID
	}

	remoteAddr := r.RemoteAddr
	if remoteAddr == "" {
		return uuid.New().String()
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	if strings.Contains(host, ":") {
		if ip := net.ParseIP(host); ip != nil {
			host = ip.String()
		}
	}

	hash := sha256.Sum256([]byte(host))
	return hex.EncodeToString(hash[:])[:12]
}

// Redact hides the password of a URI before it reaches a log line.
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
