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
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Listener.IsServer() {
		if c.Listener.Port == 0 {
			return fmt.Errorf("invalid config: listener %q of type %s needs a port", c.Listener.Name, c.Listener.Type)
		}
	} else if c.Listener.URL == "" {
		return fmt.Errorf("invalid config: listener %q of type %s needs a url", c.Listener.Name, c.Listener.Type)
	}
	if c.Listener.UsesDottedNames() && strings.Contains(c.Trigger.Topic, ".") {
		return fmt.Errorf("invalid config: trigger topic %q contains '.', which %s listeners use as the level separator", c.Trigger.Topic, c.Listener.Type)
	}
	if c.Notify.Type == "ntfy" && c.Notify.URL == "" {
		return errors.New("invalid config: ntfy notifier needs a server url")
	}
	if c.Admin.Enabled && c.Admin.Port == 0 {
		return errors.New("invalid config: admin server enabled without a port")
	}
	return nil
}
