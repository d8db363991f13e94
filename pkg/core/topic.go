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

import "strings"

// DottedToTopic converts a broker routing key or subject ("doorbell.ring")
// into the slash separated topic form used by the trigger predicate. The two
// conversions only round-trip for topics without '.' in a level.
func DottedToTopic(key string) string {
	return strings.ReplaceAll(key, ".", "/")
}

func TopicToDotted(topic string) string {
	return strings.ReplaceAll(topic, "/", ".")
}
