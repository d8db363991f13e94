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

package supervisor

import "context"

// Func adapts a blocking function to suture.Service. Suture restarts the
// function whenever it returns while the context is still live.
type Func struct {
	name string
	fn   func(ctx context.Context) error
}

func NewFunc(name string, fn func(ctx context.Context) error) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Serve(ctx context.Context) error {
	err := f.fn(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (f *Func) String() string { return f.name }
