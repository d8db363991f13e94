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

package gpio

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// Indicator drives a ring LED or relay on a Raspberry Pi pin while a trigger
// is being handled. Requires /dev/gpiomem or root.
type Indicator struct {
	pin       rpio.Pin
	activeLow bool
	write     func(rpio.Pin, rpio.State)
	release   func() error

	mu sync.Mutex
	on bool
}

func Open(pin int, activeLow bool) (*Indicator, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}
	p := rpio.Pin(pin)
	p.Output()

	ind := newIndicator(p, activeLow, rpio.WritePin, rpio.Close)
	if err := ind.Set(false); err != nil {
		rpio.Close()
		return nil, err
	}
	return ind, nil
}

func newIndicator(pin rpio.Pin, activeLow bool, write func(rpio.Pin, rpio.State), release func() error) *Indicator {
	return &Indicator{pin: pin, activeLow: activeLow, write: write, release: release}
}

func (i *Indicator) level(on bool) rpio.State {
	if on != i.activeLow {
		return rpio.High
	}
	return rpio.Low
}

func (i *Indicator) Set(on bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.write(i.pin, i.level(on))
	i.on = on
	return nil
}

func (i *Indicator) On() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.on
}

// Close switches the output off and returns the pin to input, its safe state.
func (i *Indicator) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.write(i.pin, i.level(false))
	i.on = false
	if i.release == nil {
		return nil
	}
	i.pin.Input()
	return i.release()
}
