// Copyright 2025 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ktime provides the clocks the kernel reads time from.
package ktime

import (
	"sync"
	"time"
)

// Clock is a source of the current time, in microseconds since an
// unspecified epoch.
type Clock interface {
	// NowMicros returns the current time. It never decreases.
	NowMicros() uint64
}

// MonotonicClock is a Clock backed by the host monotonic clock. Its epoch is
// the time it was created.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a MonotonicClock starting at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// NowMicros implements Clock.NowMicros.
func (c *MonotonicClock) NowMicros() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

// ManualClock is a Clock that only moves when told to. It is used in tests.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

// NowMicros implements Clock.NowMicros.
func (c *ManualClock) NowMicros() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d, truncated to microseconds. Negative
// durations are ignored.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += uint64(d.Microseconds())
}

// Set sets the clock to us, if that is not earlier than the current time.
func (c *ManualClock) Set(us uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = max(c.now, us)
}
