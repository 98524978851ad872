// Copyright (c) 2017 Intel Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package clock

import (
	"context"
	"sync"
	"time"

	clocktesting "k8s.io/utils/clock/testing"
)

// Fake is a Clock which never blocks. Every requested wait steps the underlying fake clock
// and is journaled.
type Fake struct {
	clock  *clocktesting.FakeClock
	mutex  sync.Mutex
	sleeps []time.Duration
	// OnSleep is called (without lock held) before each journaled wait.
	OnSleep func(d time.Duration)
}

// NewFake returns Fake clock starting at given time.
func NewFake(start time.Time) *Fake {
	return &Fake{clock: clocktesting.NewFakeClock(start)}
}

// Now returns current fake time.
func (f *Fake) Now() time.Time {
	return f.clock.Now()
}

// Sleep journals the wait and steps the fake time unless context is already done.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.OnSleep != nil {
		f.OnSleep(d)
	}

	f.mutex.Lock()
	f.sleeps = append(f.sleeps, d)
	f.mutex.Unlock()
	f.clock.Step(d)
	return ctx.Err()
}

// Sleeps returns all waits requested so far.
func (f *Fake) Sleeps() []time.Duration {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]time.Duration{}, f.sleeps...)
}
