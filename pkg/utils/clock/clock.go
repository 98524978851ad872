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
	"time"

	"k8s.io/utils/clock"
)

// Clock is a source of time and waits. Campaign controllers take it as dependency so waits
// can be interrupted and replaced in tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for given duration or until context is done.
	// Returns context error when interrupted.
	Sleep(ctx context.Context, d time.Duration) error
}

// timerClock makes waits of clock.Clock interruptible.
type timerClock struct {
	clock clock.Clock
}

// New returns Clock backed by the system time.
func New() Clock {
	return Wrap(clock.RealClock{})
}

// Wrap returns Clock which waits on timers of given clock.
func Wrap(c clock.Clock) Clock {
	return timerClock{clock: c}
}

func (c timerClock) Now() time.Time {
	return c.clock.Now()
}

func (c timerClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
