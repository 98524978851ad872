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

package lightning

import (
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
)

// DefaultMaxAttempts is total number of loader attempts (first one and three retries).
const DefaultMaxAttempts = 4

// RetryStrategy decides how failed loads are retried.
type RetryStrategy struct {
	// MaxAttempts is total number of attempts including the first one. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// Delay between attempts, passed to DelayType.
	Delay     time.Duration
	DelayType retry.DelayTypeFunc
	// Retryable decides if failure of attempt is worth another one.
	Retryable func(error) bool
}

// DefaultRetryStrategy retries every failure immediately, four attempts in total.
func DefaultRetryStrategy() RetryStrategy {
	return RetryStrategy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       0,
		DelayType:   retry.FixedDelay,
		Retryable:   func(error) bool { return true },
	}
}

// validate refuses bounds which retry-go would treat as unlimited.
func (s RetryStrategy) validate() error {
	if s.MaxAttempts < 0 {
		return errors.Errorf("number of load attempts must be positive, got %d", s.MaxAttempts)
	}
	return nil
}

func (s RetryStrategy) withDefaults() RetryStrategy {
	defaults := DefaultRetryStrategy()
	if s.MaxAttempts == 0 {
		s.MaxAttempts = defaults.MaxAttempts
	}
	if s.DelayType == nil {
		s.DelayType = defaults.DelayType
	}
	if s.Retryable == nil {
		s.Retryable = defaults.Retryable
	}
	return s
}
