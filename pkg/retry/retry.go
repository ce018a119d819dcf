// Copyright 2025 walteh LLC
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

// Package retry holds the attempt bookkeeping shared by every retry loop that
// talks to the remote store.
package retry

import (
	"context"
	"math"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"gitlab.com/tozd/go/errors"
)

// 🔁 Policy builds a fresh delay source for one retry loop
type Policy func() backoff.BackOff

// 📈 Exponential doubles the delay after every failed attempt: base, 2*base, 4*base...
func Exponential(base time.Duration) Policy {
	return func() backoff.BackOff {
		b := &backoff.ExponentialBackOff{
			InitialInterval:     base,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         time.Duration(math.MaxInt64),
			MaxElapsedTime:      0,
			Stop:                backoff.Stop,
			Clock:               backoff.SystemClock,
		}
		b.Reset()
		return b
	}
}

// ⏸️ Fixed waits the same delay after every failed attempt
func Fixed(delay time.Duration) Policy {
	return func() backoff.BackOff {
		return backoff.NewConstantBackOff(delay)
	}
}

// 📊 State tracks a single retry loop. It is owned by the loop that created it
// and dropped on success or exhaustion.
type State struct {
	Attempt     uint
	MaxAttempts uint
	NextDelay   time.Duration

	delays backoff.BackOff
}

// 🏭 New starts a retry loop allowing at most maxAttempts attempts
func New(maxAttempts uint, policy Policy) *State {
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	return &State{
		MaxAttempts: maxAttempts,
		delays:      policy(),
	}
}

// ⏭️ Advance records a failed attempt and computes the delay before the next
// one. It returns false once no attempts remain.
func (s *State) Advance() bool {
	s.NextDelay = s.delays.NextBackOff()
	s.Attempt++
	if s.NextDelay == backoff.Stop {
		return false
	}
	return s.Attempt < s.MaxAttempts
}

// 😴 Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.Errorf("waiting %s before retry: %w", d, ctx.Err())
	case <-timer.C:
		return nil
	}
}
