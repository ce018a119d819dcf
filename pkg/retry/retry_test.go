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

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialDelays(t *testing.T) {
	st := New(10, Exponential(3*time.Second))

	var prev time.Duration
	for k := 0; k < 8; k++ {
		require.True(t, st.Advance(), "attempt %d should allow a retry", k)
		want := time.Duration(1<<uint(k)) * 3 * time.Second
		assert.Equal(t, want, st.NextDelay, "delay before attempt %d", k+1)
		assert.Greater(t, st.NextDelay, prev, "delays must strictly increase")
		prev = st.NextDelay
	}
}

func TestFixedDelays(t *testing.T) {
	st := New(4, Fixed(2*time.Second))

	for i := 0; i < 3; i++ {
		require.True(t, st.Advance())
		assert.Equal(t, 2*time.Second, st.NextDelay)
	}
	assert.False(t, st.Advance(), "fourth failure exhausts four attempts")
	assert.Equal(t, uint(4), st.Attempt)
}

func TestStateBounds(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts uint
		wantRetries int
	}{
		{name: "single_attempt", maxAttempts: 1, wantRetries: 0},
		{name: "zero_means_one", maxAttempts: 0, wantRetries: 0},
		{name: "three_attempts", maxAttempts: 3, wantRetries: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := New(tt.maxAttempts, Fixed(time.Millisecond))
			retries := 0
			for st.Advance() {
				retries++
			}
			assert.Equal(t, tt.wantRetries, retries)
		})
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	require.NoError(t, Sleep(context.Background(), time.Millisecond))
}
