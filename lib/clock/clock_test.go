// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := Fake(start)

	if got := fake.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	fake.Advance(90 * time.Second)
	if got := Since(fake, start); got != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", got)
	}
}

func TestReal_NotBackwards(t *testing.T) {
	realClock := Real()
	first := realClock.Now()
	if Since(realClock, first) < 0 {
		t.Error("Since(Real()) went backwards")
	}
}
