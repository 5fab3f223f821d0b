package backoff

import (
	"testing"
	"time"
)

func TestWait_DoublingAndCap(t *testing.T) {
	s := New(60*time.Second, 1800*time.Second)

	want := []time.Duration{
		60 * time.Second,
		120 * time.Second,
		240 * time.Second,
		480 * time.Second,
		960 * time.Second,
		1800 * time.Second, // cap reached at attempt 6
		1800 * time.Second,
		1800 * time.Second,
	}

	for i, w := range want {
		attempt := i + 1
		if got := s.Wait(attempt); got != w {
			t.Errorf("Wait(%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestWait_Monotonic(t *testing.T) {
	s := New(2*time.Second, 5*time.Minute)

	prev := time.Duration(0)
	for attempt := 1; attempt <= 20; attempt++ {
		got := s.Wait(attempt)
		if got < prev {
			t.Fatalf("Wait(%d) = %v decreased from %v", attempt, got, prev)
		}
		if got > s.Max {
			t.Fatalf("Wait(%d) = %v exceeds cap %v", attempt, got, s.Max)
		}
		prev = got
	}
}

func TestWait_AttemptFloor(t *testing.T) {
	s := New(time.Second, time.Minute)
	if got := s.Wait(0); got != time.Second {
		t.Errorf("Wait(0) = %v, want %v", got, time.Second)
	}
}

func TestWait_JitterNeverLowersBase(t *testing.T) {
	s := Schedule{Initial: time.Second, Max: time.Minute, Jitter: 0.25}

	for i := 0; i < 100; i++ {
		got := s.Wait(3)
		base := 4 * time.Second
		if got < base || got >= base+base/4+time.Millisecond {
			t.Fatalf("jittered Wait(3) = %v outside [%v, %v)", got, base, base+base/4)
		}
	}
}
