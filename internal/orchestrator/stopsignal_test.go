package orchestrator

import (
	"testing"
	"time"
)

func TestStopSignalWaitTimesOutWithoutRaise(t *testing.T) {
	s := newStopSignal()
	start := time.Now()
	fired := s.Wait(30 * time.Millisecond)
	if fired {
		t.Fatal("expected Wait to time out, not report fired")
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("Wait returned before its timeout elapsed")
	}
}

func TestStopSignalWakesWaitersWithinOneTick(t *testing.T) {
	s := newStopSignal()
	done := make(chan bool, 1)

	go func() {
		done <- s.Wait(5 * time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	s.Raise()

	select {
	case fired := <-done:
		if !fired {
			t.Fatal("expected Wait to report fired after Raise")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Wait did not wake up promptly after Raise")
	}
}

func TestStopSignalRaiseIsIdempotent(t *testing.T) {
	s := newStopSignal()
	s.Raise()
	s.Raise() // must not panic on double-close
	if !s.Fired() {
		t.Fatal("expected Fired() true after Raise")
	}
}
