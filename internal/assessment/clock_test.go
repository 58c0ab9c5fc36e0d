package assessment

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTime is a manually advanced time source.
type fakeTime struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeTime() *fakeTime {
	return &fakeTime{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

const testTick = time.Millisecond

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestClockExpiresOnce(t *testing.T) {
	ft := newFakeTime()
	c := NewClock(2*time.Second, WithNow(ft.Now), WithTickInterval(testTick))

	var expiries atomic.Int32
	expired := make(chan struct{})
	c.OnExpire(func() {
		if expiries.Add(1) == 1 {
			close(expired)
		}
	})

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(); err == nil {
		t.Fatal("second Start should fail")
	}

	ft.Advance(2 * time.Second)
	waitFor(t, expired, "expiry")
	waitFor(t, c.exited(), "tick loop exit")

	if got := expiries.Load(); got != 1 {
		t.Fatalf("expected exactly one expiry, got %d", got)
	}
	if !c.fired() {
		t.Error("Expired() should report true")
	}
	if c.Remaining() != 0 {
		t.Errorf("expected zero remaining, got %v", c.Remaining())
	}
	if c.Elapsed() != 2*time.Second {
		t.Errorf("expected elapsed capped at 2s, got %v", c.Elapsed())
	}
}

func TestClockExpiresAfterMissedTicks(t *testing.T) {
	ft := newFakeTime()
	c := NewClock(90*time.Second, WithNow(ft.Now), WithTickInterval(testTick))

	expired := make(chan struct{})
	c.OnExpire(func() { close(expired) })
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// A suspended process wakes up long past the deadline.
	ft.Advance(10 * time.Minute)
	waitFor(t, expired, "expiry after suspension")
}

func TestClockRemainingNeverIncreases(t *testing.T) {
	ft := newFakeTime()
	c := NewClock(time.Minute, WithNow(ft.Now), WithTickInterval(time.Hour))
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	ft.Advance(20 * time.Second)
	if got := c.Remaining(); got != 40*time.Second {
		t.Fatalf("expected 40s remaining, got %v", got)
	}

	// Wall clock stepping backwards must not give time back.
	ft.Advance(-15 * time.Second)
	if got := c.Remaining(); got != 40*time.Second {
		t.Fatalf("remaining increased to %v", got)
	}
}

func TestClockStopPreventsExpiry(t *testing.T) {
	ft := newFakeTime()
	c := NewClock(time.Second, WithNow(ft.Now), WithTickInterval(testTick))

	var fired atomic.Bool
	c.OnExpire(func() { fired.Store(true) })
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ft.Advance(400 * time.Millisecond)
	c.Stop()
	waitFor(t, c.exited(), "tick loop exit")

	frozen := c.Remaining()
	ft.Advance(5 * time.Second)
	time.Sleep(10 * testTick)

	if fired.Load() {
		t.Fatal("stopped clock must not expire")
	}
	if c.Remaining() != frozen {
		t.Errorf("remaining should be frozen at %v, got %v", frozen, c.Remaining())
	}
	if c.Elapsed() != 400*time.Millisecond {
		t.Errorf("expected elapsed 400ms, got %v", c.Elapsed())
	}
}

func TestClockTicksReportRemaining(t *testing.T) {
	ft := newFakeTime()
	c := NewClock(10*time.Second, WithNow(ft.Now), WithTickInterval(testTick))

	ticks := make(chan time.Duration, 64)
	c.OnTick(func(d time.Duration) {
		select {
		case ticks <- d:
		default:
		}
	})
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	ft.Advance(3 * time.Second)
	deadline := time.After(2 * time.Second)
	for {
		select {
		case d := <-ticks:
			if d > 10*time.Second {
				t.Fatalf("tick reported %v, more than the duration", d)
			}
			if d == 7*time.Second {
				return
			}
		case <-deadline:
			t.Fatal("no tick reported 7s remaining")
		}
	}
}

func TestClockRejectsNonPositiveDuration(t *testing.T) {
	c := NewClock(0)
	if err := c.Start(); err == nil {
		t.Fatal("expected error for zero duration")
	}
}
