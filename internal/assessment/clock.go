package assessment

import (
	"errors"
	"sync"
	"time"
)

// DefaultTickInterval is how often a running Clock reports remaining time.
const DefaultTickInterval = time.Second

// Clock counts down a fixed duration against a deadline. Remaining time is
// always derived from the deadline, never from counting ticks, so a slow or
// starved tick loop cannot drift. Remaining never increases and expiry is
// delivered at most once.
type Clock struct {
	duration time.Duration
	interval time.Duration
	now      func() time.Time

	onTick   func(remaining time.Duration)
	onExpire func()

	mu        sync.Mutex
	started   bool
	stopped   bool
	expired   bool
	startedAt time.Time
	deadline  time.Time
	remaining time.Duration
	stoppedAt time.Time

	stopOnce   sync.Once
	expireOnce sync.Once
	stop       chan struct{}
	done       chan struct{}
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithTickInterval sets the tick period. Non-positive values are ignored.
func WithTickInterval(d time.Duration) ClockOption {
	return func(c *Clock) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClock creates a stopped clock for duration.
func NewClock(duration time.Duration, opts ...ClockOption) *Clock {
	c := &Clock{
		duration:  duration,
		interval:  DefaultTickInterval,
		now:       time.Now,
		remaining: duration,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnTick registers the tick callback. Must be called before Start.
func (c *Clock) OnTick(fn func(remaining time.Duration)) { c.onTick = fn }

// OnExpire registers the expiry callback. Must be called before Start.
func (c *Clock) OnExpire(fn func()) { c.onExpire = fn }

// Start fixes the deadline and begins ticking. A clock starts once.
func (c *Clock) Start() error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("clock already started")
	}
	if c.duration <= 0 {
		c.mu.Unlock()
		return errors.New("clock duration must be positive")
	}
	c.started = true
	c.startedAt = c.now()
	c.deadline = c.startedAt.Add(c.duration)
	c.mu.Unlock()

	go c.run()
	return nil
}

// Stop halts ticking and freezes remaining time. It does not wait for an
// in-flight callback, so it is safe to call from within one.
func (c *Clock) Stop() {
	c.mu.Lock()
	if c.started && !c.stopped {
		c.observeLocked()
		c.stopped = true
		c.stoppedAt = c.now()
	}
	c.mu.Unlock()
	c.stopOnce.Do(func() { close(c.stop) })
}

// exited is closed when the tick loop exits.
func (c *Clock) exited() <-chan struct{} { return c.done }

// Remaining returns the time left, clamped at zero.
func (c *Clock) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.stopped {
		return c.remaining
	}
	return c.observeLocked()
}

// Elapsed returns time since Start, capped at the duration.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return 0
	}
	end := c.now()
	if c.stopped {
		end = c.stoppedAt
	}
	elapsed := end.Sub(c.startedAt)
	if elapsed > c.duration {
		elapsed = c.duration
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

// fired reports whether expiry has fired.
func (c *Clock) fired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

func (c *Clock) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			remaining, live := c.tick()
			if !live {
				return
			}
			if remaining == 0 {
				c.fireExpire()
				return
			}
			if c.onTick != nil {
				c.onTick(remaining)
			}
		}
	}
}

// tick refreshes remaining time. live is false once the clock was stopped.
func (c *Clock) tick() (remaining time.Duration, live bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return c.remaining, false
	}
	return c.observeLocked(), true
}

func (c *Clock) observeLocked() time.Duration {
	left := c.deadline.Sub(c.now())
	if left < 0 {
		left = 0
	}
	if left < c.remaining {
		c.remaining = left
	}
	return c.remaining
}

func (c *Clock) fireExpire() {
	c.expireOnce.Do(func() {
		c.mu.Lock()
		c.expired = true
		c.mu.Unlock()
		if c.onExpire != nil {
			c.onExpire()
		}
	})
}
