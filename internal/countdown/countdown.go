// Package countdown implements the one-second OTP countdown shown while a
// flow waits for a code.
package countdown

import (
	"fmt"
	"sync"
	"time"
)

// Countdown decrements once per tick until it reaches zero. It never goes
// negative and, once stopped, never changes again.
type Countdown struct {
	mu sync.Mutex
	// notify is held while onTick runs; Stop waits on it.
	notify    sync.Mutex
	remaining int
	started   bool
	stopped   bool
	stop      chan struct{}
	done      chan struct{}
}

func New(seconds int) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{
		remaining: seconds,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Tick decrements by one second. It reports false when nothing changed
// because the countdown is at zero or stopped.
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.remaining == 0 {
		return false
	}
	c.remaining--
	return true
}

// Start drives the countdown from ticks in its own goroutine. The goroutine
// exits at zero or on Stop; release (typically a ticker's Stop) runs then.
// Starting twice is a no-op. onTick must not call Stop.
func (c *Countdown) Start(ticks <-chan time.Time, release func(), onTick func(remaining int)) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		if release != nil {
			release()
		}
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		if release != nil {
			defer release()
		}
		if c.Remaining() == 0 {
			return
		}
		for {
			select {
			case <-c.stop:
				return
			case <-ticks:
				left, ok := c.tickAndNotify(onTick)
				if !ok || left == 0 {
					return
				}
			}
		}
	}()
}

// tickAndNotify ticks once and reports the new value to onTick, unless
// Stop got there first.
func (c *Countdown) tickAndNotify(onTick func(remaining int)) (int, bool) {
	c.notify.Lock()
	defer c.notify.Unlock()
	if !c.Tick() {
		return 0, false
	}
	left := c.Remaining()
	if onTick != nil {
		onTick(left)
	}
	return left, true
}

// Run starts the countdown on a real one-second ticker.
func (c *Countdown) Run(onTick func(remaining int)) {
	ticker := time.NewTicker(time.Second)
	c.Start(ticker.C, ticker.Stop, onTick)
}

// Stop tears the countdown down. A callback already in flight finishes
// first; once Stop returns no further onTick call happens. Safe to call
// more than once and before Start.
func (c *Countdown) Stop() {
	c.notify.Lock()
	defer c.notify.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stop)
	if !c.started {
		c.started = true
		close(c.done)
	}
}

// Done is closed once the driving goroutine has exited.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

func (c *Countdown) String() string {
	return Format(c.Remaining())
}

// Format renders seconds as M:SS.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
