// Package fakeclock provides a deterministic Clock for tests.
package fakeclock

import (
	"sync"
	"time"

	"github.com/praetorian-inc/aegis-recorder/internal/ports"
)

// Clock implements ports.Clock with a manually advanced current time.
// After returns a channel that never fires unless SetAfter installed one,
// so shutdown paths that race a timeout against completion stay
// deterministic in tests.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	afterCh chan time.Time
}

// New returns a Clock frozen at now.
func New(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the fake time forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// After returns the installed channel, or one that never fires.
func (c *Clock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.afterCh != nil {
		return c.afterCh
	}
	return make(chan time.Time)
}

// SetAfter makes subsequent After calls return ch.
func (c *Clock) SetAfter(ch chan time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterCh = ch
}

// Ensure Clock implements ports.Clock.
var _ ports.Clock = (*Clock)(nil)
