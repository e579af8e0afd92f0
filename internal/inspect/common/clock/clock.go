package clock

import (
	"sync"
	"time"
)

// Clock is the time source for record timestamps and task latency.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a manually driven Clock. It is safe for use by concurrent
// inspection tasks.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	// Step is added to CurrentTime after every Now call when non-zero,
	// so consecutive readings observe a fixed elapsed time.
	Step time.Duration
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.CurrentTime
	c.CurrentTime = c.CurrentTime.Add(c.Step)
	return now
}

func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.CurrentTime = c.CurrentTime.Add(d)
	c.mu.Unlock()
}
