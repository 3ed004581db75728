package testutil

import (
	"fmt"
	"sync"
	"time"

	"vsync/internal/vsync"
)

// ManualClock only moves when Advance is called. Signed URL expiry and
// operation timestamps in tests read from it.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ vsync.Clock = (*ManualClock)(nil)

// FixedClock returns a ManualClock starting at 2025-03-01 09:00:00 UTC.
func FixedClock() *ManualClock {
	return &ManualClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SequentialOpIDs hands out "op-1", "op-2", ... as operation IDs.
type SequentialOpIDs struct {
	mu   sync.Mutex
	next int
}

var _ vsync.IDGenerator = (*SequentialOpIDs)(nil)

func (g *SequentialOpIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("op-%d", g.next)
}
