package testutil

import (
	"fmt"
	"sync"
	"time"

	"nbm/internal/nbm"
)

var (
	_ nbm.Clock       = (*StubClock)(nil)
	_ nbm.IDGenerator = (*StubIDGenerator)(nil)
)

// StubClock stands in for nbm.RealClock so backup timestamps are known in
// advance. It only moves when a test calls Advance.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock starts a clock at t.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock starts at 2024-01-15 10:30:00 UTC, after BaseTime, so files
// written by WriteFile always predate a backup stamped by this clock.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Stamp is the current time in the epoch-seconds form stored in a
// record's Last field.
func (c *StubClock) Stamp() *float64 {
	secs := float64(c.Now().UnixNano()) / 1e9
	return &secs
}

// StubIDGenerator hands out registry row IDs "id-1", "id-2", and so on.
type StubIDGenerator struct {
	mu   sync.Mutex
	next int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("id-%d", g.next)
}
