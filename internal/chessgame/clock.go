package chessgame

import (
	"fmt"
	"time"
)

// Clock accumulates think time per side in milliseconds.
type Clock struct {
	elapsed   [2]int64
	lastCheck time.Time
	now       func() time.Time
}

func newClock(now func() time.Time) Clock {
	if now == nil {
		now = time.Now
	}
	return Clock{lastCheck: now(), now: now}
}

// Reset moves the reference point to now without charging anyone.
func (c *Clock) Reset() { c.lastCheck = c.now() }

// Charge adds the time since the last check to side and returns its total.
func (c *Clock) Charge(side Color) int64 {
	now := c.now()
	diff := now.Sub(c.lastCheck).Milliseconds()
	c.lastCheck = now
	if diff < 0 {
		diff = 0
	}
	if side == White || side == Black {
		c.elapsed[side] += diff
		return c.elapsed[side]
	}
	return 0
}

func (c *Clock) Elapsed(side Color) int64 {
	if side == White || side == Black {
		return c.elapsed[side]
	}
	return 0
}

func (c *Clock) set(white, black int64) {
	c.elapsed[White] = white
	c.elapsed[Black] = black
}

// FormatHMS renders milliseconds as HH:MM:SS.
func FormatHMS(ms int64) string {
	n := ms / 1000
	if n < 0 {
		n = 0
	}
	secs := n % 60
	hrs := n / 3600
	mins := (n - hrs*3600) / 60
	return fmt.Sprintf("%02d:%02d:%02d", hrs, mins, secs)
}
