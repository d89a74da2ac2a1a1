// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mockable provides a clock that tests can pin and advance.
package mockable

import (
	"math"
	"sync"
	"time"
)

// Clock wraps the wall clock so block timestamps can be controlled in tests.
// It is safe for concurrent use. The zero value follows the wall clock.
type Clock struct {
	mu    sync.RWMutex
	faked bool
	time  time.Time
}

// Set pins the clock to [t].
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faked = true
	c.time = t
}

// Advance moves a pinned clock forward by [d]. It pins an unpinned clock at
// the current wall time first.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.faked {
		c.faked = true
		c.time = time.Now()
	}
	c.time = c.time.Add(d)
}

// Sync returns the clock to wall time.
func (c *Clock) Sync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faked = false
}

func (c *Clock) Time() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.faked {
		return c.time
	}
	return time.Now()
}

// Unix32 returns the clock as a block timestamp, saturating at the bounds of
// a uint32.
func (c *Clock) Unix32() uint32 {
	unix := c.Time().Unix()
	switch {
	case unix < 0:
		return 0
	case unix > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(unix)
	}
}
