package match

import (
	"sync"

	"github.com/RedUtils/botcore/pkg/core"
)

// Context holds the match currently being played
type Context struct {
	mu     sync.RWMutex
	match  core.Match
	active bool
}

// NewContext creates a new Context with no match loaded
func NewContext() *Context {
	return &Context{
		match: core.Match{Name: "No match loaded"},
	}
}

// GetMatch returns a copy of the current match
func (mc *Context) GetMatch() core.Match {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.match
}

// Active reports whether a match was started and not yet ended
func (mc *Context) Active() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.active
}

// SetMatch makes m the current match
func (mc *Context) SetMatch(m core.Match) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.match = m
	mc.active = true
}

// EndMatch marks the current match as ended. The match stays readable.
func (mc *Context) EndMatch() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.active = false
}
