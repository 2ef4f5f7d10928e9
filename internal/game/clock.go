package game

// Clock tracks elapsed game time and per-tick delta time.
//
// Accept rejects any snapshot whose elapsed time is not strictly greater than
// the last accepted one. Finalize runs once at the end of every tick, stale or
// not: on a stale tick the stored time has not moved, so the delta is 0.
// The first Finalize after construction or Reset reports 0.
type Clock struct {
	time   float64
	last   float64
	seeded bool
	delta  float64
}

// NewClock creates a clock at time 0.
func NewClock() *Clock {
	return &Clock{}
}

// Accept reports whether elapsed is newer than the stored time and, if so, stores it.
func (c *Clock) Accept(elapsed float64) bool {
	if elapsed <= c.time {
		return false
	}
	c.time = elapsed
	return true
}

// Finalize computes the delta since the previous Finalize and returns it.
func (c *Clock) Finalize() float64 {
	if !c.seeded {
		c.seeded = true
		c.last = c.time
		c.delta = 0
		return 0
	}
	c.delta = c.time - c.last
	c.last = c.time
	return c.delta
}

// Time returns the last accepted elapsed time.
func (c *Clock) Time() float64 {
	return c.time
}

// DeltaTime returns the delta computed by the most recent Finalize.
func (c *Clock) DeltaTime() float64 {
	return c.delta
}

// Reset returns the clock to its initial state.
func (c *Clock) Reset() {
	*c = Clock{}
}
