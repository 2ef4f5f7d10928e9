package touch

import "github.com/RedUtils/botcore/pkg/core"

// None is the touch time reported before any car has touched the ball.
// It is strictly less than any valid game time.
const None = -1.0

// Ledger keeps the most recent ball touch reported by any tracked car.
// A touch is only replaced by a strictly newer one.
type Ledger struct {
	latest *core.BallTouch
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Observe scans cars for their latest touch and records the newest one.
// It reports whether the ledger moved to a newer touch.
func (l *Ledger) Observe(cars []core.CarState) bool {
	changed := false
	for _, c := range cars {
		if c.LatestTouch == nil {
			continue
		}
		if l.latest == nil || c.LatestTouch.Time > l.latest.Time {
			t := *c.LatestTouch
			l.latest = &t
			changed = true
		}
	}
	return changed
}

// Latest returns the most recent touch, if any.
func (l *Ledger) Latest() (core.BallTouch, bool) {
	if l.latest == nil {
		return core.BallTouch{}, false
	}
	return *l.latest, true
}

// Time returns the time of the most recent touch, or None.
func (l *Ledger) Time() float64 {
	if l.latest == nil {
		return None
	}
	return l.latest.Time
}

// Reset forgets the recorded touch.
func (l *Ledger) Reset() {
	l.latest = nil
}
