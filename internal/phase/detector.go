package phase

import "github.com/RedUtils/botcore/pkg/core"

// Edge is the transition observed between two consecutive phases,
// seen from the point of view of the restart phase.
type Edge int

const (
	// EdgeNone: outside the restart phase before and after.
	EdgeNone Edge = iota
	// EdgeEnter: moved into the restart phase.
	EdgeEnter
	// EdgeHold: stayed in the restart phase.
	EdgeHold
	// EdgeExit: left the restart phase.
	EdgeExit
)

func (e Edge) String() string {
	switch e {
	case EdgeEnter:
		return "enter"
	case EdgeHold:
		return "hold"
	case EdgeExit:
		return "exit"
	default:
		return "none"
	}
}

// transitions is indexed by [wasRestart][isRestart].
var transitions = [2][2]Edge{
	{EdgeNone, EdgeEnter},
	{EdgeExit, EdgeHold},
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Detector fires once per entry into the restart phase.
type Detector struct {
	restart core.MatchPhase
	prev    core.MatchPhase
	last    Edge
}

// NewDetector creates a detector for kickoffs, starting from the inactive phase.
func NewDetector() *Detector {
	return NewDetectorFor(core.PhaseKickoff)
}

// NewDetectorFor creates a detector for an arbitrary restart phase.
func NewDetectorFor(restart core.MatchPhase) *Detector {
	return &Detector{restart: restart, prev: core.PhaseInactive}
}

// Observe records phase and reports whether it entered the restart phase.
// The previous phase is always updated.
func (d *Detector) Observe(phase core.MatchPhase) bool {
	d.last = transitions[b2i(d.prev == d.restart)][b2i(phase == d.restart)]
	d.prev = phase
	return d.last == EdgeEnter
}

// Last returns the edge computed by the most recent Observe.
func (d *Detector) Last() Edge {
	return d.last
}

// Previous returns the most recently observed phase.
func (d *Detector) Previous() core.MatchPhase {
	return d.prev
}

// Reset returns the detector to the inactive phase.
func (d *Detector) Reset() {
	d.prev = core.PhaseInactive
	d.last = EdgeNone
}
