package core

import "time"

// MatchPhase is the host's match phase enum, numbered as it arrives on the wire.
type MatchPhase int

const (
	PhaseInactive MatchPhase = iota
	PhaseCountdown
	PhaseKickoff
	PhaseActive
	PhaseGoalScored
	PhaseReplay
	PhasePaused
	PhaseEnded
)

var phaseNames = [...]string{
	PhaseInactive:   "inactive",
	PhaseCountdown:  "countdown",
	PhaseKickoff:    "kickoff",
	PhaseActive:     "active",
	PhaseGoalScored: "goal_scored",
	PhaseReplay:     "replay",
	PhasePaused:     "paused",
	PhaseEnded:      "ended",
}

func (p MatchPhase) String() string {
	if p.Valid() {
		return phaseNames[p]
	}
	return "unknown"
}

// Valid reports whether p is one of the known phases.
func (p MatchPhase) Valid() bool {
	return p >= PhaseInactive && int(p) < len(phaseNames)
}

// Team identifies a side. Blue is team 0, Orange is team 1.
type Team int

const (
	TeamBlue Team = iota
	TeamOrange
)

// Other returns the opposing team.
func (t Team) Other() Team {
	if t == TeamBlue {
		return TeamOrange
	}
	return TeamBlue
}

func (t Team) String() string {
	switch t {
	case TeamBlue:
		return "blue"
	case TeamOrange:
		return "orange"
	default:
		return "unknown"
	}
}

// Match describes one recorded match from the agent's point of view.
type Match struct {
	ID               uint
	Name             string
	AgentName        string
	AgentIndex       int
	Team             Team
	Tag              string
	StartTime        time.Time
	ExtensionVersion string
}

// UploadMetadata contains match information needed for uploading a recording.
type UploadMetadata struct {
	MatchName  string
	AgentName  string
	Tag        string
	GameLength float64
}
