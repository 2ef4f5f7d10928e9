package core

import "time"

// TickRecord is the telemetry summary of one processed tick.
type TickRecord struct {
	Tick       uint64
	Time       time.Time
	GameTime   float64
	DeltaTime  float64
	Phase      MatchPhase
	Accepted   bool
	CarCount   int
	Ball       Vec3
	Controller ControllerState
	Action     string
	Duration   time.Duration
}

// ActionEventKind distinguishes the two transitions of the action slot.
type ActionEventKind string

const (
	ActionAssigned ActionEventKind = "assigned"
	ActionCleared  ActionEventKind = "cleared"
)

// ActionEvent records an action entering or leaving the slot.
type ActionEvent struct {
	Tick     uint64
	Time     time.Time
	GameTime float64
	Action   string
	Kind     ActionEventKind
	Reason   string
	Error    string
}

// PredictionRecord is a sampled ball prediction path.
type PredictionRecord struct {
	Tick     uint64
	Time     time.Time
	GameTime float64
	Slices   []BallSlice
}

// AgentStatus is a periodic health sample of the agent and its recorder.
type AgentStatus struct {
	Time        time.Time
	Ticks       uint64
	Accepted    uint64
	Stale       uint64
	Malformed   uint64
	Faults      uint64
	Cars        int
	Clears      map[string]uint64
	WriteQueues map[string]int
}
