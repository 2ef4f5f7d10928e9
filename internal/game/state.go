// Package game mirrors the scalar match state of the latest accepted tick
// and keeps the match clock.
package game

import (
	"sync"

	"github.com/RedUtils/botcore/pkg/core"
)

// Defaults before the first accepted tick.
const (
	DefaultTimeRemaining = 300.0
	DefaultGameSpeed     = 1.0
	DefaultGravityZ      = -650.0
)

// State mirrors the scalar fields of the latest accepted snapshot.
type State struct {
	mu            sync.RWMutex
	scores        [2]int
	time          float64
	timeRemaining float64
	gameSpeed     float64
	unlimitedTime bool
	overtime      bool
	phase         core.MatchPhase
	gravity       core.Vec3
}

// NewState creates a State holding the pre-match defaults.
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset restores the pre-match defaults.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = [2]int{0, 0}
	s.time = 0
	s.timeRemaining = DefaultTimeRemaining
	s.gameSpeed = DefaultGameSpeed
	s.unlimitedTime = false
	s.overtime = false
	s.phase = core.PhaseInactive
	s.gravity = core.Vec3{Z: DefaultGravityZ}
}

// Apply copies the scalar fields of snap. Callers apply only accepted snapshots.
func (s *State) Apply(snap core.WorldSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = snap.Scores
	s.time = snap.SecondsElapsed
	s.timeRemaining = snap.TimeRemaining
	s.gameSpeed = snap.GameSpeed
	s.unlimitedTime = snap.UnlimitedTime
	s.overtime = snap.Overtime
	s.phase = snap.Phase
	s.gravity = snap.Gravity
}

func (s *State) Time() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.time
}

func (s *State) TimeRemaining() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeRemaining
}

func (s *State) GameSpeed() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gameSpeed
}

func (s *State) UnlimitedTime() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unlimitedTime
}

func (s *State) Overtime() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overtime
}

func (s *State) Phase() core.MatchPhase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *State) Gravity() core.Vec3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gravity
}

// Score returns the goals scored by team.
func (s *State) Score(team core.Team) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if team < core.TeamBlue || team > core.TeamOrange {
		return 0
	}
	return s.scores[team]
}

// Scores returns both scores indexed by team.
func (s *State) Scores() [2]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scores
}

// IsKickoff reports whether the mirrored phase is the kickoff phase.
func (s *State) IsKickoff() bool {
	return s.Phase() == core.PhaseKickoff
}
