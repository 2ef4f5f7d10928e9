package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3Ops(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 2}
	b := Vec3{X: 1, Y: 0, Z: 0}

	assert.Equal(t, Vec3{X: 2, Y: 2, Z: 2}, a.Add(b))
	assert.Equal(t, Vec3{X: 0, Y: 2, Z: 2}, a.Sub(b))
	assert.Equal(t, Vec3{X: 2, Y: 4, Z: 4}, a.Scale(2))
	assert.Equal(t, 1.0, a.Dot(b))
	assert.InDelta(t, 3.0, a.Length(), 1e-9)
	assert.InDelta(t, 2.8284271, a.Dist(b), 1e-6)
}

func TestMatchPhaseString(t *testing.T) {
	tests := []struct {
		phase MatchPhase
		want  string
	}{
		{PhaseInactive, "inactive"},
		{PhaseKickoff, "kickoff"},
		{PhaseActive, "active"},
		{PhaseEnded, "ended"},
		{MatchPhase(42), "unknown"},
		{MatchPhase(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.phase.String())
		})
	}
}

func TestTeamOther(t *testing.T) {
	assert.Equal(t, TeamOrange, TeamBlue.Other())
	assert.Equal(t, TeamBlue, TeamOrange.Other())
}

func TestCarStateUpdateKeepsIndex(t *testing.T) {
	c := NewCarState(3, CarInfo{Name: "first", Team: TeamBlue})
	c.Update(CarInfo{Name: "second", Team: TeamOrange, Demolished: true})

	assert.Equal(t, 3, c.Index)
	assert.Equal(t, "second", c.Name)
	assert.Equal(t, TeamOrange, c.Team)
	assert.True(t, c.Demolished)
}

func TestBallSliceToBall(t *testing.T) {
	s := BallSlice{
		Location:        Vec3{X: 1},
		Velocity:        Vec3{Y: 2},
		AngularVelocity: Vec3{Z: 3},
		Time:            12.5,
	}

	b := s.ToBall()
	assert.Equal(t, s.Location, b.Location())
	assert.Equal(t, s.Velocity, b.Physics.Velocity)
	assert.Equal(t, s.AngularVelocity, b.Physics.AngularVelocity)
	assert.Nil(t, b.LatestTouch)
}

func TestControllerIsNeutral(t *testing.T) {
	assert.True(t, ControllerState{}.IsNeutral())
	assert.False(t, ControllerState{Throttle: 1}.IsNeutral())
}
