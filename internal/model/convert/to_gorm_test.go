package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/RedUtils/botcore/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreToMatch(t *testing.T) {
	start := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	m := CoreToMatch(core.Match{
		ID:               7,
		Name:             "Scrim 1",
		AgentName:        "botcore",
		AgentIndex:       1,
		Team:             core.TeamOrange,
		Tag:              "Casual",
		StartTime:        start,
		ExtensionVersion: "1.2.0",
	})

	assert.Zero(t, m.ID)
	assert.Equal(t, "Scrim 1", m.Name)
	assert.Equal(t, "botcore", m.AgentName)
	assert.Equal(t, 1, m.AgentIndex)
	assert.Equal(t, "orange", m.Team)
	assert.Equal(t, "Casual", m.Tag)
	assert.Equal(t, start, m.StartTime)
	assert.Equal(t, "1.2.0", m.ExtensionVersion)
}

func TestCoreToTickState(t *testing.T) {
	now := time.Now()
	ts := CoreToTickState(core.TickRecord{
		Tick:       42,
		Time:       now,
		GameTime:   12.5,
		DeltaTime:  1.0 / 60,
		Phase:      core.PhaseKickoff,
		Accepted:   true,
		CarCount:   4,
		Ball:       core.Vec3{X: 0, Y: 0, Z: 92.75},
		Controller: core.ControllerState{Throttle: 1, Boost: true},
		Action:     "kickoff",
		Duration:   250 * time.Microsecond,
	})

	assert.Equal(t, uint64(42), ts.Tick)
	assert.Equal(t, now, ts.Time)
	assert.Equal(t, "kickoff", ts.Phase)
	assert.True(t, ts.Accepted)
	assert.Equal(t, uint8(4), ts.CarCount)
	assert.Equal(t, "kickoff", ts.Action)
	assert.Equal(t, int64(250), ts.DurationUs)

	c, ok := ts.BallPosition.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 92.75, c.Z)

	var ctrl core.ControllerState
	require.NoError(t, json.Unmarshal(ts.Controller, &ctrl))
	assert.Equal(t, 1.0, ctrl.Throttle)
	assert.True(t, ctrl.Boost)
}

func TestCoreToTickState_CarCountCapped(t *testing.T) {
	ts := CoreToTickState(core.TickRecord{CarCount: 300})
	assert.Equal(t, uint8(255), ts.CarCount)
}

func TestCoreToActionEvent(t *testing.T) {
	e := CoreToActionEvent(core.ActionEvent{
		Tick:     9,
		GameTime: 3.25,
		Action:   "chase",
		Kind:     core.ActionCleared,
		Reason:   "touched",
	})

	assert.Equal(t, uint64(9), e.Tick)
	assert.Equal(t, 3.25, e.GameTime)
	assert.Equal(t, "chase", e.Action)
	assert.Equal(t, "cleared", e.Kind)
	assert.Equal(t, "touched", e.Reason)
	assert.Empty(t, e.Error)
}

func TestCoreToTouchEvent(t *testing.T) {
	e := CoreToTouchEvent(core.BallTouch{
		Time:        61.2,
		Location:    core.Vec3{X: 10, Y: -20, Z: 100},
		Normal:      core.Vec3{X: 0, Y: 1, Z: 0},
		PlayerName:  "Opponent",
		PlayerIndex: 2,
		Team:        core.TeamOrange,
		BallIndex:   0,
	})

	assert.Equal(t, 61.2, e.GameTime)
	assert.Equal(t, 2, e.PlayerIndex)
	assert.Equal(t, "Opponent", e.PlayerName)
	assert.Equal(t, "orange", e.Team)
	assert.JSONEq(t, `[0,1,0]`, string(e.Normal))

	c, ok := e.Location.Coordinates()
	require.True(t, ok)
	assert.Equal(t, geom.XY{X: 10, Y: -20}, c.XY)
	assert.Equal(t, 100.0, c.Z)
}

func TestCoreToPredictionPath(t *testing.T) {
	p := CoreToPredictionPath(core.PredictionRecord{
		Tick:     100,
		GameTime: 20,
		Slices: []core.BallSlice{
			{Time: 20.0, Location: core.Vec3{Z: 92}},
			{Time: 20.5, Location: core.Vec3{Y: 100, Z: 200}},
			{Time: 21.0, Location: core.Vec3{Y: 200, Z: 92}},
		},
	})

	assert.Equal(t, uint64(100), p.Tick)
	assert.Equal(t, 3, p.SliceCount)
	assert.Equal(t, 20.0, p.StartTime)
	assert.Equal(t, 21.0, p.EndTime)

	ls, ok := p.Path.AsLineString()
	require.True(t, ok)
	assert.Equal(t, geom.DimXYZM, ls.CoordinatesType())
	assert.Equal(t, 3, ls.Coordinates().Length())
}

func TestCoreToPredictionPath_TooShort(t *testing.T) {
	p := CoreToPredictionPath(core.PredictionRecord{
		Slices: []core.BallSlice{{Time: 1}},
	})

	assert.Equal(t, 1, p.SliceCount)
	assert.True(t, p.Path.IsEmpty())
}

func TestCoreToAgentPerformance(t *testing.T) {
	tests := []struct {
		name       string
		status     core.AgentStatus
		wantClears string
		wantQueues string
	}{
		{
			name: "populated",
			status: core.AgentStatus{
				Ticks:       120,
				Accepted:    118,
				Stale:       2,
				Cars:        6,
				Clears:      map[string]uint64{"kickoff": 1, "touch": 3},
				WriteQueues: map[string]int{"ticks": 4},
			},
			wantClears: `{"kickoff":1,"touch":3}`,
			wantQueues: `{"ticks":4}`,
		},
		{
			name:       "empty maps",
			status:     core.AgentStatus{Ticks: 1},
			wantClears: `{}`,
			wantQueues: `{}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := CoreToAgentPerformance(tt.status)
			assert.Equal(t, tt.status.Ticks, p.Ticks)
			assert.Equal(t, tt.status.Accepted, p.Accepted)
			assert.Equal(t, tt.status.Cars, p.Cars)
			assert.JSONEq(t, tt.wantClears, string(p.Clears))
			assert.JSONEq(t, tt.wantQueues, string(p.WriteQueues))
		})
	}
}
