// Package convert turns core records into GORM models
package convert

import (
	"encoding/json"

	"github.com/RedUtils/botcore/internal/geo"
	"github.com/RedUtils/botcore/internal/model"
	"github.com/RedUtils/botcore/pkg/core"
	"gorm.io/datatypes"
)

// vec3ToJSON stores a vector as a [x, y, z] JSON array.
func vec3ToJSON(v core.Vec3) datatypes.JSON {
	data, _ := json.Marshal([3]float64{v.X, v.Y, v.Z})
	return datatypes.JSON(data)
}

func controllerToJSON(c core.ControllerState) datatypes.JSON {
	data, err := json.Marshal(c)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToMatch converts a core.Match to a GORM model.Match.
// The ID is left for the database to assign.
func CoreToMatch(m core.Match) model.Match {
	return model.Match{
		Name:             m.Name,
		AgentName:        m.AgentName,
		AgentIndex:       m.AgentIndex,
		Team:             m.Team.String(),
		Tag:              m.Tag,
		StartTime:        m.StartTime,
		ExtensionVersion: m.ExtensionVersion,
	}
}

// CoreToTickState converts a core.TickRecord to a GORM model.TickState.
func CoreToTickState(t core.TickRecord) model.TickState {
	carCount := t.CarCount
	if carCount > 255 {
		carCount = 255
	}
	return model.TickState{
		Time:         t.Time,
		Tick:         t.Tick,
		GameTime:     t.GameTime,
		DeltaTime:    t.DeltaTime,
		Phase:        t.Phase.String(),
		Accepted:     t.Accepted,
		CarCount:     uint8(carCount),
		BallPosition: geo.PointFromVec3(t.Ball),
		Action:       t.Action,
		Controller:   controllerToJSON(t.Controller),
		DurationUs:   t.Duration.Microseconds(),
	}
}

// CoreToActionEvent converts a core.ActionEvent to a GORM model.ActionEvent.
func CoreToActionEvent(e core.ActionEvent) model.ActionEvent {
	return model.ActionEvent{
		Time:     e.Time,
		Tick:     e.Tick,
		GameTime: e.GameTime,
		Action:   e.Action,
		Kind:     string(e.Kind),
		Reason:   e.Reason,
		Error:    e.Error,
	}
}

// CoreToTouchEvent converts a core.BallTouch to a GORM model.TouchEvent.
func CoreToTouchEvent(t core.BallTouch) model.TouchEvent {
	return model.TouchEvent{
		GameTime:    t.Time,
		PlayerIndex: t.PlayerIndex,
		PlayerName:  t.PlayerName,
		Team:        t.Team.String(),
		BallIndex:   t.BallIndex,
		Location:    geo.PointFromVec3(t.Location),
		Normal:      vec3ToJSON(t.Normal),
	}
}

// CoreToPredictionPath converts a core.PredictionRecord to a GORM
// model.PredictionPath. The path geometry stays empty when the slices cannot
// form a line string.
func CoreToPredictionPath(p core.PredictionRecord) model.PredictionPath {
	result := model.PredictionPath{
		Time:       p.Time,
		Tick:       p.Tick,
		GameTime:   p.GameTime,
		SliceCount: len(p.Slices),
	}
	if n := len(p.Slices); n > 0 {
		result.StartTime = p.Slices[0].Time
		result.EndTime = p.Slices[n-1].Time
	}

	if ls, err := geo.PathFromSlices(p.Slices); err == nil {
		result.Path = ls.AsGeometry()
	}
	return result
}

// CoreToAgentPerformance converts a core.AgentStatus to a GORM model.AgentPerformance.
func CoreToAgentPerformance(s core.AgentStatus) model.AgentPerformance {
	return model.AgentPerformance{
		Time:        s.Time,
		Ticks:       s.Ticks,
		Accepted:    s.Accepted,
		Stale:       s.Stale,
		Malformed:   s.Malformed,
		Faults:      s.Faults,
		Cars:        s.Cars,
		Clears:      mapToJSON(s.Clears),
		WriteQueues: mapToJSON(s.WriteQueues),
	}
}

func mapToJSON[V any](m map[string]V) datatypes.JSON {
	if len(m) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}
