// Package streaming defines the envelope protocol spoken by the websocket
// recording backend.
package streaming

import (
	"encoding/json"
	"time"

	"github.com/RedUtils/botcore/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartMatch = "start_match"
	TypeEndMatch   = "end_match"
	TypeTick       = "tick"
	TypeAction     = "action"
	TypeTouch      = "touch"
	TypePrediction = "prediction"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartMatchPayload identifies the match that follows.
type StartMatchPayload struct {
	Name             string    `json:"name"`
	AgentName        string    `json:"agentName"`
	AgentIndex       int       `json:"agentIndex"`
	Team             string    `json:"team"`
	Tag              string    `json:"tag"`
	StartTime        time.Time `json:"startTime"`
	ExtensionVersion string    `json:"extensionVersion"`
}

// TickPayload is one processed tick.
type TickPayload struct {
	Tick       uint64               `json:"tick"`
	Time       time.Time            `json:"time"`
	GameTime   float64              `json:"gameTime"`
	DeltaTime  float64              `json:"deltaTime"`
	Phase      string               `json:"phase"`
	Accepted   bool                 `json:"accepted"`
	CarCount   int                  `json:"carCount"`
	Ball       [3]float64           `json:"ball"`
	Controller core.ControllerState `json:"controller"`
	Action     string               `json:"action,omitempty"`
	DurationUs int64                `json:"durationUs"`
}

// ActionPayload is an action entering or leaving the slot.
type ActionPayload struct {
	Tick     uint64  `json:"tick"`
	GameTime float64 `json:"gameTime"`
	Action   string  `json:"action"`
	Kind     string  `json:"kind"`
	Reason   string  `json:"reason,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// TouchPayload is a new ball touch.
type TouchPayload struct {
	GameTime    float64    `json:"gameTime"`
	PlayerIndex int        `json:"playerIndex"`
	PlayerName  string     `json:"playerName"`
	Team        string     `json:"team"`
	BallIndex   int        `json:"ballIndex"`
	Location    [3]float64 `json:"location"`
	Normal      [3]float64 `json:"normal"`
}

// PredictionPayload is a sampled prediction. Path entries are [t, x, y, z].
type PredictionPayload struct {
	Tick     uint64       `json:"tick"`
	GameTime float64      `json:"gameTime"`
	Path     [][4]float64 `json:"path"`
}

func vec(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// NewStartMatch builds the start_match payload.
func NewStartMatch(m *core.Match) StartMatchPayload {
	return StartMatchPayload{
		Name:             m.Name,
		AgentName:        m.AgentName,
		AgentIndex:       m.AgentIndex,
		Team:             m.Team.String(),
		Tag:              m.Tag,
		StartTime:        m.StartTime,
		ExtensionVersion: m.ExtensionVersion,
	}
}

// NewTick builds the tick payload.
func NewTick(t *core.TickRecord) TickPayload {
	return TickPayload{
		Tick:       t.Tick,
		Time:       t.Time,
		GameTime:   t.GameTime,
		DeltaTime:  t.DeltaTime,
		Phase:      t.Phase.String(),
		Accepted:   t.Accepted,
		CarCount:   t.CarCount,
		Ball:       vec(t.Ball),
		Controller: t.Controller,
		Action:     t.Action,
		DurationUs: t.Duration.Microseconds(),
	}
}

// NewAction builds the action payload.
func NewAction(e *core.ActionEvent) ActionPayload {
	return ActionPayload{
		Tick:     e.Tick,
		GameTime: e.GameTime,
		Action:   e.Action,
		Kind:     string(e.Kind),
		Reason:   e.Reason,
		Error:    e.Error,
	}
}

// NewTouch builds the touch payload.
func NewTouch(t *core.BallTouch) TouchPayload {
	return TouchPayload{
		GameTime:    t.Time,
		PlayerIndex: t.PlayerIndex,
		PlayerName:  t.PlayerName,
		Team:        t.Team.String(),
		BallIndex:   t.BallIndex,
		Location:    vec(t.Location),
		Normal:      vec(t.Normal),
	}
}

// NewPrediction builds the prediction payload.
func NewPrediction(p *core.PredictionRecord) PredictionPayload {
	path := make([][4]float64, len(p.Slices))
	for i, s := range p.Slices {
		path[i] = [4]float64{s.Time, s.Location.X, s.Location.Y, s.Location.Z}
	}
	return PredictionPayload{Tick: p.Tick, GameTime: p.GameTime, Path: path}
}
