package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&BotInfo{},
	&Match{},
	&TickState{},
	&ActionEvent{},
	&TouchEvent{},
	&PredictionPath{},
	&AgentPerformance{},
}

// DatabaseModelsSQLite leaves out PredictionPath: XYZM line strings need PostGIS.
var DatabaseModelsSQLite = []interface{}{
	&BotInfo{},
	&Match{},
	&TickState{},
	&ActionEvent{},
	&TouchEvent{},
	&AgentPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// BotInfo describes the instance writing into this database
type BotInfo struct {
	gorm.Model
	BotName     string `json:"botName" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Website     string `json:"website" gorm:"size:255"`
}

func (*BotInfo) TableName() string {
	return "bot_infos"
}

// AgentPerformance is one periodic status sample of the agent
type AgentPerformance struct {
	Time        time.Time      `json:"time" gorm:"type:timestamptz;index:idx_agentperformance_time"`
	MatchID     uint           `json:"matchId" gorm:"index:idx_agentperformance_match_id"`
	Match       Match          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Ticks       uint64         `json:"ticks"`
	Accepted    uint64         `json:"accepted"`
	Stale       uint64         `json:"stale"`
	Malformed   uint64         `json:"malformed"`
	Faults      uint64         `json:"faults"`
	Cars        int            `json:"cars"`
	Clears      datatypes.JSON `json:"clears" gorm:"type:jsonb;default:'{}'"`      // clear reason -> count
	WriteQueues datatypes.JSON `json:"writeQueues" gorm:"type:jsonb;default:'{}'"` // queue name -> length
}

func (*AgentPerformance) TableName() string {
	return "agent_performances"
}

////////////////////////
// MATCH DATA
////////////////////////

// Match is one recorded match from the agent's point of view
type Match struct {
	gorm.Model
	Name             string    `json:"name" gorm:"size:200"`
	AgentName        string    `json:"agentName" gorm:"size:64;index:idx_match_agent_name"`
	AgentIndex       int       `json:"agentIndex"`
	Team             string    `json:"team" gorm:"size:16"`
	Tag              string    `json:"tag" gorm:"size:127"`
	StartTime        time.Time `json:"startTime" gorm:"type:timestamptz"`
	ExtensionVersion string    `json:"extensionVersion" gorm:"size:64"`
}

func (*Match) TableName() string {
	return "matches"
}

// TickState is the summary of one processed tick
type TickState struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time      `json:"time" gorm:"type:timestamptz;"`
	MatchID      uint           `json:"matchId" gorm:"index:idx_tickstate_match_id"`
	Match        Match          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick         uint64         `json:"tick" gorm:"index:idx_tickstate_tick"`
	GameTime     float64        `json:"gameTime"`
	DeltaTime    float64        `json:"deltaTime"`
	Phase        string         `json:"phase" gorm:"size:16"`
	Accepted     bool           `json:"accepted"`
	CarCount     uint8          `json:"carCount"`
	BallPosition geom.Point     `json:"ballPosition"`                              // XYZ in unreal units
	Action       string         `json:"action" gorm:"size:64"`                     // name of the running action, empty when idle
	Controller   datatypes.JSON `json:"controller" gorm:"type:jsonb;default:'{}'"` // controller output sent for this tick
	DurationUs   int64          `json:"durationUs"`                                // processing time in microseconds
}

func (*TickState) TableName() string {
	return "tick_states"
}

// ActionEvent records an action entering or leaving the slot
type ActionEvent struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time `json:"time" gorm:"type:timestamptz;"`
	MatchID  uint      `json:"matchId" gorm:"index:idx_actionevent_match_id"`
	Match    Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick     uint64    `json:"tick" gorm:"index:idx_actionevent_tick"`
	GameTime float64   `json:"gameTime"`
	Action   string    `json:"action" gorm:"size:64"`
	Kind     string    `json:"kind" gorm:"size:16"`   // assigned, cleared
	Reason   string    `json:"reason" gorm:"size:16"` // clear reason, empty on assign
	Error    string    `json:"error" gorm:"size:255"`
}

func (*ActionEvent) TableName() string {
	return "action_events"
}

// TouchEvent is a ball touch observed by the ledger
type TouchEvent struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	MatchID     uint           `json:"matchId" gorm:"index:idx_touchevent_match_id"`
	Match       Match          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	GameTime    float64        `json:"gameTime" gorm:"index:idx_touchevent_game_time"`
	PlayerIndex int            `json:"playerIndex"`
	PlayerName  string         `json:"playerName" gorm:"size:64"`
	Team        string         `json:"team" gorm:"size:16"`
	BallIndex   int            `json:"ballIndex"`
	Location    geom.Point     `json:"location"`                              // contact point XYZ
	Normal      datatypes.JSON `json:"normal" gorm:"type:jsonb;default:'[]'"` // [x, y, z]
}

func (*TouchEvent) TableName() string {
	return "touch_events"
}

// PredictionPath is a sampled ball prediction stored as a line string
type PredictionPath struct {
	ID         uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time     `json:"time" gorm:"type:timestamptz;"`
	MatchID    uint          `json:"matchId" gorm:"index:idx_predictionpath_match_id"`
	Match      Match         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Tick       uint64        `json:"tick"`
	GameTime   float64       `json:"gameTime"`
	SliceCount int           `json:"sliceCount"`
	StartTime  float64       `json:"startTime"`
	EndTime    float64       `json:"endTime"`
	Path       geom.Geometry `json:"-"` // LineStringZM of ball positions [x,y,z,gameTime]
}

func (*PredictionPath) TableName() string {
	return "prediction_paths"
}
