package parser

import "github.com/RedUtils/botcore/pkg/core"

// Wire shapes of the host payloads. Numbers that are integral on the host
// side are decoded as float64 and converted with intFromNumber.

type vec3JSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v vec3JSON) toCore() core.Vec3 {
	return core.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

type rotatorJSON struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

type physicsJSON struct {
	Location        vec3JSON    `json:"location"`
	Velocity        vec3JSON    `json:"velocity"`
	Rotation        rotatorJSON `json:"rotation"`
	AngularVelocity vec3JSON    `json:"angularVelocity"`
}

func (p physicsJSON) toCore() core.Physics {
	return core.Physics{
		Location: p.Location.toCore(),
		Velocity: p.Velocity.toCore(),
		Rotation: core.Rotator{
			Pitch: p.Rotation.Pitch,
			Yaw:   p.Rotation.Yaw,
			Roll:  p.Rotation.Roll,
		},
		AngularVelocity: p.AngularVelocity.toCore(),
	}
}

type touchJSON struct {
	GameSeconds float64  `json:"gameSeconds"`
	Location    vec3JSON `json:"location"`
	Normal      vec3JSON `json:"normal"`
	BallIndex   float64  `json:"ballIndex"`
}

type playerJSON struct {
	PlayerID        float64     `json:"playerId"`
	Name            string      `json:"name"`
	Team            float64     `json:"team"`
	Physics         physicsJSON `json:"physics"`
	Boost           float64     `json:"boost"`
	HasWheelContact bool        `json:"hasWheelContact"`
	IsSupersonic    bool        `json:"isSupersonic"`
	Jumped          bool        `json:"jumped"`
	DoubleJumped    bool        `json:"doubleJumped"`
	IsBot           bool        `json:"isBot"`
	IsDemolished    bool        `json:"isDemolished"`
	LatestTouch     *touchJSON  `json:"latestTouch"`
}

type ballJSON struct {
	Physics physicsJSON `json:"physics"`
}

// teamJSON is one entry of the positional teams array. teamIndex, when
// present, overrides the position.
type teamJSON struct {
	TeamIndex *float64 `json:"teamIndex"`
	Score     float64  `json:"score"`
}

type matchInfoJSON struct {
	SecondsElapsed    *float64 `json:"secondsElapsed"`
	GameTimeRemaining *float64 `json:"gameTimeRemaining"`
	GameSpeed         *float64 `json:"gameSpeed"`
	IsUnlimitedTime   bool     `json:"isUnlimitedTime"`
	IsOvertime        bool     `json:"isOvertime"`
	MatchPhase        float64  `json:"matchPhase"`
	WorldGravityZ     *float64 `json:"worldGravityZ"`
}

type packetJSON struct {
	Players   []playerJSON   `json:"players"`
	Balls     []ballJSON     `json:"balls"`
	Teams     []teamJSON     `json:"teams"`
	MatchInfo *matchInfoJSON `json:"matchInfo"`
}

type sliceJSON struct {
	GameSeconds float64     `json:"gameSeconds"`
	Physics     physicsJSON `json:"physics"`
}

type predictionJSON struct {
	Slices []sliceJSON `json:"slices"`
}

type matchStartJSON struct {
	Name      string `json:"name"`
	AgentName string `json:"agentName"`
	Index     int    `json:"index"`
	Team      int    `json:"team"`
	Tag       string `json:"tag"`
}
