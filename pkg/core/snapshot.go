// Package core holds the value types shared by the agent, the parser and the
// recording sinks: snapshots, car and ball state, controller output and
// match records.
package core

// CarInfo is one vehicle record as reported in a single snapshot.
type CarInfo struct {
	PlayerID        int
	Name            string
	Team            Team
	Physics         Physics
	Boost           float64
	HasWheelContact bool
	IsSupersonic    bool
	Jumped          bool
	DoubleJumped    bool
	IsBot           bool
	Demolished      bool
	LatestTouch     *BallTouch
}

// BallInfo is one ball record as reported in a single snapshot.
type BallInfo struct {
	Physics Physics
}

// WorldSnapshot is the immutable view of the world for one tick.
// Scores is indexed by Team.
type WorldSnapshot struct {
	Cars           []CarInfo
	Balls          []BallInfo
	Scores         [2]int
	SecondsElapsed float64
	TimeRemaining  float64
	GameSpeed      float64
	UnlimitedTime  bool
	Overtime       bool
	Phase          MatchPhase
	Gravity        Vec3
}
