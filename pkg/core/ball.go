package core

// BallTouch is the most recent contact between a car and a ball.
// Time is in game seconds.
type BallTouch struct {
	Time        float64
	Location    Vec3
	Normal      Vec3
	PlayerName  string
	PlayerIndex int
	Team        Team
	BallIndex   int
}

// BallState is the tracked state of the primary ball.
type BallState struct {
	Physics     Physics
	LatestTouch *BallTouch
}

// Location is shorthand for b.Physics.Location.
func (b BallState) Location() Vec3 {
	return b.Physics.Location
}

// BallSlice is one predicted ball state. Time is in game seconds.
type BallSlice struct {
	Location        Vec3
	Velocity        Vec3
	AngularVelocity Vec3
	Time            float64
}

// ToBall converts the slice into a ball state without touch information.
func (s BallSlice) ToBall() BallState {
	return BallState{
		Physics: Physics{
			Location:        s.Location,
			Velocity:        s.Velocity,
			AngularVelocity: s.AngularVelocity,
		},
	}
}
