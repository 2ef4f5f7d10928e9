package core

// CarState is the tracked, mutable record of one vehicle.
// Index is assigned when the roster is initialized and never changes afterwards.
type CarState struct {
	Index           int
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

// NewCarState creates the tracked record for the car at index.
func NewCarState(index int, info CarInfo) CarState {
	c := CarState{Index: index}
	c.Update(info)
	return c
}

// Update copies the per-tick fields of info into c, keeping its identity.
func (c *CarState) Update(info CarInfo) {
	c.PlayerID = info.PlayerID
	c.Name = info.Name
	c.Team = info.Team
	c.Physics = info.Physics
	c.Boost = info.Boost
	c.HasWheelContact = info.HasWheelContact
	c.IsSupersonic = info.IsSupersonic
	c.Jumped = info.Jumped
	c.DoubleJumped = info.DoubleJumped
	c.IsBot = info.IsBot
	c.Demolished = info.Demolished
	c.LatestTouch = info.LatestTouch
}

// Location is shorthand for c.Physics.Location.
func (c CarState) Location() Vec3 {
	return c.Physics.Location
}

// Velocity is shorthand for c.Physics.Velocity.
func (c CarState) Velocity() Vec3 {
	return c.Physics.Velocity
}
