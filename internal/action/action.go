// Package action holds reusable multi-tick actions.
package action

import (
	"math"

	"github.com/RedUtils/botcore/internal/agent"
	"github.com/RedUtils/botcore/pkg/core"
)

// steerGain converts a yaw error in radians into a steer input.
const steerGain = 2.5

// Hold applies a fixed controller state for a span of game time.
type Hold struct {
	Name     string
	Controls core.ControllerState
	// Duration is in game seconds, counted from the first run.
	Duration float64
	// CanInterrupt makes the action yield to a new ball touch.
	CanInterrupt bool

	started  bool
	start    float64
	finished bool
}

var _ agent.Action = (*Hold)(nil)

func (h *Hold) String() string {
	if h.Name != "" {
		return h.Name
	}
	return "hold"
}

func (h *Hold) Run(ctx *agent.Context) error {
	now := ctx.Time()
	if !h.started {
		h.started = true
		h.start = now
	}
	ctx.Controller = h.Controls
	if now-h.start >= h.Duration {
		h.finished = true
	}
	return nil
}

func (h *Hold) Finished() bool      { return h.finished }
func (h *Hold) Interruptible() bool { return h.CanInterrupt }

// Chase drives at the ball, boosting when roughly facing it. It never
// finishes on its own and is cleared by the next touch.
type Chase struct {
	// BoostAngle is the largest yaw error, in radians, at which boost is held.
	BoostAngle float64
}

var _ agent.Action = (*Chase)(nil)

func (c *Chase) String() string { return "chase" }

func (c *Chase) Run(ctx *agent.Context) error {
	me := ctx.Me()
	steer, yawErr := SteerToward(me, ctx.Ball.Location())
	ctx.Controller.Throttle = 1
	ctx.Controller.Steer = steer
	ctx.Controller.Boost = math.Abs(yawErr) < c.BoostAngle && me.Boost > 0
	ctx.Controller.Handbrake = math.Abs(yawErr) > math.Pi/2
	return nil
}

func (c *Chase) Finished() bool      { return false }
func (c *Chase) Interruptible() bool { return true }

// SteerToward returns the steer input that turns car toward target on the
// ground plane, along with the signed yaw error in radians.
func SteerToward(car core.CarState, target core.Vec3) (steer, yawErr float64) {
	d := target.Sub(car.Location())
	yawErr = normalizeAngle(math.Atan2(d.Y, d.X) - car.Physics.Rotation.Yaw)
	return clamp(yawErr*steerGain, -1, 1), yawErr
}

func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
