// Package strategy contains strategies shipped with the botcore binary.
package strategy

import (
	"github.com/RedUtils/botcore/internal/action"
	"github.com/RedUtils/botcore/internal/agent"
	"github.com/RedUtils/botcore/pkg/core"
)

// KickoffDuration is how long the kickoff rush holds full throttle.
const KickoffDuration = 2.5

// ChaseBoostAngle is the yaw error, in radians, under which the chase boosts.
const ChaseBoostAngle = 0.3

// Kickoff rushes the ball at every kickoff. During active play it chases
// the ball when Chase is set and stays idle otherwise.
type Kickoff struct {
	Chase bool
}

var _ agent.Strategy = Kickoff{}

func (k Kickoff) Run(ctx *agent.Context) {
	if ctx.HasAction() {
		return
	}
	switch {
	case ctx.IsKickoff():
		ctx.SetAction(&action.Hold{
			Name:     "kickoff",
			Controls: core.ControllerState{Throttle: 1, Boost: true},
			Duration: KickoffDuration,
		})
	case k.Chase && ctx.Game.Phase() == core.PhaseActive:
		ctx.SetAction(&action.Chase{BoostAngle: ChaseBoostAngle})
	}
}
