package agent

import (
	"log/slog"

	"github.com/RedUtils/botcore/internal/game"
	"github.com/RedUtils/botcore/internal/prediction"
	"github.com/RedUtils/botcore/internal/registry"
	"github.com/RedUtils/botcore/internal/scheduler"
	"github.com/RedUtils/botcore/internal/touch"
	"github.com/RedUtils/botcore/pkg/core"
)

// Context is everything a strategy or action sees during one tick.
// It is owned by a single Agent and only valid inside its tick.
type Context struct {
	Index int
	Team  core.Team
	Tick  uint64

	Game       *game.State
	Cars       *registry.Registry
	Ball       core.BallState
	Touches    *touch.Ledger
	Prediction *prediction.Adapter
	Logger     *slog.Logger

	// Controller is reset to neutral at the start of every tick.
	Controller core.ControllerState

	clock     *game.Clock
	scheduler *scheduler.Scheduler[Action]
}

// Me returns the agent's own car. When the roster does not contain the
// agent's index, a neutral car carrying only the index and team is returned.
func (c *Context) Me() core.CarState {
	if car, ok := c.Cars.Get(c.Index); ok {
		return car
	}
	return core.CarState{Index: c.Index, Team: c.Team}
}

// Teammates returns the cars on the agent's team, excluding the agent.
func (c *Context) Teammates() []core.CarState {
	return c.Cars.Filter(func(car core.CarState) bool {
		return car.Team == c.Team && car.Index != c.Index
	})
}

// LivingTeammates is Teammates without demolished cars.
func (c *Context) LivingTeammates() []core.CarState {
	return c.Cars.Filter(func(car core.CarState) bool {
		return car.Team == c.Team && car.Index != c.Index && !car.Demolished
	})
}

// Opponents returns the cars on the other team.
func (c *Context) Opponents() []core.CarState {
	return c.Cars.Filter(func(car core.CarState) bool {
		return car.Team != c.Team
	})
}

// LivingOpponents is Opponents without demolished cars.
func (c *Context) LivingOpponents() []core.CarState {
	return c.Cars.Filter(func(car core.CarState) bool {
		return car.Team != c.Team && !car.Demolished
	})
}

func (c *Context) OurScore() int {
	return c.Game.Score(c.Team)
}

func (c *Context) TheirScore() int {
	return c.Game.Score(c.Team.Other())
}

func (c *Context) IsKickoff() bool {
	return c.Game.IsKickoff()
}

// DeltaTime is the delta reported by the previous tick's clock finalize.
func (c *Context) DeltaTime() float64 {
	return c.clock.DeltaTime()
}

// Time is the last accepted elapsed game time.
func (c *Context) Time() float64 {
	return c.clock.Time()
}

// Action returns the running action, if any.
func (c *Context) Action() (Action, bool) {
	return c.scheduler.Current()
}

// SetAction assigns a as the running action, replacing any current one.
// The action is armed with the current latest-touch time.
func (c *Context) SetAction(a Action) {
	c.scheduler.Assign(a, c.Touches.Time())
}

// HasAction reports whether an action is running.
func (c *Context) HasAction() bool {
	return !c.scheduler.Slot().IsIdle()
}
