// Package agent runs the per-tick pipeline: ingest a snapshot, update the
// tracked world, run the strategy and the current action, and emit a
// controller state.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/RedUtils/botcore/internal/game"
	"github.com/RedUtils/botcore/internal/phase"
	"github.com/RedUtils/botcore/internal/prediction"
	"github.com/RedUtils/botcore/internal/registry"
	"github.com/RedUtils/botcore/internal/scheduler"
	"github.com/RedUtils/botcore/internal/touch"
	"github.com/RedUtils/botcore/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Action is a multi-tick behaviour held in the agent's action slot.
type Action interface {
	scheduler.Status
	Run(ctx *Context) error
}

// Strategy decides, once per tick, what the agent does. It may assign an
// action through the context and must not block.
type Strategy interface {
	Run(ctx *Context)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx *Context)

func (f StrategyFunc) Run(ctx *Context) { f(ctx) }

// SnapshotParser turns raw tick arguments into a snapshot.
type SnapshotParser interface {
	ParseTick(args []string) (core.WorldSnapshot, error)
}

// MalformedPolicy selects the output of a tick whose payload was rejected.
type MalformedPolicy string

const (
	// RepeatLast re-emits the previous tick's output.
	RepeatLast MalformedPolicy = "repeat"
	// Neutral emits a zero controller state.
	Neutral MalformedPolicy = "neutral"
)

// ParseMalformedPolicy maps a config string to a policy.
func ParseMalformedPolicy(s string) (MalformedPolicy, error) {
	switch MalformedPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", RepeatLast:
		return RepeatLast, nil
	case Neutral:
		return Neutral, nil
	default:
		return "", fmt.Errorf("unknown malformed policy: %q", s)
	}
}

// Config configures an Agent.
type Config struct {
	Name            string
	Index           int
	Team            core.Team
	MalformedPolicy MalformedPolicy
	Prediction      prediction.Config
}

// Result describes one processed tick.
type Result struct {
	Tick          uint64
	Output        core.ControllerState
	Accepted      bool
	Malformed     bool
	Reinitialized bool
	KickoffFired  bool
	Phase         core.MatchPhase
	GameTime      float64
	DeltaTime     float64
	CarCount      int
	Ball          core.Vec3
	// NewTouch is set when the ledger picked up a newer touch this tick.
	NewTouch    *core.BallTouch
	Action      string
	Transitions []scheduler.Transition
	// Fault is the *scheduler.ActionFault or strategy panic of this tick.
	Fault    error
	Duration time.Duration
}

// Stats are cumulative counters since the last Reset.
type Stats struct {
	Ticks         uint64
	Accepted      uint64
	Stale         uint64
	Malformed     uint64
	Faults        uint64
	Reinitialized uint64
	Clears        map[string]uint64
	Cars          int
}

// Agent owns the tracked world and processes ticks strictly in order.
type Agent struct {
	mu sync.Mutex

	cfg      Config
	parser   SnapshotParser
	strategy Strategy
	logger   *slog.Logger

	ctx      *Context
	clock    *game.Clock
	detector *phase.Detector
	sched    *scheduler.Scheduler[Action]
	buffer   *prediction.Buffer

	ready      bool
	tick       uint64
	lastOutput core.ControllerState
	stats      Stats

	ticks   metric.Int64Counter
	cleared metric.Int64Counter
}

// New creates an agent. A nil logger falls back to slog.Default.
func New(cfg Config, parser SnapshotParser, strategy Strategy, logger *slog.Logger) (*Agent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MalformedPolicy == "" {
		cfg.MalformedPolicy = RepeatLast
	}
	if strategy == nil {
		strategy = StrategyFunc(func(*Context) {})
	}

	a := &Agent{
		cfg:      cfg,
		parser:   parser,
		strategy: strategy,
		logger:   logger,
		clock:    game.NewClock(),
		detector: phase.NewDetector(),
		sched:    scheduler.New[Action](),
		buffer:   prediction.NewBuffer(),
		stats:    Stats{Clears: make(map[string]uint64)},
	}
	a.ctx = &Context{
		Index:      cfg.Index,
		Team:       cfg.Team,
		Game:       game.NewState(),
		Cars:       registry.New(),
		Touches:    touch.NewLedger(),
		Prediction: prediction.NewAdapter(a.buffer, cfg.Prediction),
		Logger:     logger,
		clock:      a.clock,
		scheduler:  a.sched,
	}

	m := meter()
	var err error
	a.ticks, err = m.Int64Counter(
		"agent.ticks",
		metric.WithDescription("Ticks processed by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	a.cleared, err = m.Int64Counter(
		"agent.actions.cleared",
		metric.WithDescription("Actions cleared by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cleared counter: %w", err)
	}

	return a, nil
}

// Context returns the agent's context. It must only be used between ticks
// by the goroutine that drives the agent.
func (a *Agent) Context() *Context {
	return a.ctx
}

// Identity returns the agent's index and team.
func (a *Agent) Identity() (int, core.Team) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx.Index, a.ctx.Team
}

// StartMatch resets the tracked world and adopts the match's agent identity.
func (a *Agent) StartMatch(m core.Match) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
	a.ctx.Index = m.AgentIndex
	a.ctx.Team = m.Team
}

// Reset drops all tracked state, as if no tick had been seen.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
}

func (a *Agent) resetLocked() {
	a.sched.Abort(scheduler.ClearReset)
	a.sched.Drain()
	a.clock.Reset()
	a.detector.Reset()
	a.buffer.Clear()
	a.ctx.Game.Reset()
	a.ctx.Cars.Reset()
	a.ctx.Touches.Reset()
	a.ctx.Ball = core.BallState{}
	a.ctx.Controller = core.ControllerState{}
	a.ctx.Tick = 0
	a.ready = false
	a.tick = 0
	a.lastOutput = core.ControllerState{}
	a.stats = Stats{Clears: make(map[string]uint64)}
}

// UpdatePrediction replaces the ball prediction the context iterates.
func (a *Agent) UpdatePrediction(slices []core.BallSlice) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffer.Store(a.tick, slices)
}

// Stats returns a copy of the counters.
func (a *Agent) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.Clears = make(map[string]uint64, len(a.stats.Clears))
	for k, v := range a.stats.Clears {
		s.Clears[k] = v
	}
	s.Cars = a.ctx.Cars.Len()
	return s
}

// Tick parses args and runs one tick. A malformed payload skips the tick
// without touching any state; the returned result then carries the output
// selected by the malformed policy alongside the parse error.
func (a *Agent) Tick(args []string) (Result, error) {
	if a.parser == nil {
		return Result{}, errors.New("agent has no snapshot parser")
	}
	snap, err := a.parser.ParseTick(args)
	if err != nil {
		return a.malformed(err), err
	}
	return a.Step(snap), nil
}

func (a *Agent) malformed(err error) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Malformed++
	a.ticks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", "malformed")))
	a.logger.Warn("skipping malformed tick", "tick", a.tick, "error", err)

	out := core.ControllerState{}
	if a.cfg.MalformedPolicy == RepeatLast {
		out = a.lastOutput
	}
	return Result{
		Tick:      a.tick,
		Output:    out,
		Malformed: true,
		Phase:     a.ctx.Game.Phase(),
		GameTime:  a.clock.Time(),
	}
}

// Step runs one tick on an already parsed snapshot.
func (a *Agent) Step(snap core.WorldSnapshot) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	a.tick++
	ctx := a.ctx
	ctx.Tick = a.tick
	ctx.Controller = core.ControllerState{}
	res := Result{Tick: a.tick}

	if !a.ready {
		ctx.Cars.Init(snap.Cars)
		a.ready = true
		res.Reinitialized = true
	}

	res.Accepted = a.clock.Accept(snap.SecondsElapsed)
	if res.Accepted {
		if ctx.Cars.Reconcile(snap) {
			res.Reinitialized = true
		}
		if ctx.Touches.Observe(ctx.Cars.Cars()) {
			if latest, ok := ctx.Touches.Latest(); ok {
				res.NewTouch = &latest
			}
		}
		if len(snap.Balls) > 0 {
			ctx.Ball = core.BallState{Physics: snap.Balls[0].Physics}
			if latest, ok := ctx.Touches.Latest(); ok {
				ctx.Ball.LatestTouch = &latest
			}
		}
		ctx.Game.Apply(snap)
	} else {
		a.logger.Debug("stale tick", "tick", a.tick, "elapsed", snap.SecondsElapsed, "stored", a.clock.Time())
	}

	if a.detector.Observe(ctx.Game.Phase()) {
		res.KickoffFired = true
		a.sched.Abort(scheduler.ClearKickoff)
	}

	if err := a.runStrategy(ctx); err != nil {
		res.Fault = err
		a.stats.Faults++
		a.logger.Error("strategy failed", "tick", a.tick, "error", err)
	}

	if err := a.sched.Execute(func(act Action) error { return act.Run(ctx) }); err != nil {
		res.Fault = err
		a.stats.Faults++
		a.logger.Warn("action failed", "tick", a.tick, "error", err)
	}

	a.sched.Check(ctx.Touches.Time(), ctx.Me().Demolished)
	res.DeltaTime = a.clock.Finalize()

	res.Transitions = a.sched.Drain()
	for _, tr := range res.Transitions {
		if tr.Assigned {
			continue
		}
		reason := tr.Reason.String()
		a.stats.Clears[reason]++
		a.cleared.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
		a.logger.Debug("action cleared", "tick", a.tick, "action", tr.Action, "reason", reason)
	}
	if act, ok := a.sched.Current(); ok {
		res.Action = scheduler.Name(act)
	}

	outcome := "stale"
	a.stats.Ticks++
	if res.Accepted {
		outcome = "accepted"
		a.stats.Accepted++
	} else {
		a.stats.Stale++
	}
	if res.Reinitialized {
		a.stats.Reinitialized++
	}
	a.ticks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	a.lastOutput = ctx.Controller
	res.Output = ctx.Controller
	res.Phase = ctx.Game.Phase()
	res.GameTime = a.clock.Time()
	res.CarCount = ctx.Cars.Len()
	res.Ball = ctx.Ball.Location()
	res.Duration = time.Since(start)
	return res
}

func (a *Agent) runStrategy(ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panic: %v", r)
		}
	}()
	a.strategy.Run(ctx)
	return nil
}
