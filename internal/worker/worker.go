package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RedUtils/botcore/internal/agent"
	"github.com/RedUtils/botcore/internal/influx"
	"github.com/RedUtils/botcore/internal/journal"
	"github.com/RedUtils/botcore/internal/logging"
	"github.com/RedUtils/botcore/internal/match"
	"github.com/RedUtils/botcore/internal/parser"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/pkg/core"
)

// DefaultPredictionSampleEvery is how many prediction updates pass between
// two recorded prediction paths.
const DefaultPredictionSampleEvery = 60

// ErrNoMatch is returned by :MATCH:END: when no match is running.
var ErrNoMatch = errors.New("no match running")

// Uploader sends an exported recording to a replay server.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Agent        *agent.Agent
	Parser       *parser.Parser
	MatchContext *match.Context
	LogManager   *logging.SlogManager

	// optional sinks
	Influx   *influx.Manager
	Journal  *journal.Writer
	Uploader Uploader

	// AgentName and DefaultTag fill in what :MATCH:START: leaves out
	AgentName  string
	DefaultTag string
	// PredictionSampleEvery records one prediction path per that many updates
	PredictionSampleEvery int
}

// Manager turns host commands into agent ticks and fans the results out to
// the recording backend and telemetry sinks.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	mu          sync.Mutex
	predictions uint64
}

// NewManager creates a new worker manager. backend may be nil when nothing is recorded.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.MatchContext == nil {
		deps.MatchContext = match.NewContext()
	}
	if deps.PredictionSampleEvery <= 0 {
		deps.PredictionSampleEvery = DefaultPredictionSampleEvery
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

func (m *Manager) hasBackend() bool {
	return m.backend != nil
}

// recording reports whether per-tick data should go to the backend.
func (m *Manager) recording() bool {
	return m.hasBackend() && m.deps.MatchContext.Active()
}

// journal writes a command to the raw journal if one is configured.
func (m *Manager) journal(command string, args []string) {
	if m.deps.Journal == nil {
		return
	}
	if err := m.deps.Journal.Append(command, args); err != nil {
		m.deps.LogManager.WriteLog("journal", err.Error(), "WARN")
	}
}

// record logs a recording failure. ErrNoMatch is expected between matches.
func (m *Manager) record(kind string, err error) {
	if err == nil || errors.Is(err, storage.ErrNoMatch) {
		return
	}
	m.deps.LogManager.Logger().Error("Failed to record", "kind", kind, "error", err)
}

// tickRecord turns an agent result into the telemetry summary.
func tickRecord(res agent.Result, now time.Time) core.TickRecord {
	return core.TickRecord{
		Tick:       res.Tick,
		Time:       now,
		GameTime:   res.GameTime,
		DeltaTime:  res.DeltaTime,
		Phase:      res.Phase,
		Accepted:   res.Accepted,
		CarCount:   res.CarCount,
		Ball:       res.Ball,
		Controller: res.Output,
		Action:     res.Action,
		Duration:   res.Duration,
	}
}

// actionEvents converts the slot transitions of a tick to records.
func actionEvents(res agent.Result, now time.Time) []core.ActionEvent {
	if len(res.Transitions) == 0 {
		return nil
	}
	out := make([]core.ActionEvent, 0, len(res.Transitions))
	for _, tr := range res.Transitions {
		e := core.ActionEvent{
			Tick:     res.Tick,
			Time:     now,
			GameTime: res.GameTime,
			Action:   tr.Action,
			Kind:     core.ActionAssigned,
		}
		if !tr.Assigned {
			e.Kind = core.ActionCleared
			e.Reason = tr.Reason.String()
		}
		if tr.Err != nil {
			e.Error = tr.Err.Error()
		}
		out = append(out, e)
	}
	return out
}
