package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/RedUtils/botcore/internal/agent"
	"github.com/RedUtils/botcore/internal/influx"
	"github.com/RedUtils/botcore/internal/logging"
	"github.com/RedUtils/botcore/internal/match"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/pkg/core"
)

// DefaultInterval is used when Dependencies.Interval is not set.
const DefaultInterval = 10 * time.Second

// StatsSource provides the agent counters.
type StatsSource interface {
	Stats() agent.Stats
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager   *logging.SlogManager
	MatchContext *match.Context
	Agent        StatsSource
	Backend      storage.Backend // optional, sampled for queue lengths and given the status
	Influx       *influx.Manager // optional
	StatusDir    string          // status.txt is rewritten here each sample, empty disables
	Interval     time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.MatchContext == nil {
		deps.MatchContext = match.NewContext()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample collects the current agent and recorder status.
func (s *Service) Sample() core.AgentStatus {
	status := core.AgentStatus{Time: time.Now()}

	if s.deps.Agent != nil {
		st := s.deps.Agent.Stats()
		status.Ticks = st.Ticks
		status.Accepted = st.Accepted
		status.Stale = st.Stale
		status.Malformed = st.Malformed
		status.Faults = st.Faults
		status.Cars = st.Cars
		status.Clears = st.Clears
	}
	if qr, ok := s.deps.Backend.(storage.QueueReporter); ok {
		status.WriteQueues = qr.QueueLengths()
	}
	return status
}

// GetStatus returns the status as indented JSON lines together with the sample.
func (s *Service) GetStatus() (output []string, status core.AgentStatus) {
	status = s.Sample()

	counters, err := json.MarshalIndent(map[string]any{
		"ticks":     status.Ticks,
		"accepted":  status.Accepted,
		"stale":     status.Stale,
		"malformed": status.Malformed,
		"faults":    status.Faults,
		"cars":      status.Cars,
	}, "", "  ")
	if err != nil {
		counters = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(counters))

	clears, err := json.MarshalIndent(status.Clears, "", "  ")
	if err != nil {
		clears = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(clears))

	queues, err := json.MarshalIndent(status.WriteQueues, "", "  ")
	if err != nil {
		queues = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(queues))

	return output, status
}

// Report takes one sample and sends it to every configured sink. It does
// nothing while no match is active.
func (s *Service) Report() {
	if !s.deps.MatchContext.Active() {
		return
	}
	logger := s.deps.LogManager.Logger()
	m := s.deps.MatchContext.GetMatch()

	lines, status := s.GetStatus()

	if s.deps.StatusDir != "" {
		path := filepath.Join(s.deps.StatusDir, "status.txt")
		content := strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}

	logger.Info("Agent status",
		"ticks", status.Ticks,
		"accepted", status.Accepted,
		"stale", status.Stale,
		"malformed", status.Malformed,
		"faults", status.Faults,
		"cars", status.Cars,
	)

	if rec, ok := s.deps.Backend.(storage.StatusRecorder); ok {
		if err := rec.RecordStatus(&status); err != nil {
			logger.Error("Error recording status", "error", err)
		}
	}

	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(s.deps.Influx.PerformanceBucket(), influx.StatusPoint(m, status)); err != nil {
			logger.Debug("Error writing status point", "error", err)
		}
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		s.deps.LogManager.Logger().Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Report()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.isRunning = false
	done := s.done
	s.mu.Unlock()
	<-done
}
