package monitor

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/RedUtils/botcore/internal/agent"
	"github.com/RedUtils/botcore/internal/match"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct{ stats agent.Stats }

func (f fakeStats) Stats() agent.Stats { return f.stats }

// recordingBackend is a storage.Backend that keeps statuses and reports fixed queue lengths.
type recordingBackend struct {
	mu       sync.Mutex
	statuses []core.AgentStatus
}

func (b *recordingBackend) Init() error                                   { return nil }
func (b *recordingBackend) Close() error                                  { return nil }
func (b *recordingBackend) StartMatch(*core.Match) error                  { return nil }
func (b *recordingBackend) EndMatch() error                               { return nil }
func (b *recordingBackend) RecordTick(*core.TickRecord) error             { return nil }
func (b *recordingBackend) RecordAction(*core.ActionEvent) error          { return nil }
func (b *recordingBackend) RecordTouch(*core.BallTouch) error             { return nil }
func (b *recordingBackend) RecordPrediction(*core.PredictionRecord) error { return nil }
func (b *recordingBackend) QueueLengths() map[string]int                  { return map[string]int{"ticks": 7} }

func (b *recordingBackend) RecordStatus(s *core.AgentStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, *s)
	return nil
}

func (b *recordingBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.statuses)
}

var (
	_ storage.QueueReporter  = (*recordingBackend)(nil)
	_ storage.StatusRecorder = (*recordingBackend)(nil)
)

func testStats() fakeStats {
	return fakeStats{agent.Stats{
		Ticks:    10,
		Accepted: 9,
		Stale:    1,
		Cars:     2,
		Clears:   map[string]uint64{"kickoff": 1},
	}}
}

func TestSample(t *testing.T) {
	tests := []struct {
		name       string
		deps       Dependencies
		wantTicks  uint64
		wantQueues map[string]int
	}{
		{
			name:       "agent and backend",
			deps:       Dependencies{Agent: testStats(), Backend: &recordingBackend{}},
			wantTicks:  10,
			wantQueues: map[string]int{"ticks": 7},
		},
		{
			name:      "nothing wired",
			deps:      Dependencies{},
			wantTicks: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.deps)
			status := s.Sample()
			assert.Equal(t, tt.wantTicks, status.Ticks)
			assert.Equal(t, tt.wantQueues, status.WriteQueues)
			assert.False(t, status.Time.IsZero())
		})
	}
}

func TestGetStatus_Lines(t *testing.T) {
	s := NewService(Dependencies{Agent: testStats(), Backend: &recordingBackend{}})
	lines, status := s.GetStatus()

	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"accepted": 9`)
	assert.Contains(t, lines[1], `"kickoff": 1`)
	assert.Contains(t, lines[2], `"ticks": 7`)
	assert.Equal(t, 2, status.Cars)
}

func TestReport_InactiveMatchIsSkipped(t *testing.T) {
	backend := &recordingBackend{}
	dir := t.TempDir()
	s := NewService(Dependencies{Agent: testStats(), Backend: backend, StatusDir: dir})

	s.Report()

	assert.Zero(t, backend.count())
	assert.NoFileExists(t, filepath.Join(dir, "status.txt"))
}

func TestReport_WritesSinks(t *testing.T) {
	backend := &recordingBackend{}
	dir := t.TempDir()
	mc := match.NewContext()
	mc.SetMatch(core.Match{ID: 1, Name: "m"})

	s := NewService(Dependencies{Agent: testStats(), Backend: backend, MatchContext: mc, StatusDir: dir})
	s.Report()

	assert.Equal(t, 1, backend.count())
	data, err := os.ReadFile(filepath.Join(dir, "status.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ticks": 10`)
}

func TestStartStop(t *testing.T) {
	backend := &recordingBackend{}
	mc := match.NewContext()
	mc.SetMatch(core.Match{ID: 1})

	s := NewService(Dependencies{Agent: testStats(), Backend: backend, MatchContext: mc, Interval: 10 * time.Millisecond})
	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "second start is a no-op")
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool { return backend.count() >= 2 }, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())

	n := backend.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, backend.count(), "no reports after Stop")
}
