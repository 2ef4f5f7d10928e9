package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/RedUtils/botcore/internal/dispatcher"
	"github.com/RedUtils/botcore/internal/influx"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/pkg/core"
)

// uploadTimeout bounds the replay upload done on :MATCH:END:.
const uploadTimeout = 30 * time.Second

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Match lifecycle - sync, the host waits for the match ID
	d.Register(":MATCH:START:", m.handleMatchStart, dispatcher.Logged())
	d.Register(":MATCH:END:", m.handleMatchEnd, dispatcher.Logged())

	// The tick chain - sync, the reply carries the controller state
	d.Register(":TICK:", m.handleTick)
	d.Register(":PREDICTION:", m.handlePrediction)

	// Host supplied metrics - buffered
	d.Register(":METRIC:", m.handleMetric, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (m *Manager) handleMatchStart(e dispatcher.Event) (any, error) {
	m.journal(e.Command, e.Args)

	obj, err := m.deps.Parser.ParseMatchStart(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to start match: %w", err)
	}
	if obj.AgentName == "" {
		obj.AgentName = m.deps.AgentName
	}
	if obj.Tag == "" {
		obj.Tag = m.deps.DefaultTag
	}

	if m.deps.MatchContext.Active() {
		m.deps.LogManager.WriteLog(":MATCH:START:", "Previous match was not ended, ending it now", "WARN")
		if _, err := m.endMatch(); err != nil {
			m.deps.LogManager.WriteLog(":MATCH:START:", fmt.Sprintf("Failed to end previous match: %v", err), "ERROR")
		}
	}

	m.deps.Agent.StartMatch(obj)
	m.mu.Lock()
	m.predictions = 0
	m.mu.Unlock()

	if m.hasBackend() {
		if err := m.backend.StartMatch(&obj); err != nil {
			return nil, fmt.Errorf("failed to record match start: %w", err)
		}
	}
	m.deps.MatchContext.SetMatch(obj)

	m.deps.LogManager.Logger().Info("Match started",
		"matchId", obj.ID,
		"name", obj.Name,
		"agentIndex", obj.AgentIndex,
		"team", obj.Team.String(),
	)
	return obj.ID, nil
}

func (m *Manager) handleMatchEnd(e dispatcher.Event) (any, error) {
	m.journal(e.Command, e.Args)
	return m.endMatch()
}

// endMatch finalizes the recording and returns the exported file path, if any.
// EndMatch ends the running match the same way :MATCH:END: does. It is used
// on shutdown so a match the host never closed is still flushed.
func (m *Manager) EndMatch() (string, error) {
	return m.endMatch()
}

func (m *Manager) endMatch() (string, error) {
	if !m.deps.MatchContext.Active() {
		return "", ErrNoMatch
	}
	m.deps.MatchContext.EndMatch()

	if !m.hasBackend() {
		return "", nil
	}
	if err := m.backend.EndMatch(); err != nil {
		return "", fmt.Errorf("failed to end match: %w", err)
	}

	up, ok := m.backend.(storage.Uploadable)
	if !ok {
		return "", nil
	}
	path := up.GetExportedFilePath()
	if path == "" || m.deps.Uploader == nil {
		return path, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()
	if err := m.deps.Uploader.Upload(ctx, path, up.GetExportMetadata()); err != nil {
		m.deps.LogManager.WriteLog(":MATCH:END:", fmt.Sprintf("Upload failed, recording kept at %s: %v", path, err), "ERROR")
		return path, nil
	}
	m.deps.LogManager.WriteLog(":MATCH:END:", fmt.Sprintf("Uploaded %s", path), "INFO")
	return path, nil
}

// handleTick runs one agent tick. A malformed payload still answers with the
// output chosen by the malformed policy, so the host always gets controls.
func (m *Manager) handleTick(e dispatcher.Event) (any, error) {
	m.journal(e.Command, e.Args)

	res, err := m.deps.Agent.Tick(e.Args)
	if err != nil {
		return res.Output, nil
	}

	if !m.deps.MatchContext.Active() {
		return res.Output, nil
	}

	now := time.Now()
	rec := tickRecord(res, now)
	if m.hasBackend() {
		m.record("tick", m.backend.RecordTick(&rec))
		for _, ev := range actionEvents(res, now) {
			m.record("action", m.backend.RecordAction(&ev))
		}
		if res.NewTouch != nil {
			m.record("touch", m.backend.RecordTouch(res.NewTouch))
		}
	}

	if m.deps.Influx != nil {
		match := m.deps.MatchContext.GetMatch()
		if res.Accepted {
			if err := m.deps.Influx.WritePoint(m.deps.Influx.PerformanceBucket(), influx.TickPoint(match, rec)); err != nil {
				m.deps.LogManager.WriteLog(":TICK:", err.Error(), "DEBUG")
			}
		}
		if res.NewTouch != nil {
			if err := m.deps.Influx.WritePoint(influx.BucketMatch, influx.TouchPoint(match, *res.NewTouch)); err != nil {
				m.deps.LogManager.WriteLog(":TICK:", err.Error(), "DEBUG")
			}
		}
	}

	return res.Output, nil
}

func (m *Manager) handlePrediction(e dispatcher.Event) (any, error) {
	m.journal(e.Command, e.Args)

	slices, err := m.deps.Parser.ParsePrediction(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to update prediction: %w", err)
	}
	m.deps.Agent.UpdatePrediction(slices)

	m.mu.Lock()
	m.predictions++
	sample := (m.predictions-1)%uint64(m.deps.PredictionSampleEvery) == 0
	m.mu.Unlock()

	if sample && m.recording() {
		stats := m.deps.Agent.Stats()
		var gameTime float64
		if len(slices) > 0 {
			gameTime = slices[0].Time
		}
		m.record("prediction", m.backend.RecordPrediction(&core.PredictionRecord{
			Tick:     stats.Ticks,
			Time:     time.Now(),
			GameTime: gameTime,
			Slices:   slices,
		}))
	}

	return len(slices), nil
}

func (m *Manager) handleMetric(e dispatcher.Event) (any, error) {
	if m.deps.Influx == nil {
		return nil, nil
	}
	bucket, point, err := influx.ParseMetric(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	if err := m.deps.Influx.WritePoint(bucket, point); err != nil {
		return nil, fmt.Errorf("failed to write metric: %w", err)
	}
	return nil, nil
}
