// Package memory records a match in memory and exports it as JSON.
package memory

import (
	"sync"

	"github.com/RedUtils/botcore/internal/config"
	"github.com/RedUtils/botcore/internal/storage"
	"github.com/RedUtils/botcore/pkg/core"
)

// Backend keeps one match in memory and exports it to JSON when it ends
type Backend struct {
	cfg   config.MemoryConfig
	match *core.Match

	ticks       []core.TickRecord
	actions     []core.ActionEvent
	touches     []core.BallTouch
	predictions []core.PredictionRecord

	idCounter      uint
	lastExportPath string
	lastExportMeta core.UploadMetadata
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartMatch begins recording a new match and drops anything recorded before
func (b *Backend) StartMatch(match *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	match.ID = b.idCounter
	b.match = match

	b.ticks = nil
	b.actions = nil
	b.touches = nil
	b.predictions = nil

	return nil
}

// EndMatch exports the recorded match. The match stays in memory until the
// next StartMatch.
func (b *Backend) EndMatch() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return storage.ErrNoMatch
	}
	return b.exportJSON()
}

// RecordTick appends a tick summary
func (b *Backend) RecordTick(t *core.TickRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return storage.ErrNoMatch
	}
	b.ticks = append(b.ticks, *t)
	return nil
}

// RecordAction appends an action transition
func (b *Backend) RecordAction(e *core.ActionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return storage.ErrNoMatch
	}
	b.actions = append(b.actions, *e)
	return nil
}

// RecordTouch appends a ball touch
func (b *Backend) RecordTouch(t *core.BallTouch) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return storage.ErrNoMatch
	}
	b.touches = append(b.touches, *t)
	return nil
}

// RecordPrediction appends a sampled prediction path
func (b *Backend) RecordPrediction(p *core.PredictionRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return storage.ErrNoMatch
	}
	rec := *p
	rec.Slices = append([]core.BallSlice(nil), p.Slices...)
	b.predictions = append(b.predictions, rec)
	return nil
}

// TickCount returns the number of ticks recorded for the current match
func (b *Backend) TickCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ticks)
}

// GetExportedFilePath returns the path of the last export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns the metadata of the last export
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
