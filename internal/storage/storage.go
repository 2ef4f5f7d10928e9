// Package storage defines the match recording backend interface.
package storage

import (
	"errors"

	"github.com/RedUtils/botcore/pkg/core"
)

// ErrNoMatch is returned when recording before StartMatch.
var ErrNoMatch = errors.New("no match started")

// Backend is the interface all match recording implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management (assigns ID to the passed pointer where supported)
	StartMatch(match *core.Match) error
	EndMatch() error

	// Per-tick recording
	RecordTick(t *core.TickRecord) error
	RecordAction(e *core.ActionEvent) error
	RecordTouch(t *core.BallTouch) error
	RecordPrediction(p *core.PredictionRecord) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to a replay server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// QueueReporter is implemented by backends that buffer records before
// writing them. Keys name the record kind.
type QueueReporter interface {
	QueueLengths() map[string]int
}

// StatusRecorder is implemented by backends that keep periodic agent
// health samples next to the match.
type StatusRecorder interface {
	RecordStatus(s *core.AgentStatus) error
}
