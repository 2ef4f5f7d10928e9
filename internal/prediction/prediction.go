// Package prediction exposes the host's ball trajectory prediction as a
// bounded, chronological sequence of slices.
package prediction

import (
	"iter"
	"sync"

	"github.com/RedUtils/botcore/pkg/core"
)

// Default bounds, matching six seconds of prediction at 120Hz.
const (
	DefaultMaxSlices = 720
	DefaultHorizon   = 6.0
)

// Source returns the latest raw slices. Implementations must not mutate a
// returned slice after handing it out.
type Source interface {
	Slices() []core.BallSlice
}

// Buffer is a Source holding the most recently received prediction.
type Buffer struct {
	mu     sync.RWMutex
	slices []core.BallSlice
	tick   uint64
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Store replaces the held prediction. The buffer keeps its own copy.
func (b *Buffer) Store(tick uint64, slices []core.BallSlice) {
	cp := make([]core.BallSlice, len(slices))
	copy(cp, slices)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.slices = cp
	b.tick = tick
}

// Slices returns the held prediction.
func (b *Buffer) Slices() []core.BallSlice {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.slices
}

// Tick returns the agent tick at which the prediction was stored.
func (b *Buffer) Tick() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tick
}

// Clear drops the held prediction.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slices = nil
	b.tick = 0
}

// Config bounds the adapter's output.
type Config struct {
	MaxSlices int
	// Horizon is measured in seconds from the first slice.
	Horizon float64
}

// Adapter turns a Source into a finite iterator.
type Adapter struct {
	source Source
	cfg    Config
}

// NewAdapter creates an adapter. Non-positive bounds fall back to defaults.
func NewAdapter(source Source, cfg Config) *Adapter {
	if cfg.MaxSlices <= 0 {
		cfg.MaxSlices = DefaultMaxSlices
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}
	return &Adapter{source: source, cfg: cfg}
}

// Predict yields slices in chronological order. Iteration stops at the
// first slice earlier than its predecessor, after MaxSlices slices, or once
// a slice lies beyond the horizon. Every call re-reads the source.
func (a *Adapter) Predict() iter.Seq[core.BallSlice] {
	return func(yield func(core.BallSlice) bool) {
		if a.source == nil {
			return
		}
		slices := a.source.Slices()
		if len(slices) == 0 {
			return
		}

		end := slices[0].Time + a.cfg.Horizon
		prev := slices[0].Time
		for i, s := range slices {
			if i >= a.cfg.MaxSlices || s.Time < prev || s.Time > end {
				return
			}
			prev = s.Time
			if !yield(s) {
				return
			}
		}
	}
}

// At returns the first predicted slice at or after t.
func (a *Adapter) At(t float64) (core.BallSlice, bool) {
	for s := range a.Predict() {
		if s.Time >= t {
			return s, true
		}
	}
	return core.BallSlice{}, false
}

// Collect materializes Predict.
func (a *Adapter) Collect() []core.BallSlice {
	var out []core.BallSlice
	for s := range a.Predict() {
		out = append(out, s)
	}
	return out
}
