package registry

import (
	"iter"
	"sync"

	"github.com/RedUtils/botcore/pkg/core"
)

// Registry holds the roster of tracked cars.
// Identities are assigned at initialization and kept across in-place updates.
type Registry struct {
	m    sync.RWMutex
	cars []core.CarState
}

func New() *Registry {
	return &Registry{}
}

// Init discards all tracked cars and rebuilds the roster from infos,
// assigning identities 0..N-1 in order.
func (r *Registry) Init(infos []core.CarInfo) {
	r.m.Lock()
	defer r.m.Unlock()
	r.initLocked(infos)
}

func (r *Registry) initLocked(infos []core.CarInfo) {
	r.cars = make([]core.CarState, len(infos))
	for i, info := range infos {
		r.cars[i] = core.NewCarState(i, info)
	}
}

// Reconcile brings the roster in line with snap. A different car count forces
// a full reinitialization; otherwise cars are updated in place by position.
func (r *Registry) Reconcile(snap core.WorldSnapshot) (reinitialized bool) {
	r.m.Lock()
	defer r.m.Unlock()

	if len(snap.Cars) != len(r.cars) {
		r.initLocked(snap.Cars)
		return true
	}
	for i := range r.cars {
		r.cars[i].Update(snap.Cars[i])
	}
	return false
}

// Reset empties the roster.
func (r *Registry) Reset() {
	r.m.Lock()
	defer r.m.Unlock()
	r.cars = nil
}

// Len returns the number of tracked cars.
func (r *Registry) Len() int {
	r.m.RLock()
	defer r.m.RUnlock()
	return len(r.cars)
}

// Get returns the car with the given identity.
func (r *Registry) Get(index int) (core.CarState, bool) {
	r.m.RLock()
	defer r.m.RUnlock()
	if index < 0 || index >= len(r.cars) {
		return core.CarState{}, false
	}
	return r.cars[index], true
}

// Cars returns a copy of the roster.
func (r *Registry) Cars() []core.CarState {
	r.m.RLock()
	defer r.m.RUnlock()
	out := make([]core.CarState, len(r.cars))
	copy(out, r.cars)
	return out
}

// All iterates over a copy of the roster taken at call time.
func (r *Registry) All() iter.Seq[core.CarState] {
	cars := r.Cars()
	return func(yield func(core.CarState) bool) {
		for _, c := range cars {
			if !yield(c) {
				return
			}
		}
	}
}

// Filter returns the cars matching keep, in identity order.
func (r *Registry) Filter(keep func(core.CarState) bool) []core.CarState {
	var out []core.CarState
	for c := range r.All() {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
