// Package scheduler owns the single action slot of an agent and decides,
// once per tick, whether a running action must be cleared.
package scheduler

import (
	"fmt"

	"github.com/RedUtils/botcore/internal/touch"
)

// Status is the part of an action the scheduler inspects.
type Status interface {
	Finished() bool
	Interruptible() bool
}

// ClearReason says why an action left the slot.
type ClearReason int

const (
	NotCleared ClearReason = iota
	ClearFinished
	ClearTouched
	ClearDemolished
	ClearKickoff
	ClearFault
	ClearReplaced
	ClearReset
)

var reasonNames = [...]string{
	NotCleared:      "none",
	ClearFinished:   "finished",
	ClearTouched:    "touched",
	ClearDemolished: "demolished",
	ClearKickoff:    "kickoff",
	ClearFault:      "fault",
	ClearReplaced:   "replaced",
	ClearReset:      "reset",
}

func (r ClearReason) String() string {
	if r >= 0 && int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// ActionFault is returned when an action's run step fails or panics.
// The action has already been cleared when the caller sees it.
type ActionFault struct {
	Action string
	Cause  error
}

func (e *ActionFault) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.Action, e.Cause)
}

func (e *ActionFault) Unwrap() error {
	return e.Cause
}

// Transition is one change of the slot, kept until Drain.
type Transition struct {
	Action   string
	Assigned bool
	Reason   ClearReason
	Err      error
}

// Name returns a printable name for an action.
func Name(a any) string {
	if s, ok := a.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", a)
}

// Scheduler drives a Slot through the Idle/Running transitions.
type Scheduler[A Status] struct {
	slot        Slot[A]
	touchTime   float64
	transitions []Transition
}

// New creates an idle scheduler.
func New[A Status]() *Scheduler[A] {
	return &Scheduler[A]{slot: Idle[A](), touchTime: touch.None}
}

// Slot returns the current slot.
func (s *Scheduler[A]) Slot() Slot[A] {
	return s.slot
}

// Current returns the running action, if any.
func (s *Scheduler[A]) Current() (A, bool) {
	return s.slot.Action()
}

// Assign puts a into the slot and arms it with the current touch time.
// A running action is replaced.
func (s *Scheduler[A]) Assign(a A, touchTime float64) {
	if !s.slot.IsIdle() {
		s.clear(ClearReplaced, nil)
	}
	s.slot = Running(a)
	s.touchTime = touchTime
	s.transitions = append(s.transitions, Transition{Action: Name(a), Assigned: true})
}

// Abort clears a running action regardless of its interruptibility.
// It reports whether anything was cleared.
func (s *Scheduler[A]) Abort(reason ClearReason) bool {
	if s.slot.IsIdle() {
		return false
	}
	s.clear(reason, nil)
	return true
}

// Execute runs one tick of the current action through run. A returned error
// or a panic clears the action and is reported as an *ActionFault.
// Failed actions are never retried.
func (s *Scheduler[A]) Execute(run func(A) error) (err error) {
	a, ok := s.slot.Action()
	if !ok {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = s.fault(a, fmt.Errorf("panic: %v", r))
		}
	}()

	if runErr := run(a); runErr != nil {
		return s.fault(a, runErr)
	}
	return nil
}

func (s *Scheduler[A]) fault(a A, cause error) error {
	f := &ActionFault{Action: Name(a), Cause: cause}
	s.clear(ClearFault, f)
	return f
}

// Check is the post-run pass. The action is cleared when it is finished,
// when it is interruptible and the touch time moved since the last check,
// or when its owner is demolished. The recorded touch time is refreshed
// on every call.
func (s *Scheduler[A]) Check(touchTime float64, ownerDemolished bool) ClearReason {
	recorded := s.touchTime
	s.touchTime = touchTime

	a, ok := s.slot.Action()
	if !ok {
		return NotCleared
	}

	reason := NotCleared
	switch {
	case a.Finished():
		reason = ClearFinished
	case a.Interruptible() && touchTime != recorded:
		reason = ClearTouched
	case ownerDemolished:
		reason = ClearDemolished
	}

	if reason != NotCleared {
		s.clear(reason, nil)
	}
	return reason
}

// Drain returns and forgets the transitions recorded since the last Drain.
func (s *Scheduler[A]) Drain() []Transition {
	out := s.transitions
	s.transitions = nil
	return out
}

func (s *Scheduler[A]) clear(reason ClearReason, err error) {
	a, _ := s.slot.Action()
	s.transitions = append(s.transitions, Transition{Action: Name(a), Reason: reason, Err: err})
	s.slot = Idle[A]()
}
