package scheduler

// Slot is either Idle or Running(action).
type Slot[A Status] struct {
	action  A
	running bool
}

// Idle returns an empty slot.
func Idle[A Status]() Slot[A] {
	return Slot[A]{}
}

// Running returns a slot holding a.
func Running[A Status](a A) Slot[A] {
	return Slot[A]{action: a, running: true}
}

// IsIdle reports whether the slot is empty.
func (s Slot[A]) IsIdle() bool {
	return !s.running
}

// Action returns the held action and true when running.
func (s Slot[A]) Action() (A, bool) {
	return s.action, s.running
}

func (s Slot[A]) String() string {
	if !s.running {
		return "idle"
	}
	return "running(" + Name(s.action) + ")"
}
