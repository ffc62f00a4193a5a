package handle

import "sync"

// Ownership state of a handle.
type State int

const (
	Free     State = iota // No live borrow; the resource may be borrowed.
	Borrowed              // Exactly one live borrow exists.
	Dropped               // The resource has been released; all operations fail.
)

// Returns the state name for logging.
func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Borrowed:
		return "borrowed"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Owns a resource value exclusively.
type Handle[T any] struct {
	mu       sync.Mutex
	resource T
	state    State
	release  func(T) // Runs exactly once on the first Drop. May be nil.
}

// Takes ownership of a resource.
//
// The release function, if non-nil, runs exactly once when the handle
// is dropped, and is the place to free any underlying system resource.
func Acquire[T any](resource T, release func(T)) *Handle[T] {
	return &Handle[T]{resource: resource, release: release}
}

// Borrows the resource for exclusive use.
//
// Fails with [ErrAlreadyBorrowed] while another borrow is live, and
// with [ErrUseAfterDrop] once the handle has been dropped. A successful
// borrow must be paired with [Handle.Release].
func (h *Handle[T]) Borrow() (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var zero T
	switch h.state {
	case Dropped:
		return zero, ErrUseAfterDrop
	case Borrowed:
		return zero, ErrAlreadyBorrowed
	}

	h.state = Borrowed
	return h.resource, nil
}

// Ends the current borrow, making the resource available again.
//
// Releasing a handle that is not borrowed is a no-op. A dropped handle
// stays dropped.
func (h *Handle[T]) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == Borrowed {
		h.state = Free
	}
}

// Drops the handle, releasing the underlying resource.
//
// The release function runs exactly once, on the first call. Further
// drops are no-ops so cleanup paths can drop unconditionally. After a
// drop every borrow fails with [ErrUseAfterDrop].
func (h *Handle[T]) Drop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == Dropped {
		return
	}

	h.state = Dropped
	if h.release != nil {
		h.release(h.resource)
	}
}

// Returns the current ownership state.
func (h *Handle[T]) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}
