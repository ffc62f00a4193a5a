// Package runtime owns the container state machine.
//
// A [Runtime] is the engine context: it holds every container record
// and the image, network, and volume stores the records refer to.
// There is no ambient global state; everything reachable from a
// container operation hangs off the runtime passed to its constructor.
//
// Each container record is wrapped in an exclusive-ownership handle for
// its entire lifetime. Every mutation borrows the handle first, which
// guarantees at most one writer even while setup sub-tasks run
// concurrently; sub-tasks only return values, and the owning lifecycle
// step performs the merge-write. External readers get transient
// snapshots, never the live record.
//
// Containers move created -> running -> stopped or failed. The stopped
// and failed states are terminal for a run, but the record persists and
// stays listable; a failed container is a normal, observable outcome,
// not an error crossing the engine boundary.
package runtime
