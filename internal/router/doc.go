// Package router maps engine operations to their owning subsystems.
//
// Operations form a closed set of [Op] constants dispatched through an
// exhaustive switch, so adding an operation without routing it is a
// compile-visible hole rather than a silent runtime miss. Every
// dispatch produces an [Outcome] carrying the result or error, the
// owning subsystem, and the elapsed time; no error from the engine
// escapes as a panic or crosses the dispatch boundary unwrapped.
//
// The router also owns the engine's observability state: per-subsystem
// operation counters and timings, and a synchronous [Observer] hook
// invoked after each dispatch. Counters are process-wide and carry no
// persistence guarantee across restarts.
package router
