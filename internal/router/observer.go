package router

import "log/slog"

// Receives every dispatch outcome, synchronously, after the operation
// completes. Implementations must be fast; they run on the dispatch
// path.
type Observer interface {
	OperationComplete(outcome Outcome)
}

// Observer that mirrors outcomes to the structured log.
type LogObserver struct{}

func (LogObserver) OperationComplete(outcome Outcome) {
	if outcome.Err != nil {
		slog.Warn("operation failed",
			"op", outcome.Op,
			"subsystem", outcome.Subsystem,
			"elapsed", outcome.Elapsed,
			"error", outcome.Err,
		)
		return
	}
	slog.Debug("operation complete",
		"op", outcome.Op,
		"subsystem", outcome.Subsystem,
		"elapsed", outcome.Elapsed,
	)
}
