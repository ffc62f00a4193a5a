// Package taskset runs independent setup tasks in parallel.
//
// A [Set] holds an ordered list of tasks. [Set.Run] starts every task
// on its own goroutine, waits for all of them, and returns one result
// per task, aligned by index with the order the tasks were added.
//
// The set never short-circuits: provisioning steps such as namespace,
// network, and volume setup are independent, and a caller deciding on
// rollback needs to know exactly which steps succeeded. There is no
// cancellation at this layer either; once started, every task runs to
// completion, and callers that lose interest simply ignore the results.
//
// Example usage:
//
//	s := taskset.New[string]()
//	s.Add(func(ctx context.Context) (string, error) { return fetchA(ctx) })
//	s.Add(func(ctx context.Context) (string, error) { return fetchB(ctx) })
//
//	results := s.Run(ctx)
//	if err := taskset.FirstError(results); err != nil {
//	    return err
//	}
package taskset
