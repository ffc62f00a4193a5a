package taskset

import (
	"context"
	"sync"
)

// A single independent unit of work.
type Task[T any] func(ctx context.Context) (T, error)

// Outcome of one task.
type Result[T any] struct {
	Value T     // Value returned by the task. Zero when Err is set.
	Err   error // Failure reported by the task, or nil.
}

// Whether the task failed.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// An ordered list of tasks to run concurrently.
type Set[T any] struct {
	tasks []Task[T]
}

// Creates an empty task set.
func New[T any]() *Set[T] {
	return &Set[T]{}
}

// Appends a task to the set.
func (s *Set[T]) Add(task Task[T]) {
	s.tasks = append(s.tasks, task)
}

// Number of tasks in the set.
func (s *Set[T]) Len() int {
	return len(s.tasks)
}

// Runs every task on its own goroutine and waits for all of them.
//
// The returned slice has one entry per task, at the same index the task
// was added, regardless of completion order. Failures do not stop the
// other tasks; every task runs to completion.
func (s *Set[T]) Run(ctx context.Context) []Result[T] {
	results := make([]Result[T], len(s.tasks))

	var wg sync.WaitGroup
	for i, task := range s.tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := task(ctx)
			results[i] = Result[T]{Value: value, Err: err}
		}()
	}
	wg.Wait()

	return results
}

// Returns the error of the first failed result, by index, or nil when
// every task succeeded.
func FirstError[T any](results []Result[T]) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
