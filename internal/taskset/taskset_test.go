package taskset

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRunAlignsResultsByIndex(t *testing.T) {
	s := New[int]()

	// Later tasks finish first; results must still line up by index.
	for i := 0; i < 8; i++ {
		s.Add(func(ctx context.Context) (int, error) {
			time.Sleep(time.Duration(8-i) * time.Millisecond)
			return i * 10, nil
		})
	}

	results := s.Run(context.Background())
	if len(results) != 8 {
		t.Fatalf("len(results) = %d, want 8", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("results[%d].Err = %v", i, r.Err)
		}
		if r.Value != i*10 {
			t.Fatalf("results[%d] = %d, want %d", i, r.Value, i*10)
		}
	}
}

func TestRunDoesNotShortCircuit(t *testing.T) {
	s := New[string]()
	boom := errors.New("boom")

	s.Add(func(ctx context.Context) (string, error) { return "first", nil })
	s.Add(func(ctx context.Context) (string, error) { return "", boom })
	s.Add(func(ctx context.Context) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "third", nil
	})

	results := s.Run(context.Background())

	if results[0].Value != "first" {
		t.Fatalf("results[0] = %q, want first", results[0].Value)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Fatalf("results[1].Err = %v, want boom", results[1].Err)
	}
	if results[1].Value != "" || !results[1].Failed() {
		t.Fatal("failed result should carry zero value and report Failed")
	}
	if results[2].Value != "third" || results[2].Err != nil {
		t.Fatalf("results[2] = %+v, want third with nil error", results[2])
	}
}

func TestRunEmptySet(t *testing.T) {
	s := New[int]()
	results := s.Run(context.Background())
	if len(results) != 0 {
		t.Fatalf("len(results) = %d, want 0", len(results))
	}
}

func TestFirstError(t *testing.T) {
	ok := []Result[int]{{Value: 1}, {Value: 2}}
	if err := FirstError(ok); err != nil {
		t.Fatalf("FirstError = %v, want nil", err)
	}

	e1 := fmt.Errorf("first failure")
	e2 := fmt.Errorf("second failure")
	mixed := []Result[int]{{Value: 1}, {Err: e1}, {Err: e2}}
	if err := FirstError(mixed); !errors.Is(err, e1) {
		t.Fatalf("FirstError = %v, want first failure by index", err)
	}
}
