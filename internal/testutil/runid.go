package testutil

import (
	"fmt"
	"sync"
)

// FixedRunID returns a generator that always yields id.
//
// If id is empty, the generator returns "run-test-default".
func FixedRunID(id string) func() string {
	if id == "" {
		id = "run-test-default"
	}
	return func() string { return id }
}

// SequentialRunIDs returns a generator yielding prefix-001, prefix-002, ...
// Safe for concurrent use.
func SequentialRunIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}
