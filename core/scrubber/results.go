package scrubber

import (
	"slices"
	"sync"

	"github.com/ankit-chaubey/privacy-scrub/core"
)

// ResultList is the session's growing list of results. It is only ever
// appended to by whole batches or cleared in full.
type ResultList struct {
	mu      sync.Mutex
	results []*core.CleanedFileResult
}

// Append adds a batch at the end, keeping its order.
func (l *ResultList) Append(batch []*core.CleanedFileResult) {
	if len(batch) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, batch...)
}

// Clear drops every result.
func (l *ResultList) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = nil
}

// Snapshot returns a copy of the current list.
func (l *ResultList) Snapshot() []*core.CleanedFileResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.results)
}

// Len returns the number of results.
func (l *ResultList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}
