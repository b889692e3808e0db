package adapters

import (
	"sync"

	"comment-scout/internal/logging/types"
)

// MemoryAdapter keeps entries in memory. Tests use it to assert that a
// failure path produced a log signal.
type MemoryAdapter struct {
	name    string
	entries []types.LogEntry
	mu      sync.Mutex
}

// NewMemoryAdapter creates an empty in-memory adapter
func NewMemoryAdapter(name string) *MemoryAdapter {
	return &MemoryAdapter{name: name}
}

func (a *MemoryAdapter) Write(entry *types.LogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *MemoryAdapter) Close() error {
	return nil
}

func (a *MemoryAdapter) Name() string {
	return a.name
}

// Entries returns a copy of everything written so far
func (a *MemoryAdapter) Entries() []types.LogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]types.LogEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Count returns how many entries at or above level were written
func (a *MemoryAdapter) Count(level types.LogLevel) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.entries {
		if e.Level >= level {
			n++
		}
	}
	return n
}
