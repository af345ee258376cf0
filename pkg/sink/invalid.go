package sink

import "sync"

// InvalidList collects identifiers (or error descriptions) the remote API
// rejected. Append-only.
type InvalidList struct {
	mu      sync.RWMutex
	entries []string
}

// Add appends an entry.
func (l *InvalidList) Add(entry string) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of all entries in insertion order.
func (l *InvalidList) Entries() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *InvalidList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
