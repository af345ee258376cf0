// Package sink holds the incremental result model of a mining run: a
// fixed-width table whose rows are appended as placeholders and patched cell
// by cell as sub-fetches complete, plus the list of rejected identifiers.
//
// A run has exactly one writer for each structure. The locks only make the
// table safe to read from a concurrent UI goroutine via Snapshot.
package sink

import (
	"errors"
	"fmt"
	"sync"
)

// Cell sentinels.
const (
	// Loading fills every cell of a freshly appended placeholder row.
	Loading = "Loading..."

	// NotAvailable marks a cell whose sub-fetch produced no value.
	NotAvailable = "N/A"
)

var (
	// ErrRowOutOfRange is returned when a row index does not exist.
	ErrRowOutOfRange = errors.New("row index out of range")

	// ErrColumnOutOfRange is returned when a column index does not exist.
	ErrColumnOutOfRange = errors.New("column index out of range")

	// ErrWidthMismatch is returned when a row does not match the header width.
	ErrWidthMismatch = errors.New("row width does not match headers")
)

// Table is an append/patch-only result table. Every row always has exactly
// len(Headers()) cells.
type Table struct {
	mu      sync.RWMutex
	headers []string
	rows    [][]string
}

// NewTable creates an empty table with the given column headers.
func NewTable(headers []string) *Table {
	h := make([]string, len(headers))
	copy(h, headers)
	return &Table{headers: h}
}

// Headers returns a copy of the column headers.
func (t *Table) Headers() []string {
	h := make([]string, len(t.headers))
	copy(h, t.headers)
	return h
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.headers)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// AppendPlaceholderRow appends a row filled with Loading and returns its
// index. The index stays bound to the same identifier for the whole run.
func (t *Table) AppendPlaceholderRow() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	row := make([]string, len(t.headers))
	for i := range row {
		row[i] = Loading
	}
	t.rows = append(t.rows, row)
	return len(t.rows) - 1
}

// PatchCell replaces one cell in place, leaving the rest of the row untouched.
func (t *Table) PatchCell(row, col int, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if row < 0 || row >= len(t.rows) {
		return fmt.Errorf("patch cell (%d,%d): %w", row, col, ErrRowOutOfRange)
	}
	if col < 0 || col >= len(t.headers) {
		return fmt.Errorf("patch cell (%d,%d): %w", row, col, ErrColumnOutOfRange)
	}
	t.rows[row][col] = value
	return nil
}

// AppendTerminalRow appends a fully resolved row and returns its index.
func (t *Table) AppendTerminalRow(values []string) (int, error) {
	if len(values) != len(t.headers) {
		return -1, fmt.Errorf("append row with %d cells to %d columns: %w",
			len(values), len(t.headers), ErrWidthMismatch)
	}

	row := make([]string, len(values))
	copy(row, values)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row)
	return len(t.rows) - 1, nil
}

// Row returns a copy of row i.
func (t *Table) Row(i int) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i < 0 || i >= len(t.rows) {
		return nil, fmt.Errorf("row %d: %w", i, ErrRowOutOfRange)
	}
	row := make([]string, len(t.rows[i]))
	copy(row, t.rows[i])
	return row, nil
}

// Snapshot returns a deep copy of all rows.
func (t *Table) Snapshot() [][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = make([]string, len(r))
		copy(out[i], r)
	}
	return out
}

// Reset drops every row. Only a full run reset may call it.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = nil
}

// FilledRow returns a row of n cells set to value.
func FilledRow(n int, value string) []string {
	row := make([]string, n)
	for i := range row {
		row[i] = value
	}
	return row
}
