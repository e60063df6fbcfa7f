// Package trace records executed instructions and lets a host replay or
// inspect a run after the fact.
package trace

import (
	"sort"
	"sync"
)

// Entry is one executed instruction as seen by a recorder.
type Entry struct {
	PC      uint16
	Opcode  uint8
	Mnemonic string
	Tstates int
}

// Table accumulates Entry values from a running core. It is safe for
// concurrent use by a core goroutine and a reader goroutine (e.g. a CLI
// printing a live trace while the core steps).
type Table struct {
	mu      sync.Mutex
	entries []Entry
}

// NewTable creates an empty recorder.
func NewTable() *Table {
	return &Table{}
}

// Add appends one executed instruction.
func (t *Table) Add(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Entries returns a copy of everything recorded so far, in execution order.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of recorded entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// HotPCs returns the distinct PC values visited, ordered by visit count
// descending. Useful for spotting the inner loop of a run at a glance.
func (t *Table) HotPCs() []uint16 {
	t.mu.Lock()
	counts := make(map[uint16]int, len(t.entries))
	for _, e := range t.entries {
		counts[e.PC]++
	}
	t.mu.Unlock()

	pcs := make([]uint16, 0, len(counts))
	for pc := range counts {
		pcs = append(pcs, pc)
	}
	sort.Slice(pcs, func(i, j int) bool {
		if counts[pcs[i]] != counts[pcs[j]] {
			return counts[pcs[i]] > counts[pcs[j]]
		}
		return pcs[i] < pcs[j]
	})
	return pcs
}
