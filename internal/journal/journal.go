// Package journal records undo actions for in-memory state so that a failed
// operation can be rolled back to a snapshot.
package journal

import "fmt"

type entry struct {
	// ref identifies the row the change touched; nil for changes that need no persistence
	ref  any
	undo func()
}

// Journal is an append-only list of undo actions. It is not safe for
// concurrent use; callers serialize access.
type Journal struct {
	entries []entry
}

// New creates an empty journal
func New() *Journal {
	return &Journal{}
}

// Append records an undo action. ref must be comparable; it is reported by Dirty
// until the journal is reset or reverted past this entry.
func (j *Journal) Append(ref any, undo func()) {
	j.entries = append(j.entries, entry{ref: ref, undo: undo})
}

// Length returns the number of journal entries in the journal
func (j *Journal) Length() int {
	return len(j.entries)
}

// Snapshot returns an identifier for the current state of the journal
func (j *Journal) Snapshot() int {
	return len(j.entries)
}

// RevertToSnapshot undoes every change made after the snapshot, newest first
func (j *Journal) RevertToSnapshot(id int) {
	if id < 0 || id > len(j.entries) {
		panic(fmt.Errorf("journal snapshot %d cannot be reverted (length %d)", id, len(j.entries)))
	}
	for i := len(j.entries) - 1; i >= id; i-- {
		j.entries[i].undo()
	}
	j.entries = j.entries[:id]
}

// Dirty returns the distinct refs touched since the last reset, in order of first touch
func (j *Journal) Dirty() []any {
	seen := make(map[any]struct{}, len(j.entries))
	refs := make([]any, 0, len(j.entries))
	for _, e := range j.entries {
		if e.ref == nil {
			continue
		}
		if _, ok := seen[e.ref]; ok {
			continue
		}
		seen[e.ref] = struct{}{}
		refs = append(refs, e.ref)
	}
	return refs
}

// Reset discards all entries, making the current state permanent
func (j *Journal) Reset() {
	j.entries = j.entries[:0]
}
