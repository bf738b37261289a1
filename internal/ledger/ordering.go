package ledger

import (
	"fmt"
	"math/big"

	"github.com/feral-file/ff-name-registry/internal/domain"
)

// Create appends a new name to the arena and links it after the last created
// name. The caller checks the name does not exist yet.
func (s *State) Create(name string) int {
	idx := len(s.records)
	tail := s.globals.LastCreated

	if tail != NoIndex {
		s.touch(tail).Next = idx
	}

	rec := &Record{
		Index:     idx,
		Name:      name,
		Key:       domain.KeyOf(name),
		Prev:      tail,
		Next:      NoIndex,
		LastPrice: new(big.Int),
	}
	s.records = append(s.records, rec)
	s.index[rec.Key] = idx
	s.journal.Append(RecordRef{idx}, func() {
		delete(s.index, rec.Key)
		s.records = s.records[:idx]
	})

	s.touchGlobals()
	s.globals.LastCreated = idx
	return idx
}

// Keys returns the records at positions [start, end) of creation order.
// end past the last name is clamped.
func (s *State) Keys(start, end int) ([]Record, error) {
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: invalid range [%d, %d)", domain.ErrValidation, start, end)
	}
	if start >= len(s.records) {
		return []Record{}, nil
	}
	if end > len(s.records) {
		end = len(s.records)
	}

	out := make([]Record, 0, end-start)
	for _, rec := range s.records[start:end] {
		out = append(out, *rec)
	}
	return out, nil
}

// Walk follows the chain from the first created name (forward) or the last
// created name (backward) and returns the names visited.
func (s *State) Walk(forward bool) []string {
	if len(s.records) == 0 {
		return nil
	}

	cur := s.globals.LastCreated
	if forward {
		cur = 0
	}

	names := make([]string, 0, len(s.records))
	for cur != NoIndex && len(names) <= len(s.records) {
		rec := s.records[cur]
		names = append(names, rec.Name)
		if forward {
			cur = rec.Next
		} else {
			cur = rec.Prev
		}
	}
	return names
}

// Neighbors returns the names before and after idx in creation order; empty when absent
func (s *State) Neighbors(idx int) (prev string, next string) {
	rec := s.records[idx]
	if rec.Prev != NoIndex {
		prev = s.records[rec.Prev].Name
	}
	if rec.Next != NoIndex {
		next = s.records[rec.Next].Name
	}
	return prev, next
}
