package ledger

import "github.com/feral-file/ff-name-registry/internal/domain"

// ReactionEntry is the persisted form of a reaction counter
type ReactionEntry struct {
	Index    int
	Key      domain.NameKey
	Reaction domain.Reaction
	Count    uint64
}

func (s *State) setReaction(ref ReactionRef, count uint64) {
	prev, existed := s.reactions[ref]
	s.reactions[ref] = count
	s.journal.Append(ref, func() {
		if existed {
			s.reactions[ref] = prev
		} else {
			delete(s.reactions, ref)
		}
	})
}

// IncrementReaction bumps a reaction counter and returns the new count
func (s *State) IncrementReaction(idx int, r domain.Reaction) uint64 {
	ref := ReactionRef{idx, r}
	count := s.reactions[ref] + 1
	s.setReaction(ref, count)
	return count
}

// ResetReactions zeroes every non-zero counter of a name
func (s *State) ResetReactions(idx int) {
	for _, r := range domain.Reactions {
		ref := ReactionRef{idx, r}
		if s.reactions[ref] != 0 {
			s.setReaction(ref, 0)
		}
	}
}

// ReactionCounts returns the counters of a name for every category
func (s *State) ReactionCounts(idx int) map[domain.Reaction]uint64 {
	counts := make(map[domain.Reaction]uint64, len(domain.Reactions))
	for _, r := range domain.Reactions {
		counts[r] = s.reactions[ReactionRef{idx, r}]
	}
	return counts
}

// ReactionEntryOf returns the persisted form of a dirty counter
func (s *State) ReactionEntryOf(ref ReactionRef) ReactionEntry {
	return ReactionEntry{
		Index:    ref.Index,
		Key:      s.records[ref.Index].Key,
		Reaction: ref.Reaction,
		Count:    s.reactions[ref],
	}
}
