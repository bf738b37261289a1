// Package ledger holds the registry's in-memory state: the arena of name
// records with its creation-order chain, owner contact fields, reveal grants,
// reaction counters, holder history and global counters. Every mutation is
// recorded in a journal so a failed operation can be rolled back.
package ledger

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/journal"
)

// NoIndex marks the absence of a neighbor or pointer
const NoIndex = -1

// Record is the leasing state of a name
type Record struct {
	Index         int
	Name          string
	Key           domain.NameKey
	Holder        common.Address
	LastUpdatedAt time.Time
	LastPrice     *big.Int
	PresentedURL  string
	Prev          int
	Next          int
}

// Acquired reports whether the name has ever been acquired
func (r Record) Acquired() bool {
	return !domain.IsZeroAddress(r.Holder)
}

// Globals holds the registry-wide counters and chain pointers
type Globals struct {
	Acquisitions    uint64
	Reactions       uint64
	Reveals         uint64
	LastCreated     int
	LastRented      int
	TreasuryBalance *big.Int
}

// Contact is the value of a private field and the time it last changed
type Contact struct {
	Value     string
	UpdatedAt time.Time
}

// HistoryEntry is one holder change of a name
type HistoryEntry struct {
	Index  int
	Key    domain.NameKey
	Holder common.Address
	At     time.Time
}

// RecordRef identifies a dirty name record
type RecordRef struct{ Index int }

// ContactRef identifies a private field of a name
type ContactRef struct {
	Index int
	Field domain.Field
}

// GrantRef identifies a reveal grant of a requester on a field
type GrantRef struct {
	Requester common.Address
	Index     int
	Field     domain.Field
}

// ReactionRef identifies a reaction counter of a name
type ReactionRef struct {
	Index    int
	Reaction domain.Reaction
}

// HistoryRef identifies an appended holder history entry
type HistoryRef struct{ Position int }

// GlobalsRef identifies the global counters
type GlobalsRef struct{}

// State is the registry state. It is not safe for concurrent use; the lease
// service serializes access.
type State struct {
	journal   *journal.Journal
	records   []*Record
	index     map[domain.NameKey]int
	contacts  map[ContactRef]Contact
	grants    map[GrantRef]time.Time
	reactions map[ReactionRef]uint64
	history   []HistoryEntry
	globals   Globals
}

// NewState creates an empty state journaling into j
func NewState(j *journal.Journal) *State {
	return &State{
		journal:   j,
		index:     make(map[domain.NameKey]int),
		contacts:  make(map[ContactRef]Contact),
		grants:    make(map[GrantRef]time.Time),
		reactions: make(map[ReactionRef]uint64),
		globals: Globals{
			LastCreated:     NoIndex,
			LastRented:      NoIndex,
			TreasuryBalance: new(big.Int),
		},
	}
}

// Len returns the number of names ever created
func (s *State) Len() int {
	return len(s.records)
}

// Lookup returns a copy of the record for a name
func (s *State) Lookup(name string) (Record, bool) {
	return s.LookupKey(domain.KeyOf(name))
}

// LookupKey returns a copy of the record stored under key
func (s *State) LookupKey(key domain.NameKey) (Record, bool) {
	idx, ok := s.index[key]
	if !ok {
		return Record{}, false
	}
	return *s.records[idx], true
}

// RecordAt returns a copy of the record at an arena index
func (s *State) RecordAt(idx int) Record {
	return *s.records[idx]
}

// touch journals the current value of a record before it is modified
func (s *State) touch(idx int) *Record {
	rec := s.records[idx]
	prev := *rec
	s.journal.Append(RecordRef{idx}, func() { *s.records[idx] = prev })
	return rec
}

func (s *State) touchGlobals() {
	prev := s.globals
	s.journal.Append(GlobalsRef{}, func() { s.globals = prev })
}

// SetLease records an acquisition: holder, price and time
func (s *State) SetLease(idx int, holder common.Address, price *big.Int, at time.Time) {
	rec := s.touch(idx)
	rec.Holder = holder
	rec.LastPrice = new(big.Int).Set(price)
	rec.LastUpdatedAt = at
}

// SetHolder changes the holder without touching price or time
func (s *State) SetHolder(idx int, holder common.Address) {
	s.touch(idx).Holder = holder
}

// SetURL overwrites the presented url
func (s *State) SetURL(idx int, url string) {
	s.touch(idx).PresentedURL = url
}

// MarkRented moves the last-rented pointer to idx
func (s *State) MarkRented(idx int) {
	s.touchGlobals()
	s.globals.LastRented = idx
}

// Globals returns a copy of the global counters
func (s *State) Globals() Globals {
	g := s.globals
	g.TreasuryBalance = new(big.Int).Set(s.globals.TreasuryBalance)
	return g
}

func (s *State) IncAcquisitions() {
	s.touchGlobals()
	s.globals.Acquisitions++
}

func (s *State) IncReactions() {
	s.touchGlobals()
	s.globals.Reactions++
}

func (s *State) IncReveals() {
	s.touchGlobals()
	s.globals.Reveals++
}

// CreditTreasury adds a retained amount to the withdrawable treasury balance
func (s *State) CreditTreasury(amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	s.touchGlobals()
	s.globals.TreasuryBalance = new(big.Int).Add(s.globals.TreasuryBalance, amount)
}

// TakeTreasury zeroes the treasury balance and returns what it held
func (s *State) TakeTreasury() *big.Int {
	amount := new(big.Int).Set(s.globals.TreasuryBalance)
	if amount.Sign() == 0 {
		return amount
	}
	s.touchGlobals()
	s.globals.TreasuryBalance = new(big.Int)
	return amount
}

// AppendHistory adds a holder change to the audit trail
func (s *State) AppendHistory(idx int, holder common.Address, at time.Time) {
	pos := len(s.history)
	s.history = append(s.history, HistoryEntry{Index: idx, Key: s.records[idx].Key, Holder: holder, At: at})
	s.journal.Append(HistoryRef{pos}, func() { s.history = s.history[:pos] })
}

// History returns the holder changes of a name, oldest first
func (s *State) History(idx int) []HistoryEntry {
	var out []HistoryEntry
	for _, h := range s.history {
		if h.Index == idx {
			out = append(out, h)
		}
	}
	return out
}

// HistoryAt returns the audit entry at a position
func (s *State) HistoryAt(pos int) HistoryEntry {
	return s.history[pos]
}

// Restoration is the persisted form of the state loaded at boot
type Restoration struct {
	Records   []Record
	Contacts  []ContactEntry
	Grants    []GrantEntry
	Reactions []ReactionEntry
	History   []HistoryEntry
	Globals   Globals
}

// Restore replaces the state with a persisted one. Records must be ordered by
// index and indices contiguous from zero. The journal is not written.
func (s *State) Restore(r Restoration) error {
	fresh := NewState(s.journal)

	for i := range r.Records {
		rec := r.Records[i]
		if rec.Index != i {
			return fmt.Errorf("record %q has index %d, expected %d", rec.Name, rec.Index, i)
		}
		if rec.LastPrice == nil {
			rec.LastPrice = new(big.Int)
		}
		fresh.records = append(fresh.records, &rec)
		fresh.index[rec.Key] = i
	}

	indexOf := func(key domain.NameKey) (int, error) {
		idx, ok := fresh.index[key]
		if !ok {
			return 0, fmt.Errorf("no record for key %s", key.Hex())
		}
		return idx, nil
	}

	for _, c := range r.Contacts {
		idx, err := indexOf(c.Key)
		if err != nil {
			return err
		}
		fresh.contacts[ContactRef{idx, c.Field}] = Contact{Value: c.Value, UpdatedAt: c.UpdatedAt}
	}
	for _, g := range r.Grants {
		idx, err := indexOf(g.Key)
		if err != nil {
			return err
		}
		fresh.grants[GrantRef{g.Requester, idx, g.Field}] = g.GrantedAt
	}
	for _, rc := range r.Reactions {
		idx, err := indexOf(rc.Key)
		if err != nil {
			return err
		}
		fresh.reactions[ReactionRef{idx, rc.Reaction}] = rc.Count
	}
	for _, h := range r.History {
		idx, err := indexOf(h.Key)
		if err != nil {
			return err
		}
		h.Index = idx
		fresh.history = append(fresh.history, h)
	}

	fresh.globals = r.Globals
	if fresh.globals.TreasuryBalance == nil {
		fresh.globals.TreasuryBalance = new(big.Int)
	}
	if len(fresh.records) == 0 {
		fresh.globals.LastCreated = NoIndex
		fresh.globals.LastRented = NoIndex
	}

	*s = *fresh
	return nil
}
