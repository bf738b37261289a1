package ledger

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
)

// ContactEntry is the persisted form of a private field
type ContactEntry struct {
	Index     int
	Key       domain.NameKey
	Field     domain.Field
	Value     string
	UpdatedAt time.Time
}

// GrantEntry is the persisted form of a reveal grant
type GrantEntry struct {
	Requester common.Address
	Index     int
	Key       domain.NameKey
	Field     domain.Field
	GrantedAt time.Time
}

// SetContact writes a private field and stamps its update time, which
// invalidates every grant obtained at or before at
func (s *State) SetContact(idx int, field domain.Field, value string, at time.Time) {
	ref := ContactRef{idx, field}
	prev, existed := s.contacts[ref]
	s.contacts[ref] = Contact{Value: value, UpdatedAt: at}
	s.journal.Append(ref, func() {
		if existed {
			s.contacts[ref] = prev
		} else {
			delete(s.contacts, ref)
		}
	})
}

// ClearContacts empties all private fields of a name
func (s *State) ClearContacts(idx int, at time.Time) {
	for _, f := range domain.Fields {
		s.SetContact(idx, f, "", at)
	}
}

// ContactOf returns the current value of a private field
func (s *State) ContactOf(idx int, field domain.Field) Contact {
	return s.contacts[ContactRef{idx, field}]
}

// GrantedAt returns the last time requester paid to reveal the field
func (s *State) GrantedAt(requester common.Address, idx int, field domain.Field) (time.Time, bool) {
	at, ok := s.grants[GrantRef{requester, idx, field}]
	return at, ok
}

// HasCurrentGrant reports whether requester's grant is newer than the field's last update
func (s *State) HasCurrentGrant(requester common.Address, idx int, field domain.Field) bool {
	granted, ok := s.GrantedAt(requester, idx, field)
	if !ok {
		return false
	}
	return granted.After(s.ContactOf(idx, field).UpdatedAt)
}

// Grant records that requester paid to reveal the field at at
func (s *State) Grant(requester common.Address, idx int, field domain.Field, at time.Time) {
	ref := GrantRef{requester, idx, field}
	prev, existed := s.grants[ref]
	s.grants[ref] = at
	s.journal.Append(ref, func() {
		if existed {
			s.grants[ref] = prev
		} else {
			delete(s.grants, ref)
		}
	})
}

// ContactEntryOf returns the persisted form of a dirty contact
func (s *State) ContactEntryOf(ref ContactRef) ContactEntry {
	c := s.contacts[ref]
	return ContactEntry{
		Index:     ref.Index,
		Key:       s.records[ref.Index].Key,
		Field:     ref.Field,
		Value:     c.Value,
		UpdatedAt: c.UpdatedAt,
	}
}

// GrantEntryOf returns the persisted form of a dirty grant
func (s *State) GrantEntryOf(ref GrantRef) GrantEntry {
	return GrantEntry{
		Requester: ref.Requester,
		Index:     ref.Index,
		Key:       s.records[ref.Index].Key,
		Field:     ref.Field,
		GrantedAt: s.grants[ref],
	}
}
