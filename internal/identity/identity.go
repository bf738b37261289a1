// Package identity keeps the identity tokens bound 1:1 to names.
package identity

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/journal"
)

//go:generate mockgen -source=identity.go -destination=../mocks/identity.go -package=mocks -mock_names=Binding=MockIdentityBinding

// TransferHook runs after every mint (from is the zero address) and transfer
type TransferHook func(ctx context.Context, key domain.NameKey, from, to common.Address) error

// Binding is the identity collaborator the registry commands
type Binding interface {
	// Exists reports whether a token is bound to the name key
	Exists(key domain.NameKey) bool
	// HolderOf returns the holder of the token bound to the name key
	HolderOf(key domain.NameKey) (common.Address, bool)
	// Mint creates the token for key and assigns it to to
	Mint(ctx context.Context, key domain.NameKey, to common.Address) error
	// Transfer moves the token for key from from to to
	Transfer(ctx context.Context, key domain.NameKey, from, to common.Address) error
}

// Token is an identity token bound to a name
type Token struct {
	Key    domain.NameKey
	Holder common.Address
}

// ID returns the numeric token id
func (t Token) ID() *big.Int {
	return domain.TokenIDOf(t.Key)
}

// TokenRef identifies a dirty token
type TokenRef struct{ Key domain.NameKey }

// Book is the in-process Binding. Changes are journaled so they roll back with
// the rest of the registry state.
type Book struct {
	journal *journal.Journal
	tokens  map[domain.NameKey]common.Address
	hook    TransferHook
}

// NewBook creates an empty token book
func NewBook(j *journal.Journal) *Book {
	return &Book{
		journal: j,
		tokens:  make(map[domain.NameKey]common.Address),
	}
}

// OnTransfer sets the hook run after each mint and transfer
func (b *Book) OnTransfer(hook TransferHook) {
	b.hook = hook
}

func (b *Book) Exists(key domain.NameKey) bool {
	_, ok := b.tokens[key]
	return ok
}

func (b *Book) HolderOf(key domain.NameKey) (common.Address, bool) {
	holder, ok := b.tokens[key]
	return holder, ok
}

func (b *Book) Mint(ctx context.Context, key domain.NameKey, to common.Address) error {
	if b.Exists(key) {
		return fmt.Errorf("%w: %s", domain.ErrTokenAlreadyExists, key.Hex())
	}
	if domain.IsZeroAddress(to) {
		return fmt.Errorf("%w: mint to zero address", domain.ErrValidation)
	}

	b.set(key, to)
	return b.runHook(ctx, key, common.Address{}, to)
}

func (b *Book) Transfer(ctx context.Context, key domain.NameKey, from, to common.Address) error {
	holder, ok := b.tokens[key]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTokenNotFound, key.Hex())
	}
	if holder != from {
		return fmt.Errorf("%w: token %s is not held by %s", domain.ErrUnauthorized, key.Hex(), from.Hex())
	}
	if domain.IsZeroAddress(to) {
		return fmt.Errorf("%w: transfer to zero address", domain.ErrValidation)
	}

	b.set(key, to)
	return b.runHook(ctx, key, from, to)
}

// Token returns the token bound to key, for persistence
func (b *Book) Token(key domain.NameKey) Token {
	return Token{Key: key, Holder: b.tokens[key]}
}

// Restore replaces the book content with persisted tokens. The journal is not written.
func (b *Book) Restore(tokens []Token) {
	b.tokens = make(map[domain.NameKey]common.Address, len(tokens))
	for _, t := range tokens {
		b.tokens[t.Key] = t.Holder
	}
}

func (b *Book) set(key domain.NameKey, to common.Address) {
	prev, existed := b.tokens[key]
	b.tokens[key] = to
	b.journal.Append(TokenRef{key}, func() {
		if existed {
			b.tokens[key] = prev
		} else {
			delete(b.tokens, key)
		}
	})
}

func (b *Book) runHook(ctx context.Context, key domain.NameKey, from, to common.Address) error {
	if b.hook == nil {
		return nil
	}
	return b.hook(ctx, key, from, to)
}
