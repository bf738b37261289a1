package lease

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/ledger"
)

// GetPrice returns what caller would pay to acquire name now
func (s *Service) GetPrice(ctx context.Context, caller common.Address, name string) (*big.Int, error) {
	release, err := s.readLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := validateName(name); err != nil {
		return nil, err
	}
	return s.state.PriceOf(name, caller, s.readTime(ctx), s.econ)
}

// Exists reports whether name is in the chain
func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	release, err := s.readLock(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	_, ok := s.state.Lookup(name)
	return ok, nil
}

// ListKeys returns the names at positions [start, end) of creation order
func (s *Service) ListKeys(ctx context.Context, start, end int) ([]NameEntry, error) {
	release, err := s.readLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	records, err := s.state.Keys(start, end)
	if err != nil {
		return nil, err
	}
	out := make([]NameEntry, 0, len(records))
	for _, rec := range records {
		out = append(out, NameEntry{Position: rec.Index, Name: rec.Name, Key: rec.Key})
	}
	return out, nil
}

// Record returns the public view of a name in the chain
func (s *Service) Record(ctx context.Context, name string) (*NameView, error) {
	release, err := s.readLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := s.chainRecord(name)
	if err != nil {
		return nil, err
	}

	view := &NameView{
		Name:          rec.Name,
		Key:           rec.Key,
		TokenID:       domain.TokenIDOf(rec.Key),
		Holder:        rec.Holder,
		LastUpdatedAt: rec.LastUpdatedAt,
		LastPrice:     new(big.Int).Set(rec.LastPrice),
		PresentedURL:  rec.PresentedURL,
		Reactions:     s.state.ReactionCounts(rec.Index),
	}
	if rec.Acquired() {
		view.ExpiresAt = rec.LastUpdatedAt.Add(s.econ.RentalPeriod)
		view.Expired = ledger.Expired(rec, s.readTime(ctx), s.econ.RentalPeriod)
	}
	return view, nil
}

// Neighbors returns the names created right before and after name; empty when absent
func (s *Service) Neighbors(ctx context.Context, name string) (string, string, error) {
	release, err := s.readLock(ctx)
	if err != nil {
		return "", "", err
	}
	defer release()

	rec, err := s.chainRecord(name)
	if err != nil {
		return "", "", err
	}
	prev, next := s.state.Neighbors(rec.Index)
	return prev, next, nil
}

// HolderHistory returns every holder change of name, oldest first
func (s *Service) HolderHistory(ctx context.Context, name string) ([]HolderChange, error) {
	release, err := s.readLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rec, err := s.chainRecord(name)
	if err != nil {
		return nil, err
	}
	history := s.state.History(rec.Index)
	out := make([]HolderChange, 0, len(history))
	for _, h := range history {
		out = append(out, HolderChange{Holder: h.Holder, At: h.At})
	}
	return out, nil
}

// Stats returns the registry counters
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	release, err := s.readLock(ctx)
	if err != nil {
		return Stats{}, err
	}
	defer release()

	g := s.state.Globals()
	stats := Stats{
		Names:           s.state.Len(),
		Acquisitions:    g.Acquisitions,
		Reactions:       g.Reactions,
		Reveals:         g.Reveals,
		TreasuryBalance: g.TreasuryBalance,
		Paused:          s.gate.Paused(),
		Initialized:     s.initialized,
	}
	if g.LastCreated != ledger.NoIndex {
		stats.LastCreated = s.state.RecordAt(g.LastCreated).Name
	}
	if g.LastRented != ledger.NoIndex {
		stats.LastRented = s.state.RecordAt(g.LastRented).Name
	}
	return stats, nil
}

// BalanceOf returns the vault balance of an account
func (s *Service) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	release, err := s.readLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.vault.BalanceOf(account), nil
}

// Economics returns a copy of the economics in force
func (s *Service) Economics(ctx context.Context) (domain.Economics, error) {
	release, err := s.readLock(ctx)
	if err != nil {
		return domain.Economics{}, err
	}
	defer release()

	econ := s.econ
	econ.BaseRentalPrice = new(big.Int).Set(s.econ.BaseRentalPrice)
	return econ, nil
}

func (s *Service) chainRecord(name string) (ledger.Record, error) {
	if err := validateName(name); err != nil {
		return ledger.Record{}, err
	}
	rec, ok := s.state.Lookup(name)
	if !ok {
		return ledger.Record{}, fmt.Errorf("%w: %q", domain.ErrNameNotFound, name)
	}
	return rec, nil
}

// readTime is the instant reads are evaluated at. Inside an operation it is the operation's time.
func (s *Service) readTime(ctx context.Context) time.Time {
	if s.lock.Held(ctx) {
		return s.now
	}
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}
