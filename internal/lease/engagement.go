package lease

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/ledger"
	"github.com/feral-file/ff-name-registry/internal/settlement"
)

// UpdateURL overwrites the presented url of a name held by caller
func (s *Service) UpdateURL(ctx context.Context, caller common.Address, name, url string, payment *big.Int) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.execute(ctx, "update_url", public, caller, func(ctx context.Context, _ time.Time) error {
		rec, err := s.heldRecord(name)
		if err != nil {
			return err
		}
		if rec.Holder != caller {
			return fmt.Errorf("%w: %s does not hold %q", domain.ErrUnauthorized, caller.Hex(), name)
		}
		if len(url) > domain.MaxURLLength {
			return fmt.Errorf("%w: url exceeds %d bytes", domain.ErrValidation, domain.MaxURLLength)
		}

		required := s.econ.URLUpdatePrice
		receipt, err := s.charge(ctx, caller, payment, required, nil, func() {
			s.state.SetURL(rec.Index, url)
		})
		if err != nil {
			return err
		}

		s.emit(domain.EventTypeURLUpdated, name, map[string]any{
			"holder":  caller.Hex(),
			"old_url": rec.PresentedURL,
			"new_url": url,
		})
		result = &PaymentResult{Required: new(big.Int).Set(required), Refund: receipt.Refund}
		return nil
	})
	return result, err
}

// React records a paid reaction on a held name. The holder receives its share.
func (s *Service) React(ctx context.Context, caller common.Address, name string, reaction domain.Reaction, payment *big.Int) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.execute(ctx, "react", public, caller, func(ctx context.Context, _ time.Time) error {
		if !domain.IsValidReaction(reaction) {
			return fmt.Errorf("%w: unknown reaction %q", domain.ErrValidation, reaction)
		}
		rec, err := s.heldRecord(name)
		if err != nil {
			return err
		}

		required := s.econ.ReactionPrices[reaction]
		share := settlement.Share(required, s.econ.HolderShareBps)
		payees := []settlement.Payee{{To: rec.Holder, Amount: share, Purpose: "holder share"}}

		var count uint64
		receipt, err := s.charge(ctx, caller, payment, required, payees, func() {
			count = s.state.IncrementReaction(rec.Index, reaction)
			s.state.IncReactions()
		})
		if err != nil {
			return err
		}

		s.emit(domain.EventTypeReacted, name, map[string]any{
			"reaction":     string(reaction),
			"count":        count,
			"reactor":      caller.Hex(),
			"holder":       rec.Holder.Hex(),
			"holder_share": share.String(),
		})
		result = &PaymentResult{Required: new(big.Int).Set(required), Refund: receipt.Refund}
		return nil
	})
	return result, err
}

// heldRecord returns the record of a name that has a holder
func (s *Service) heldRecord(name string) (ledger.Record, error) {
	if err := validateName(name); err != nil {
		return ledger.Record{}, err
	}
	rec, ok := s.state.Lookup(name)
	if !ok || !rec.Acquired() {
		return ledger.Record{}, fmt.Errorf("%w: %q", domain.ErrNameNotFound, name)
	}
	return rec, nil
}

// charge collects payment, applies mutate, pays payees and refunds the excess.
// What the payees leave of required is credited to the treasury.
func (s *Service) charge(ctx context.Context, caller common.Address, payment, required *big.Int, payees []settlement.Payee, mutate func()) (settlement.Receipt, error) {
	if err := validatePayment(payment); err != nil {
		return settlement.Receipt{}, err
	}
	if payment.Cmp(required) < 0 {
		return settlement.Receipt{}, fmt.Errorf("%w: paid %s, required %s", domain.ErrInsufficientPayment, payment, required)
	}
	if err := s.splitter.Collect(ctx, caller, s.escrow, payment); err != nil {
		return settlement.Receipt{}, err
	}

	mutate()

	receipt, err := s.splitter.Settle(ctx, settlement.Settlement{
		Payer:    caller,
		Escrow:   s.escrow,
		Paid:     payment,
		Required: required,
		Payees:   payees,
	})
	if err != nil {
		return settlement.Receipt{}, err
	}
	s.state.CreditTreasury(receipt.Retained)
	return receipt, nil
}
