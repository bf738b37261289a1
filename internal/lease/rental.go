package lease

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/ledger"
	"github.com/feral-file/ff-name-registry/internal/logger"
	"github.com/feral-file/ff-name-registry/internal/settlement"
)

// Acquire rents a name to caller, or renews caller's own lease
func (s *Service) Acquire(ctx context.Context, caller common.Address, req AcquireRequest, payment *big.Int) (*AcquireResult, error) {
	var result *AcquireResult
	err := s.execute(ctx, "acquire", public, caller, func(ctx context.Context, now time.Time) error {
		var err error
		result, err = s.acquire(ctx, caller, req, payment, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveAcquisitionPrice(result.Price)
	logger.InfoCtx(ctx, "Name acquired",
		zap.String("name", result.Name),
		zap.String("holder", result.Holder.Hex()),
		zap.String("previousHolder", result.PreviousHolder.Hex()),
		zap.String("price", result.Price.String()))

	return result, nil
}

func (s *Service) acquire(ctx context.Context, caller common.Address, req AcquireRequest, payment *big.Int, now time.Time) (*AcquireResult, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	if len(req.URL) > domain.MaxURLLength {
		return nil, fmt.Errorf("%w: url exceeds %d bytes", domain.ErrValidation, domain.MaxURLLength)
	}
	contacts := map[domain.Field]string{
		domain.FieldTelegram: req.Telegram,
		domain.FieldEmail:    req.Email,
		domain.FieldPhone:    req.Phone,
	}
	if err := validateContacts(contacts); err != nil {
		return nil, err
	}
	if err := validatePayment(payment); err != nil {
		return nil, err
	}
	if s.reserved.IsReserved(req.Name) {
		return nil, fmt.Errorf("%w: %q", domain.ErrNameReserved, req.Name)
	}

	// 1. Price and payment
	var recPtr *ledger.Record
	rec, exists := s.state.Lookup(req.Name)
	if exists {
		recPtr = &rec
	}
	price, err := ledger.Price(recPtr, caller, now, s.econ)
	if err != nil {
		return nil, err
	}
	if payment.Cmp(price) < 0 {
		return nil, fmt.Errorf("%w: paid %s, price %s", domain.ErrInsufficientPayment, payment, price)
	}
	if err := s.splitter.Collect(ctx, caller, s.escrow, payment); err != nil {
		return nil, err
	}

	// 2. Lease state, all mutated before any outbound transfer
	idx := rec.Index
	if !exists {
		idx = s.state.Create(req.Name)
	}
	previousHolder := rec.Holder

	s.state.SetLease(idx, caller, price, now)
	if req.URL != "" {
		s.state.SetURL(idx, req.URL)
	}
	s.state.MarkRented(idx)

	// 3. Identity: transfer the existing token or mint the first one.
	// The transfer hook clears contacts and records the holder change.
	key := domain.KeyOf(req.Name)
	rebate := new(big.Int)
	if s.book.Exists(key) {
		tokenHolder, _ := s.book.HolderOf(key)
		if err := s.book.Transfer(ctx, key, tokenHolder, caller); err != nil {
			return nil, fmt.Errorf("%w: identity transfer: %w", domain.ErrTransferFailed, err)
		}
		rebate = settlement.Share(price, s.econ.RebateBps)
	} else {
		if err := s.book.Mint(ctx, key, caller); err != nil {
			return nil, fmt.Errorf("%w: identity mint: %w", domain.ErrTransferFailed, err)
		}
	}

	// 4. Contacts supplied with the acquisition, written after the hook cleared them
	for _, f := range domain.Fields {
		if v := contacts[f]; v != "" {
			s.state.SetContact(idx, f, v, now)
		}
	}

	s.state.ResetReactions(idx)
	s.state.IncAcquisitions()

	// 5. Settlement: rebate to the previous holder, the rest retained, excess refunded
	var payees []settlement.Payee
	if rebate.Sign() > 0 {
		payees = append(payees, settlement.Payee{To: previousHolder, Amount: rebate, Purpose: "rebate"})
	}
	receipt, err := s.splitter.Settle(ctx, settlement.Settlement{
		Payer:    caller,
		Escrow:   s.escrow,
		Paid:     payment,
		Required: price,
		Payees:   payees,
	})
	if err != nil {
		return nil, err
	}
	s.state.CreditTreasury(receipt.Retained)

	s.emit(domain.EventTypeRented, req.Name, map[string]any{
		"holder":          caller.Hex(),
		"previous_holder": previousHolder.Hex(),
		"price":           price.String(),
		"url":             s.state.RecordAt(idx).PresentedURL,
	})

	return &AcquireResult{
		Name:           req.Name,
		Holder:         caller,
		PreviousHolder: previousHolder,
		Price:          price,
		Rebate:         rebate,
		Refund:         receipt.Refund,
	}, nil
}

// onHolderChange runs inside the identity mint or transfer of an acquisition
func (s *Service) onHolderChange(_ context.Context, key domain.NameKey, from, to common.Address) error {
	rec, ok := s.state.LookupKey(key)
	if !ok {
		return fmt.Errorf("%w: no record for token %s", domain.ErrNameNotFound, key.Hex())
	}

	s.state.SetHolder(rec.Index, to)
	s.state.ClearContacts(rec.Index, s.now)
	s.state.AppendHistory(rec.Index, to, s.now)

	s.emit(domain.EventTypeHolderChanged, rec.Name, map[string]any{
		"key":             rec.Key.Hex(),
		"holder":          to.Hex(),
		"previous_holder": from.Hex(),
		"changed_at":      s.now.Format(time.RFC3339Nano),
	})
	return nil
}

func validateName(name string) error {
	if len(name) == 0 || len(name) > domain.MaxNameLength {
		return fmt.Errorf("%w: name must be 1 to %d bytes", domain.ErrValidation, domain.MaxNameLength)
	}
	return nil
}

func validateContacts(contacts map[domain.Field]string) error {
	for f, v := range contacts {
		if len(v) > domain.MaxContactLength {
			return fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrValidation, f, domain.MaxContactLength)
		}
	}
	return nil
}

func validatePayment(payment *big.Int) error {
	if payment == nil || payment.Sign() < 0 {
		return fmt.Errorf("%w: payment must be non-negative", domain.ErrValidation)
	}
	return nil
}
