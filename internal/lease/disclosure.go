package lease

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/settlement"
)

// UpdateContact overwrites the provided private fields of a name held by caller.
// Each provided field costs its own update price.
func (s *Service) UpdateContact(ctx context.Context, caller common.Address, name string, update ContactUpdate, payment *big.Int) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.execute(ctx, "update_contact", public, caller, func(ctx context.Context, now time.Time) error {
		rec, err := s.heldRecord(name)
		if err != nil {
			return err
		}
		if rec.Holder != caller {
			return fmt.Errorf("%w: %s does not hold %q", domain.ErrUnauthorized, caller.Hex(), name)
		}

		fields := update.fields()
		if len(fields) == 0 {
			return fmt.Errorf("%w: no field provided", domain.ErrValidation)
		}
		if err := validateContacts(fields); err != nil {
			return err
		}

		required := new(big.Int)
		names := make([]string, 0, len(fields))
		for _, f := range domain.Fields {
			if _, ok := fields[f]; ok {
				required.Add(required, s.econ.ContactUpdatePrices[f])
				names = append(names, string(f))
			}
		}

		receipt, err := s.charge(ctx, caller, payment, required, nil, func() {
			for _, f := range domain.Fields {
				if v, ok := fields[f]; ok {
					s.state.SetContact(rec.Index, f, v, now)
				}
			}
		})
		if err != nil {
			return err
		}

		s.emit(domain.EventTypeContactUpdated, name, map[string]any{
			"holder": caller.Hex(),
			"fields": strings.Join(names, ","),
		})
		result = &PaymentResult{Required: required, Refund: receipt.Refund}
		return nil
	})
	return result, err
}

// RequestReveal buys caller a grant to read a private field. The holder
// receives the full price. A current grant is not bought twice: the payment
// is refunded and nothing else changes.
func (s *Service) RequestReveal(ctx context.Context, caller common.Address, name string, field domain.Field, payment *big.Int) (*RevealResult, error) {
	var result *RevealResult
	err := s.execute(ctx, "request_reveal", public, caller, func(ctx context.Context, now time.Time) error {
		if !domain.IsValidField(field) {
			return fmt.Errorf("%w: unknown field %q", domain.ErrValidation, field)
		}
		rec, err := s.heldRecord(name)
		if err != nil {
			return err
		}
		if rec.Holder == caller {
			return domain.ErrSelfRevealDenied
		}

		price := s.econ.RevealPrices[field]
		if s.state.HasCurrentGrant(caller, rec.Index, field) {
			if err := validatePayment(payment); err != nil {
				return err
			}
			if payment.Cmp(price) < 0 {
				return fmt.Errorf("%w: paid %s, required %s", domain.ErrInsufficientPayment, payment, price)
			}
			receipt, err := s.charge(ctx, caller, payment, new(big.Int), nil, func() {})
			if err != nil {
				return err
			}
			result = &RevealResult{Granted: false, Refund: receipt.Refund}
			return nil
		}

		payees := []settlement.Payee{{To: rec.Holder, Amount: price, Purpose: "reveal"}}
		receipt, err := s.charge(ctx, caller, payment, price, payees, func() {
			s.state.Grant(caller, rec.Index, field, now)
			s.state.IncReveals()
		})
		if err != nil {
			return err
		}

		s.emit(domain.EventTypeRevealed, name, map[string]any{
			"field":     string(field),
			"requester": caller.Hex(),
			"holder":    rec.Holder.Hex(),
			"price":     price.String(),
		})
		result = &RevealResult{Granted: true, Refund: receipt.Refund}
		return nil
	})
	return result, err
}

// ReadField returns a private field. The holder may always read; anyone else
// needs a grant newer than the field's last update.
func (s *Service) ReadField(ctx context.Context, caller common.Address, name string, field domain.Field) (string, error) {
	release, err := s.readLock(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if !domain.IsValidField(field) {
		return "", fmt.Errorf("%w: unknown field %q", domain.ErrValidation, field)
	}
	rec, err := s.heldRecord(name)
	if err != nil {
		return "", err
	}
	if rec.Holder != caller && !s.state.HasCurrentGrant(caller, rec.Index, field) {
		return "", fmt.Errorf("%w: %s has no current grant on %s of %q", domain.ErrPermissionDenied, caller.Hex(), field, name)
	}
	return s.state.ContactOf(rec.Index, field).Value, nil
}
