// Package settlement moves value for registry operations: collecting a
// payment into escrow, paying each payee and refunding the excess.
package settlement

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
)

// Payee is one outbound leg of a settlement
type Payee struct {
	To      common.Address
	Amount  *big.Int
	Purpose string
}

// Settlement describes how a collected payment is distributed
type Settlement struct {
	Payer    common.Address
	Escrow   common.Address
	Paid     *big.Int
	Required *big.Int
	Payees   []Payee
}

// Receipt is the outcome of a successful settlement
type Receipt struct {
	Paid     []Payee
	Refund   *big.Int
	Retained *big.Int
}

// Splitter settles payments through a Transferer
type Splitter struct {
	transferer Transferer
}

// NewSplitter creates a splitter over t
func NewSplitter(t Transferer) *Splitter {
	return &Splitter{transferer: t}
}

// Collect moves the declared payment from the payer into escrow
func (s *Splitter) Collect(ctx context.Context, payer, escrow common.Address, amount *big.Int) error {
	if err := s.transferer.Transfer(ctx, payer, escrow, amount); err != nil {
		return fmt.Errorf("%w: collect from %s: %w", domain.ErrTransferFailed, payer.Hex(), err)
	}
	return nil
}

// Settle pays every payee from escrow and refunds Paid - Required to the payer.
// Whatever the payees leave of Required stays in escrow and is reported as Retained.
// Any failed leg aborts the settlement; the caller reverts earlier legs.
func (s *Splitter) Settle(ctx context.Context, st Settlement) (Receipt, error) {
	if st.Paid.Cmp(st.Required) < 0 {
		return Receipt{}, fmt.Errorf("%w: paid %s, required %s", domain.ErrInsufficientPayment, st.Paid, st.Required)
	}

	allocated := new(big.Int)
	for _, p := range st.Payees {
		if p.Amount.Sign() < 0 {
			return Receipt{}, ErrNegativeAmount
		}
		allocated.Add(allocated, p.Amount)
	}
	if allocated.Cmp(st.Required) > 0 {
		return Receipt{}, fmt.Errorf("%w: %s > %s", ErrOverAllocated, allocated, st.Required)
	}

	receipt := Receipt{
		Refund:   new(big.Int).Sub(st.Paid, st.Required),
		Retained: new(big.Int).Sub(st.Required, allocated),
	}

	for _, p := range st.Payees {
		if p.Amount.Sign() == 0 {
			continue
		}
		if err := s.transferer.Transfer(ctx, st.Escrow, p.To, p.Amount); err != nil {
			return Receipt{}, fmt.Errorf("%w: %s to %s: %w", domain.ErrTransferFailed, p.Purpose, p.To.Hex(), err)
		}
		receipt.Paid = append(receipt.Paid, p)
	}

	if receipt.Refund.Sign() > 0 {
		if err := s.transferer.Transfer(ctx, st.Escrow, st.Payer, receipt.Refund); err != nil {
			return Receipt{}, fmt.Errorf("%w: refund to %s: %w", domain.ErrTransferFailed, st.Payer.Hex(), err)
		}
	}

	return receipt, nil
}

// Share returns amount * bps / 10000, rounded down
func Share(amount *big.Int, bps uint64) *big.Int {
	share := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return share.Quo(share, big.NewInt(domain.BasisPoints))
}
