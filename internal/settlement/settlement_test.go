package settlement

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/journal"
)

var (
	escrow = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	payer  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	seller = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func setup(t *testing.T, funds int64) (*journal.Journal, *Vault, *Splitter) {
	t.Helper()
	j := journal.New()
	v := NewVault(j)
	require.NoError(t, v.Deposit(payer, big.NewInt(funds)))
	j.Reset()
	return j, v, NewSplitter(v)
}

func assertBalance(t *testing.T, v *Vault, addr common.Address, expected int64) {
	t.Helper()
	assert.Equal(t, 0, v.BalanceOf(addr).Cmp(big.NewInt(expected)), "balance of %s is %s, expected %d", addr.Hex(), v.BalanceOf(addr), expected)
}

func TestSettleConservesValue(t *testing.T) {
	ctx := context.Background()
	_, v, s := setup(t, 1000)

	require.NoError(t, s.Collect(ctx, payer, escrow, big.NewInt(250)))
	receipt, err := s.Settle(ctx, Settlement{
		Payer:    payer,
		Escrow:   escrow,
		Paid:     big.NewInt(250),
		Required: big.NewInt(200),
		Payees:   []Payee{{To: seller, Amount: big.NewInt(20), Purpose: "rebate"}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, receipt.Refund.Cmp(big.NewInt(50)))
	assert.Equal(t, 0, receipt.Retained.Cmp(big.NewInt(180)))
	assert.Len(t, receipt.Paid, 1)

	assertBalance(t, v, payer, 800)
	assertBalance(t, v, seller, 20)
	assertBalance(t, v, escrow, 180)
}

func TestSettleRejections(t *testing.T) {
	tests := []struct {
		name     string
		paid     int64
		required int64
		payees   []Payee
		expected error
	}{
		{name: "underpaid", paid: 10, required: 20, expected: domain.ErrInsufficientPayment},
		{name: "over allocated", paid: 20, required: 20, payees: []Payee{{To: seller, Amount: big.NewInt(21)}}, expected: ErrOverAllocated},
		{name: "negative payee", paid: 20, required: 20, payees: []Payee{{To: seller, Amount: big.NewInt(-1)}}, expected: ErrNegativeAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, _, s := setup(t, 100)
			_, err := s.Settle(context.Background(), Settlement{
				Payer: payer, Escrow: escrow,
				Paid: big.NewInt(tt.paid), Required: big.NewInt(tt.required),
				Payees: tt.payees,
			})
			assert.ErrorIs(t, err, tt.expected)
			assert.Zero(t, j.Length())
		})
	}
}

func TestSettleFailedLegRollsBack(t *testing.T) {
	ctx := context.Background()
	j, v, s := setup(t, 1000)

	v.OnReceive(payer, func(context.Context, common.Address, *big.Int) error {
		return errors.New("refund refused")
	})

	snap := j.Snapshot()
	require.NoError(t, s.Collect(ctx, payer, escrow, big.NewInt(300)))
	_, err := s.Settle(ctx, Settlement{
		Payer: payer, Escrow: escrow,
		Paid: big.NewInt(300), Required: big.NewInt(200),
		Payees: []Payee{{To: seller, Amount: big.NewInt(20), Purpose: "rebate"}},
	})
	require.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.ErrorIs(t, err, ErrRecipientRejected)

	j.RevertToSnapshot(snap)
	assertBalance(t, v, payer, 1000)
	assertBalance(t, v, seller, 0)
	assertBalance(t, v, escrow, 0)
}

func TestCollectInsufficientBalance(t *testing.T) {
	_, v, s := setup(t, 10)
	err := s.Collect(context.Background(), payer, escrow, big.NewInt(11))
	assert.ErrorIs(t, err, domain.ErrTransferFailed)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assertBalance(t, v, payer, 10)
}

func TestShare(t *testing.T) {
	tests := []struct {
		amount   int64
		bps      uint64
		expected int64
	}{
		{amount: 200, bps: 1000, expected: 20},
		{amount: 10, bps: 9000, expected: 9},
		{amount: 15, bps: 1000, expected: 1},
		{amount: 0, bps: 9000, expected: 0},
		{amount: 7, bps: domain.BasisPoints, expected: 7},
	}
	for _, tt := range tests {
		assert.Equal(t, 0, Share(big.NewInt(tt.amount), tt.bps).Cmp(big.NewInt(tt.expected)))
	}
}

func TestVaultTransferEdgeCases(t *testing.T) {
	ctx := context.Background()
	j, v, _ := setup(t, 5)

	assert.ErrorIs(t, v.Transfer(ctx, payer, seller, big.NewInt(-1)), ErrNegativeAmount)
	require.NoError(t, v.Transfer(ctx, payer, seller, big.NewInt(0)))
	require.NoError(t, v.Transfer(ctx, payer, payer, big.NewInt(5)))
	assert.Zero(t, j.Length())

	require.NoError(t, v.Transfer(ctx, payer, seller, big.NewInt(5)))
	assert.ElementsMatch(t, []any{BalanceRef{payer}, BalanceRef{seller}}, j.Dirty())
	assert.Equal(t, Balance{Address: seller, Amount: big.NewInt(5)}, v.BalanceEntry(BalanceRef{seller}))
}
