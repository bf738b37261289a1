package settlement

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/journal"
)

//go:generate mockgen -source=vault.go -destination=../mocks/transferer.go -package=mocks -mock_names=Transferer=MockTransferer

// Transferer moves native value between accounts
type Transferer interface {
	// Transfer moves amount from from to to. A failure leaves balances as
	// they were only once the enclosing journal is reverted.
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
}

// RecipientHook runs after an account is credited. It models code controlled
// by the recipient; returning an error rejects the transfer. ctx is the
// context of the operation making the transfer. Registry calls made with it
// fail at once with ErrReentrantCall, calls made with any other context fail
// the same way once the lock wait runs out.
type RecipientHook func(ctx context.Context, from common.Address, amount *big.Int) error

// Balance is the persisted form of an account balance
type Balance struct {
	Address common.Address
	Amount  *big.Int
}

// BalanceRef identifies a dirty account balance
type BalanceRef struct{ Address common.Address }

// Vault is the in-process account book standing in for host value settlement
type Vault struct {
	journal  *journal.Journal
	balances map[common.Address]*big.Int
	hooks    map[common.Address]RecipientHook
}

// NewVault creates an empty vault journaling into j
func NewVault(j *journal.Journal) *Vault {
	return &Vault{
		journal:  j,
		balances: make(map[common.Address]*big.Int),
		hooks:    make(map[common.Address]RecipientHook),
	}
}

// BalanceOf returns a copy of the balance of addr
func (v *Vault) BalanceOf(addr common.Address) *big.Int {
	if b, ok := v.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// OnReceive registers a hook run whenever addr is credited. A nil hook removes it.
func (v *Vault) OnReceive(addr common.Address, hook RecipientHook) {
	if hook == nil {
		delete(v.hooks, addr)
		return
	}
	v.hooks[addr] = hook
}

// Deposit credits addr from outside the vault
func (v *Vault) Deposit(addr common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	v.set(addr, new(big.Int).Add(v.BalanceOf(addr), amount))
	return nil
}

// Transfer implements Transferer
func (v *Vault) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}

	fromBalance := v.BalanceOf(from)
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBalance, amount)
	}

	v.set(from, fromBalance.Sub(fromBalance, amount))
	v.set(to, new(big.Int).Add(v.BalanceOf(to), amount))

	if hook, ok := v.hooks[to]; ok {
		if err := hook(ctx, from, new(big.Int).Set(amount)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrRecipientRejected, to.Hex(), err)
		}
	}
	return nil
}

// BalanceEntry returns the persisted form of a dirty balance
func (v *Vault) BalanceEntry(ref BalanceRef) Balance {
	return Balance{Address: ref.Address, Amount: v.BalanceOf(ref.Address)}
}

// Restore replaces every balance with persisted ones. The journal is not written.
func (v *Vault) Restore(balances []Balance) {
	v.balances = make(map[common.Address]*big.Int, len(balances))
	for _, b := range balances {
		v.balances[b.Address] = new(big.Int).Set(b.Amount)
	}
}

func (v *Vault) set(addr common.Address, amount *big.Int) {
	prev, existed := v.balances[addr]
	v.balances[addr] = amount
	v.journal.Append(BalanceRef{addr}, func() {
		if existed {
			v.balances[addr] = prev
		} else {
			delete(v.balances, addr)
		}
	})
}
