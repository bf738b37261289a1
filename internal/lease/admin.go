package lease

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/logger"
)

// Withdraw moves the treasury balance from escrow to the treasury address.
// An empty treasury balance is a successful no-op.
func (s *Service) Withdraw(ctx context.Context, caller common.Address) (*big.Int, error) {
	amount := new(big.Int)
	err := s.execute(ctx, "withdraw", admin, caller, func(ctx context.Context, _ time.Time) error {
		if domain.IsZeroAddress(s.treasury) {
			return fmt.Errorf("%w: treasury address is not configured", domain.ErrValidation)
		}

		amount = s.state.TakeTreasury()
		if amount.Sign() == 0 {
			return nil
		}
		if err := s.vault.Transfer(ctx, s.escrow, s.treasury, amount); err != nil {
			return fmt.Errorf("%w: withdraw to %s: %w", domain.ErrTransferFailed, s.treasury.Hex(), err)
		}

		s.emit(domain.EventTypeWithdrawn, "", map[string]any{
			"treasury": s.treasury.Hex(),
			"amount":   amount.String(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if amount.Sign() > 0 {
		logger.InfoCtx(ctx, "Treasury withdrawn", zap.String("amount", amount.String()))
	}
	return amount, nil
}

// SeedNames appends names to the chain without a holder. Names already in the
// chain and duplicates are skipped. Seeding ends with FinalizeSeeding.
func (s *Service) SeedNames(ctx context.Context, caller common.Address, names []string) (int, error) {
	seeded := 0
	err := s.execute(ctx, "seed_names", admin, caller, func(_ context.Context, _ time.Time) error {
		if s.initialized {
			return domain.ErrAlreadyInitialized
		}
		for _, name := range names {
			if err := validateName(name); err != nil {
				return fmt.Errorf("seed %q: %w", name, err)
			}
			if _, ok := s.state.Lookup(name); ok {
				continue
			}
			s.state.Create(name)
			seeded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.InfoCtx(ctx, "Names seeded", zap.Int("seeded", seeded), zap.Int("requested", len(names)))
	return seeded, nil
}

// FinalizeSeeding marks the registry initialized and opens it to the public
func (s *Service) FinalizeSeeding(ctx context.Context, caller common.Address) error {
	return s.execute(ctx, "finalize_seeding", admin, caller, func(_ context.Context, _ time.Time) error {
		if s.initialized {
			return domain.ErrAlreadyInitialized
		}
		s.touchSettings()
		s.initialized = true
		return nil
	})
}

// Pause closes the gate for public mutating operations
func (s *Service) Pause(ctx context.Context, caller common.Address) error {
	return s.setPaused(ctx, "pause", caller, true)
}

// Unpause reopens the gate
func (s *Service) Unpause(ctx context.Context, caller common.Address) error {
	return s.setPaused(ctx, "unpause", caller, false)
}

func (s *Service) setPaused(ctx context.Context, op string, caller common.Address, paused bool) error {
	return s.execute(ctx, op, admin, caller, func(_ context.Context, _ time.Time) error {
		if s.gate.Paused() == paused {
			return nil
		}
		s.touchSettings()
		s.gate.Set(paused)
		return nil
	})
}

// SetEconomics changes the base price, the multiplier or the rental period.
// The change applies to prices computed from now on.
func (s *Service) SetEconomics(ctx context.Context, caller common.Address, update EconomicsUpdate) error {
	return s.execute(ctx, "set_economics", admin, caller, func(_ context.Context, _ time.Time) error {
		econ := s.econ
		ov := s.overrides
		if update.BaseRentalPrice != nil {
			econ.BaseRentalPrice = new(big.Int).Set(update.BaseRentalPrice)
			ov.baseRentalPrice = new(big.Int).Set(update.BaseRentalPrice)
		}
		if update.PriceMultiplier != 0 {
			econ.PriceMultiplier = update.PriceMultiplier
			ov.priceMultiplier = update.PriceMultiplier
		}
		if update.RentalPeriod != 0 {
			econ.RentalPeriod = update.RentalPeriod
			ov.rentalPeriod = update.RentalPeriod
		}
		if err := econ.Validate(); err != nil {
			return err
		}

		s.touchSettings()
		s.econ = econ
		s.overrides = ov
		return nil
	})
}

// SetTreasury changes the address withdrawals are sent to
func (s *Service) SetTreasury(ctx context.Context, caller common.Address, treasury common.Address) error {
	return s.execute(ctx, "set_treasury", admin, caller, func(_ context.Context, _ time.Time) error {
		if domain.IsZeroAddress(treasury) {
			return fmt.Errorf("%w: treasury address is required", domain.ErrValidation)
		}
		if treasury == s.escrow {
			return fmt.Errorf("%w: treasury cannot be the escrow account", domain.ErrValidation)
		}
		s.touchSettings()
		s.treasury = treasury
		return nil
	})
}

// Deposit credits an account with host value
func (s *Service) Deposit(ctx context.Context, caller common.Address, account common.Address, amount *big.Int) error {
	return s.execute(ctx, "deposit", admin, caller, func(_ context.Context, _ time.Time) error {
		if domain.IsZeroAddress(account) {
			return fmt.Errorf("%w: account is required", domain.ErrValidation)
		}
		if amount == nil || amount.Sign() <= 0 {
			return fmt.Errorf("%w: deposit must be positive", domain.ErrValidation)
		}
		return s.vault.Deposit(account, amount)
	})
}
