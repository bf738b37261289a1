package ledger

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/feral-file/ff-name-registry/internal/domain"
)

// Expired reports whether the lease on rec has run out at now.
// The boundary instant counts as expired.
func Expired(rec Record, now time.Time, period time.Duration) bool {
	return !now.Before(rec.LastUpdatedAt.Add(period))
}

// Price returns what caller must pay to acquire the name held in rec.
// A nil record is a name that was never created.
func Price(rec *Record, caller common.Address, now time.Time, econ domain.Economics) (*big.Int, error) {
	if rec == nil || !rec.Acquired() || Expired(*rec, now, econ.RentalPeriod) {
		return new(big.Int).Set(econ.BaseRentalPrice), nil
	}

	if rec.Holder == caller {
		return new(big.Int).Set(rec.LastPrice), nil
	}

	price := new(big.Int).Mul(rec.LastPrice, new(big.Int).SetUint64(econ.PriceMultiplier))
	if price.Cmp(math.MaxBig256) > 0 {
		return nil, fmt.Errorf("%w: %s x %d", domain.ErrPriceOverflow, rec.LastPrice, econ.PriceMultiplier)
	}
	return price, nil
}

// PriceOf returns the acquisition price of a name by string
func (s *State) PriceOf(name string, caller common.Address, now time.Time, econ domain.Economics) (*big.Int, error) {
	rec, ok := s.Lookup(name)
	if !ok {
		return Price(nil, caller, now, econ)
	}
	return Price(&rec, caller, now, econ)
}
