// Package guard provides the capabilities every mutating registry operation is
// wrapped in: a pause gate, an owner check and a reentrancy lock.
package guard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
)

// PausableGate rejects mutating operations while paused
type PausableGate struct {
	paused atomic.Bool
}

// Check returns ErrPaused while the gate is closed
func (g *PausableGate) Check() error {
	if g.paused.Load() {
		return domain.ErrPaused
	}
	return nil
}

// Set opens or closes the gate and returns the previous state
func (g *PausableGate) Set(paused bool) bool {
	return g.paused.Swap(paused)
}

func (g *PausableGate) Paused() bool {
	return g.paused.Load()
}

// OwnerGuard restricts administrative operations to a single identity
type OwnerGuard struct {
	owner common.Address
}

// NewOwnerGuard creates a guard for owner
func NewOwnerGuard(owner common.Address) OwnerGuard {
	return OwnerGuard{owner: owner}
}

// Check returns ErrUnauthorized unless caller is the owner
func (g OwnerGuard) Check(caller common.Address) error {
	if domain.IsZeroAddress(g.owner) || caller != g.owner {
		return fmt.Errorf("%w: %s is not the registry owner", domain.ErrUnauthorized, caller.Hex())
	}
	return nil
}

func (g OwnerGuard) Owner() common.Address {
	return g.owner
}

type lockKey struct {
	lock *ReentrancyLock
}

// DefaultLockWait bounds how long a caller waits for the registry lock
const DefaultLockWait = 5 * time.Second

var errLockBusy = errors.New("registry lock busy")

// ReentrancyLock serializes registry operations and marks the context of the
// operation holding it. A call carrying the marked context is rejected at
// once. A call with any other context waits at most the lock wait, so a
// transfer hook calling back with a detached context is rejected with
// ErrReentrantCall once the wait runs out.
type ReentrancyLock struct {
	mu   sync.RWMutex
	wait time.Duration
}

// NewReentrancyLock creates a lock whose callers wait at most wait.
// A zero wait means DefaultLockWait.
func NewReentrancyLock(wait time.Duration) *ReentrancyLock {
	return &ReentrancyLock{wait: wait}
}

// Held reports whether ctx belongs to the operation currently holding the lock
func (l *ReentrancyLock) Held(ctx context.Context) bool {
	owner, _ := ctx.Value(lockKey{l}).(bool)
	return owner
}

// Enter takes the lock exclusively and returns the marked context with its
// release func. The release func must be deferred by the caller.
func (l *ReentrancyLock) Enter(ctx context.Context) (context.Context, func(), error) {
	if l.Held(ctx) {
		return ctx, func() {}, domain.ErrReentrantCall
	}
	if err := l.acquire(ctx, l.mu.TryLock); err != nil {
		return ctx, func() {}, err
	}
	return context.WithValue(ctx, lockKey{l}, true), once(l.mu.Unlock), nil
}

// EnterRead takes the lock shared. Inside the operation holding the lock it
// is a no-op so nested reads see the in-flight state.
func (l *ReentrancyLock) EnterRead(ctx context.Context) (func(), error) {
	if l.Held(ctx) {
		return func() {}, nil
	}
	if err := l.acquire(ctx, l.mu.TryRLock); err != nil {
		return func() {}, err
	}
	return once(l.mu.RUnlock), nil
}

func (l *ReentrancyLock) acquire(ctx context.Context, try func() bool) error {
	if try() {
		return nil
	}

	wait := l.wait
	if wait <= 0 {
		wait = DefaultLockWait
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	b.MaxElapsedTime = wait

	err := backoff.Retry(func() error {
		if try() {
			return nil
		}
		return errLockBusy
	}, backoff.WithContext(b, ctx))
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: lock not acquired within %s", domain.ErrReentrantCall, wait)
}

func once(release func()) func() {
	var released atomic.Bool
	return func() {
		if released.CompareAndSwap(false, true) {
			release()
		}
	}
}
