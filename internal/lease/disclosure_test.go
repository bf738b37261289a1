package lease

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-name-registry/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestRevealLifecycle(t *testing.T) {
	h := newHarness(t)
	h.acquire(alice, "alpha", 1000)

	h.at(t0.Add(time.Second))
	res, err := h.svc.UpdateContact(h.ctx, alice, "alpha", ContactUpdate{Email: strPtr("alice@example.com")}, big.NewInt(6))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Required.Cmp(big.NewInt(6)))

	_, err = h.svc.ReadField(h.ctx, bob, "alpha", domain.FieldEmail)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	// NoGrant -> Granted: the holder receives the full price
	h.at(t0.Add(2 * time.Second))
	reveal, err := h.svc.RequestReveal(h.ctx, bob, "alpha", domain.FieldEmail, big.NewInt(100))
	require.NoError(t, err)
	assert.True(t, reveal.Granted)
	assert.Equal(t, 0, reveal.Refund.Cmp(big.NewInt(40)))
	h.assertBalance(alice, startingBalance-1000-6+60)
	h.assertBalance(bob, startingBalance-60)

	email, err := h.svc.ReadField(h.ctx, bob, "alpha", domain.FieldEmail)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
	assert.Equal(t, uint64(1), h.stats().Reveals)

	// Granted -> Granted: a current grant refunds the whole payment
	h.at(t0.Add(3 * time.Second))
	reveal, err = h.svc.RequestReveal(h.ctx, bob, "alpha", domain.FieldEmail, big.NewInt(60))
	require.NoError(t, err)
	assert.False(t, reveal.Granted)
	assert.Equal(t, 0, reveal.Refund.Cmp(big.NewInt(60)))
	h.assertBalance(alice, startingBalance-1000-6+60)
	h.assertBalance(bob, startingBalance-60)
	assert.Equal(t, uint64(1), h.stats().Reveals)
	assert.Empty(t, h.lastCommit().Outbox)

	rec, ok := h.svc.state.Lookup("alpha")
	require.True(t, ok)
	grantedAt, ok := h.svc.state.GrantedAt(bob, rec.Index, domain.FieldEmail)
	require.True(t, ok)
	assert.True(t, grantedAt.Equal(t0.Add(2*time.Second)), "grant time moved to %s", grantedAt)

	// Granted -> Stale on update
	h.at(t0.Add(4 * time.Second))
	_, err = h.svc.UpdateContact(h.ctx, alice, "alpha", ContactUpdate{Email: strPtr("new@example.com")}, big.NewInt(6))
	require.NoError(t, err)
	_, err = h.svc.ReadField(h.ctx, bob, "alpha", domain.FieldEmail)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	// Other fields are unaffected by the email grant
	_, err = h.svc.ReadField(h.ctx, bob, "alpha", domain.FieldPhone)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	// Stale -> Granted
	h.at(t0.Add(5 * time.Second))
	reveal, err = h.svc.RequestReveal(h.ctx, bob, "alpha", domain.FieldEmail, big.NewInt(60))
	require.NoError(t, err)
	assert.True(t, reveal.Granted)
	email, err = h.svc.ReadField(h.ctx, bob, "alpha", domain.FieldEmail)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", email)

	// A holder change invalidates every grant
	h.at(t0.Add(6 * time.Second))
	h.acquire(carol, "alpha", 2000)
	_, err = h.svc.ReadField(h.ctx, bob, "alpha", domain.FieldEmail)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	email, err = h.svc.ReadField(h.ctx, carol, "alpha", domain.FieldEmail)
	require.NoError(t, err)
	assert.Empty(t, email)
}

func TestRequestRevealErrors(t *testing.T) {
	h := newHarness(t)
	h.acquire(alice, "alpha", 1000)
	h.at(t0.Add(time.Second))

	tests := []struct {
		name    string
		caller  string
		target  string
		field   domain.Field
		payment *big.Int
		wantErr error
	}{
		{"self reveal", "alice", "alpha", domain.FieldEmail, big.NewInt(60), domain.ErrSelfRevealDenied},
		{"unknown field", "bob", "alpha", domain.Field("address"), big.NewInt(60), domain.ErrValidation},
		{"never held", "bob", "ghost", domain.FieldEmail, big.NewInt(60), domain.ErrNameNotFound},
		{"underpaid", "bob", "alpha", domain.FieldPhone, big.NewInt(69), domain.ErrInsufficientPayment},
	}
	callers := map[string]common.Address{"alice": alice, "bob": bob}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.RequestReveal(h.ctx, callers[tt.caller], tt.target, tt.field, tt.payment)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := h.svc.RequestReveal(h.ctx, alice, "alpha", domain.FieldEmail, big.NewInt(60))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateContact(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Acquire(h.ctx, alice, AcquireRequest{Name: "alpha", Email: "alice@example.com"}, big.NewInt(1000))
	require.NoError(t, err)
	h.at(t0.Add(time.Second))

	_, err = h.svc.UpdateContact(h.ctx, alice, "alpha", ContactUpdate{}, big.NewInt(100))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.svc.UpdateContact(h.ctx, bob, "alpha", ContactUpdate{Phone: strPtr("+1")}, big.NewInt(100))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = h.svc.UpdateContact(h.ctx, alice, "alpha", ContactUpdate{Phone: strPtr("+1")}, big.NewInt(6))
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)

	// Phone is charged at the phone price and writes the phone field
	res, err := h.svc.UpdateContact(h.ctx, alice, "alpha", ContactUpdate{Phone: strPtr("+1")}, big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Required.Cmp(big.NewInt(7)))

	phone, err := h.svc.ReadField(h.ctx, alice, "alpha", domain.FieldPhone)
	require.NoError(t, err)
	assert.Equal(t, "+1", phone)
	email, err := h.svc.ReadField(h.ctx, alice, "alpha", domain.FieldEmail)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	// Several fields sum their prices
	res, err = h.svc.UpdateContact(h.ctx, alice, "alpha", ContactUpdate{
		Telegram: strPtr("@alice"),
		Phone:    strPtr(""),
	}, big.NewInt(20))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Required.Cmp(big.NewInt(12)))
	assert.Equal(t, 0, res.Refund.Cmp(big.NewInt(8)))

	cs := h.lastCommit()
	require.Len(t, cs.Outbox, 1)
	assert.Equal(t, "telegram,phone", cs.Outbox[0].Data["fields"])
	assert.Len(t, cs.Contacts, 2)

	h.assertTreasury(1000 + 7 + 12)
}
