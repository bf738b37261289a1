package dto

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/lease"
)

// Amounts are rendered as decimal strings

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func optionalAddress(a common.Address) *string {
	if domain.IsZeroAddress(a) {
		return nil
	}
	s := a.Hex()
	return &s
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// NameEntryResponse represents one name in creation order
type NameEntryResponse struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Key      string `json:"key"`
}

// NameListResponse represents a page of names in creation order
type NameListResponse struct {
	Names []NameEntryResponse `json:"names"`
	Total int                 `json:"total"`
}

// NewNameListResponse builds the response for a page of names
func NewNameListResponse(entries []lease.NameEntry, total int) NameListResponse {
	resp := NameListResponse{Names: make([]NameEntryResponse, 0, len(entries)), Total: total}
	for _, e := range entries {
		resp.Names = append(resp.Names, NameEntryResponse{Position: e.Position, Name: e.Name, Key: e.Key.Hex()})
	}
	return resp
}

// NameResponse represents the public view of a name
type NameResponse struct {
	Name          string            `json:"name"`
	Key           string            `json:"key"`
	TokenID       string            `json:"token_id"`
	Holder        *string           `json:"holder"`
	LastUpdatedAt *time.Time        `json:"last_updated_at,omitempty"`
	LastPrice     string            `json:"last_price"`
	URL           string            `json:"url"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	Expired       bool              `json:"expired"`
	Reactions     map[string]uint64 `json:"reactions"`
}

// NewNameResponse builds the response for a name view
func NewNameResponse(v *lease.NameView) NameResponse {
	reactions := make(map[string]uint64, len(domain.Reactions))
	for _, r := range domain.Reactions {
		reactions[string(r)] = v.Reactions[r]
	}
	return NameResponse{
		Name:          v.Name,
		Key:           v.Key.Hex(),
		TokenID:       amount(v.TokenID),
		Holder:        optionalAddress(v.Holder),
		LastUpdatedAt: optionalTime(v.LastUpdatedAt),
		LastPrice:     amount(v.LastPrice),
		URL:           v.PresentedURL,
		ExpiresAt:     optionalTime(v.ExpiresAt),
		Expired:       v.Expired,
		Reactions:     reactions,
	}
}

// PriceResponse represents the acquisition price of a name for a caller
type PriceResponse struct {
	Name   string  `json:"name"`
	Caller *string `json:"caller"`
	Price  string  `json:"price"`
}

// NeighborsResponse represents the names created around a name
type NeighborsResponse struct {
	Name     string  `json:"name"`
	Previous *string `json:"previous"`
	Next     *string `json:"next"`
}

// NewNeighborsResponse builds the response for a name's neighbors
func NewNeighborsResponse(name, prev, next string) NeighborsResponse {
	resp := NeighborsResponse{Name: name}
	if prev != "" {
		resp.Previous = &prev
	}
	if next != "" {
		resp.Next = &next
	}
	return resp
}

// HolderChangeResponse represents one entry of a name's holder history
type HolderChangeResponse struct {
	Holder string    `json:"holder"`
	At     time.Time `json:"at"`
}

// HistoryResponse represents a name's holder history, oldest first
type HistoryResponse struct {
	Name    string                 `json:"name"`
	History []HolderChangeResponse `json:"history"`
}

// NewHistoryResponse builds the response for a name's holder history
func NewHistoryResponse(name string, changes []lease.HolderChange) HistoryResponse {
	resp := HistoryResponse{Name: name, History: make([]HolderChangeResponse, 0, len(changes))}
	for _, c := range changes {
		resp.History = append(resp.History, HolderChangeResponse{Holder: c.Holder.Hex(), At: c.At})
	}
	return resp
}

// AcquireResponse represents the outcome of an acquisition
type AcquireResponse struct {
	Name           string  `json:"name"`
	Holder         string  `json:"holder"`
	PreviousHolder *string `json:"previous_holder"`
	Price          string  `json:"price"`
	Rebate         string  `json:"rebate"`
	Refund         string  `json:"refund"`
}

// NewAcquireResponse builds the response for an acquisition
func NewAcquireResponse(r *lease.AcquireResult) AcquireResponse {
	return AcquireResponse{
		Name:           r.Name,
		Holder:         r.Holder.Hex(),
		PreviousHolder: optionalAddress(r.PreviousHolder),
		Price:          amount(r.Price),
		Rebate:         amount(r.Rebate),
		Refund:         amount(r.Refund),
	}
}

// PaymentResponse represents the outcome of a paid operation
type PaymentResponse struct {
	Required string `json:"required"`
	Refund   string `json:"refund"`
}

// NewPaymentResponse builds the response for a paid operation
func NewPaymentResponse(r *lease.PaymentResult) PaymentResponse {
	return PaymentResponse{Required: amount(r.Required), Refund: amount(r.Refund)}
}

// RevealResponse represents the outcome of a reveal request
type RevealResponse struct {
	Granted bool   `json:"granted"`
	Refund  string `json:"refund"`
}

// NewRevealResponse builds the response for a reveal request
func NewRevealResponse(r *lease.RevealResult) RevealResponse {
	return RevealResponse{Granted: r.Granted, Refund: amount(r.Refund)}
}

// FieldResponse represents a revealed private field
type FieldResponse struct {
	Name  string `json:"name"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// BalanceResponse represents a vault balance
type BalanceResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

// StatsResponse represents the registry counters
type StatsResponse struct {
	Names           int     `json:"names"`
	Acquisitions    uint64  `json:"acquisitions"`
	Reactions       uint64  `json:"reactions"`
	Reveals         uint64  `json:"reveals"`
	TreasuryBalance string  `json:"treasury_balance"`
	LastCreated     *string `json:"last_created"`
	LastRented      *string `json:"last_rented"`
	Paused          bool    `json:"paused"`
	Initialized     bool    `json:"initialized"`
}

// NewStatsResponse builds the response for the registry counters
func NewStatsResponse(s lease.Stats) StatsResponse {
	resp := StatsResponse{
		Names:           s.Names,
		Acquisitions:    s.Acquisitions,
		Reactions:       s.Reactions,
		Reveals:         s.Reveals,
		TreasuryBalance: amount(s.TreasuryBalance),
		Paused:          s.Paused,
		Initialized:     s.Initialized,
	}
	if s.LastCreated != "" {
		resp.LastCreated = &s.LastCreated
	}
	if s.LastRented != "" {
		resp.LastRented = &s.LastRented
	}
	return resp
}

// WithdrawResponse represents the outcome of a treasury withdrawal
type WithdrawResponse struct {
	Amount string `json:"amount"`
}

// SeedNamesResponse represents the outcome of seeding
type SeedNamesResponse struct {
	Seeded int `json:"seeded"`
}

// StatusResponse acknowledges an administrative operation
type StatusResponse struct {
	Status string `json:"status"`
}
