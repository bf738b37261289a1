package rest

import (
	"context"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-name-registry/internal/api/middleware"
	"github.com/feral-file/ff-name-registry/internal/api/shared/constants"
	"github.com/feral-file/ff-name-registry/internal/api/shared/dto"
	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/lease"
)

// Registry is the part of the lease service the REST API drives
type Registry interface {
	Acquire(ctx context.Context, caller common.Address, req lease.AcquireRequest, payment *big.Int) (*lease.AcquireResult, error)
	UpdateURL(ctx context.Context, caller common.Address, name, url string, payment *big.Int) (*lease.PaymentResult, error)
	React(ctx context.Context, caller common.Address, name string, reaction domain.Reaction, payment *big.Int) (*lease.PaymentResult, error)
	UpdateContact(ctx context.Context, caller common.Address, name string, update lease.ContactUpdate, payment *big.Int) (*lease.PaymentResult, error)
	RequestReveal(ctx context.Context, caller common.Address, name string, field domain.Field, payment *big.Int) (*lease.RevealResult, error)
	ReadField(ctx context.Context, caller common.Address, name string, field domain.Field) (string, error)

	GetPrice(ctx context.Context, caller common.Address, name string) (*big.Int, error)
	Exists(ctx context.Context, name string) (bool, error)
	ListKeys(ctx context.Context, start, end int) ([]lease.NameEntry, error)
	Record(ctx context.Context, name string) (*lease.NameView, error)
	Neighbors(ctx context.Context, name string) (string, string, error)
	HolderHistory(ctx context.Context, name string) ([]lease.HolderChange, error)
	Stats(ctx context.Context) (lease.Stats, error)
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)

	Withdraw(ctx context.Context, caller common.Address) (*big.Int, error)
	SeedNames(ctx context.Context, caller common.Address, names []string) (int, error)
	FinalizeSeeding(ctx context.Context, caller common.Address) error
	Pause(ctx context.Context, caller common.Address) error
	Unpause(ctx context.Context, caller common.Address) error
	SetEconomics(ctx context.Context, caller common.Address, update lease.EconomicsUpdate) error
	SetTreasury(ctx context.Context, caller common.Address, treasury common.Address) error
	Deposit(ctx context.Context, caller common.Address, account common.Address, amount *big.Int) error
}

// Handler defines the interface for REST API handlers
type Handler interface {
	// HealthCheck reports liveness
	// GET /health
	HealthCheck(c *gin.Context)

	// ListNames lists names in creation order
	// GET /api/v1/names?start=<start>&end=<end>
	ListNames(c *gin.Context)

	// GetName returns the public view of a name
	// GET /api/v1/names/:name
	GetName(c *gin.Context)

	// NameExists answers 200 when the name is in the chain and 404 otherwise
	// HEAD /api/v1/names/:name
	NameExists(c *gin.Context)

	// GetPrice returns what the caller would pay to acquire a name now.
	// Anonymous callers are quoted as a new holder.
	// GET /api/v1/names/:name/price
	GetPrice(c *gin.Context)

	// GetNeighbors returns the names created right before and after a name
	// GET /api/v1/names/:name/neighbors
	GetNeighbors(c *gin.Context)

	// GetHistory returns the holder history of a name
	// GET /api/v1/names/:name/history
	GetHistory(c *gin.Context)

	// Acquire rents a name for the caller
	// POST /api/v1/names/:name/acquire
	Acquire(c *gin.Context)

	// UpdateURL changes the presented URL of a held name
	// PUT /api/v1/names/:name/url
	UpdateURL(c *gin.Context)

	// React records a paid reaction on a name
	// POST /api/v1/names/:name/reactions
	React(c *gin.Context)

	// UpdateContact overwrites the private fields of a held name
	// PUT /api/v1/names/:name/contact
	UpdateContact(c *gin.Context)

	// RequestReveal buys the caller a grant to read one private field
	// POST /api/v1/names/:name/reveals/:field
	RequestReveal(c *gin.Context)

	// ReadField returns a private field to its holder or a grantee
	// GET /api/v1/names/:name/fields/:field
	ReadField(c *gin.Context)

	// GetBalance returns the vault balance of an account
	// GET /api/v1/accounts/:address/balance
	GetBalance(c *gin.Context)

	// GetStats returns the registry counters
	// GET /api/v1/stats
	GetStats(c *gin.Context)

	// Admin endpoints, POST /api/v1/admin/<operation>
	Withdraw(c *gin.Context)
	Pause(c *gin.Context)
	Unpause(c *gin.Context)
	SetEconomics(c *gin.Context)
	SetTreasury(c *gin.Context)
	SeedNames(c *gin.Context)
	FinalizeSeeding(c *gin.Context)
	Deposit(c *gin.Context)
}

type handler struct {
	registry Registry
}

// NewHandler creates a new REST API handler backed by the registry
func NewHandler(registry Registry) Handler {
	return &handler{
		registry: registry,
	}
}

// bindJSON decodes a bounded request body into req
func bindJSON(c *gin.Context, req any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MAX_REQUEST_BODY_BYTES)
	if err := c.ShouldBindJSON(req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return false
	}
	return true
}

func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ff-name-registry-api",
	})
}

func (h *handler) ListNames(c *gin.Context) {
	start, end, err := ParseListNamesQuery(c)
	if err != nil {
		respondValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	entries, err := h.registry.ListKeys(ctx, start, end)
	if err != nil {
		respondServiceError(c, err, "list_keys")
		return
	}
	stats, err := h.registry.Stats(ctx)
	if err != nil {
		respondServiceError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, dto.NewNameListResponse(entries, stats.Names))
}

func (h *handler) GetName(c *gin.Context) {
	view, err := h.registry.Record(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondServiceError(c, err, "record")
		return
	}
	c.JSON(http.StatusOK, dto.NewNameResponse(view))
}

func (h *handler) NameExists(c *gin.Context) {
	exists, err := h.registry.Exists(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondServiceError(c, err, "exists")
		return
	}
	if !exists {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

func (h *handler) GetPrice(c *gin.Context) {
	name := c.Param("name")
	caller := middleware.Caller(c)
	price, err := h.registry.GetPrice(c.Request.Context(), caller, name)
	if err != nil {
		respondServiceError(c, err, "get_price")
		return
	}

	resp := dto.PriceResponse{Name: name, Price: price.String()}
	if !domain.IsZeroAddress(caller) {
		hex := caller.Hex()
		resp.Caller = &hex
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetNeighbors(c *gin.Context) {
	name := c.Param("name")
	prev, next, err := h.registry.Neighbors(c.Request.Context(), name)
	if err != nil {
		respondServiceError(c, err, "neighbors")
		return
	}
	c.JSON(http.StatusOK, dto.NewNeighborsResponse(name, prev, next))
}

func (h *handler) GetHistory(c *gin.Context) {
	name := c.Param("name")
	history, err := h.registry.HolderHistory(c.Request.Context(), name)
	if err != nil {
		respondServiceError(c, err, "holder_history")
		return
	}
	c.JSON(http.StatusOK, dto.NewHistoryResponse(name, history))
}

func (h *handler) Acquire(c *gin.Context) {
	var req dto.AcquireRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.registry.Acquire(c.Request.Context(), middleware.Caller(c), req.ToLease(c.Param("name")), req.Payment())
	if err != nil {
		respondServiceError(c, err, "acquire")
		return
	}
	c.JSON(http.StatusOK, dto.NewAcquireResponse(result))
}

func (h *handler) UpdateURL(c *gin.Context) {
	var req dto.UpdateURLRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.registry.UpdateURL(c.Request.Context(), middleware.Caller(c), c.Param("name"), req.URL, req.Payment())
	if err != nil {
		respondServiceError(c, err, "update_url")
		return
	}
	c.JSON(http.StatusOK, dto.NewPaymentResponse(result))
}

func (h *handler) React(c *gin.Context) {
	var req dto.ReactRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}
	reaction, err := domain.ParseReaction(req.Reaction)
	if err != nil {
		respondServiceError(c, err, "react")
		return
	}

	result, err := h.registry.React(c.Request.Context(), middleware.Caller(c), c.Param("name"), reaction, req.Payment())
	if err != nil {
		respondServiceError(c, err, "react")
		return
	}
	c.JSON(http.StatusOK, dto.NewPaymentResponse(result))
}

func (h *handler) UpdateContact(c *gin.Context) {
	var req dto.UpdateContactRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.registry.UpdateContact(c.Request.Context(), middleware.Caller(c), c.Param("name"), req.ToLease(), req.Payment())
	if err != nil {
		respondServiceError(c, err, "update_contact")
		return
	}
	c.JSON(http.StatusOK, dto.NewPaymentResponse(result))
}

func (h *handler) RequestReveal(c *gin.Context) {
	field, err := domain.ParseField(c.Param("field"))
	if err != nil {
		respondServiceError(c, err, "request_reveal")
		return
	}
	var req dto.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	result, err := h.registry.RequestReveal(c.Request.Context(), middleware.Caller(c), c.Param("name"), field, req.Payment())
	if err != nil {
		respondServiceError(c, err, "request_reveal")
		return
	}
	c.JSON(http.StatusOK, dto.NewRevealResponse(result))
}

func (h *handler) ReadField(c *gin.Context) {
	name := c.Param("name")
	field, err := domain.ParseField(c.Param("field"))
	if err != nil {
		respondServiceError(c, err, "read_field")
		return
	}

	value, err := h.registry.ReadField(c.Request.Context(), middleware.Caller(c), name, field)
	if err != nil {
		respondServiceError(c, err, "read_field")
		return
	}
	c.JSON(http.StatusOK, dto.FieldResponse{Name: name, Field: string(field), Value: value})
}

func (h *handler) GetBalance(c *gin.Context) {
	account, err := dto.ParseAddress(c.Param("address"))
	if err != nil {
		respondValidationError(c, err)
		return
	}
	balance, err := h.registry.BalanceOf(c.Request.Context(), account)
	if err != nil {
		respondServiceError(c, err, "balance_of")
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{Address: account.Hex(), Balance: balance.String()})
}

func (h *handler) GetStats(c *gin.Context) {
	stats, err := h.registry.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "stats")
		return
	}
	c.JSON(http.StatusOK, dto.NewStatsResponse(stats))
}

func (h *handler) Withdraw(c *gin.Context) {
	amount, err := h.registry.Withdraw(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		respondServiceError(c, err, "withdraw")
		return
	}
	c.JSON(http.StatusOK, dto.WithdrawResponse{Amount: amount.String()})
}

func (h *handler) Pause(c *gin.Context) {
	if err := h.registry.Pause(c.Request.Context(), middleware.Caller(c)); err != nil {
		respondServiceError(c, err, "pause")
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "paused"})
}

func (h *handler) Unpause(c *gin.Context) {
	if err := h.registry.Unpause(c.Request.Context(), middleware.Caller(c)); err != nil {
		respondServiceError(c, err, "unpause")
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "active"})
}

func (h *handler) SetEconomics(c *gin.Context) {
	var req dto.SetEconomicsRequest
	if !bindJSON(c, &req) {
		return
	}
	update, err := req.ToLease()
	if err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.registry.SetEconomics(c.Request.Context(), middleware.Caller(c), update); err != nil {
		respondServiceError(c, err, "set_economics")
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "updated"})
}

func (h *handler) SetTreasury(c *gin.Context) {
	var req dto.SetTreasuryRequest
	if !bindJSON(c, &req) {
		return
	}
	treasury, err := req.Parse()
	if err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.registry.SetTreasury(c.Request.Context(), middleware.Caller(c), treasury); err != nil {
		respondServiceError(c, err, "set_treasury")
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "updated"})
}

func (h *handler) SeedNames(c *gin.Context) {
	var req dto.SeedNamesRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err)
		return
	}

	seeded, err := h.registry.SeedNames(c.Request.Context(), middleware.Caller(c), req.Names)
	if err != nil {
		respondServiceError(c, err, "seed_names")
		return
	}
	c.JSON(http.StatusOK, dto.SeedNamesResponse{Seeded: seeded})
}

func (h *handler) FinalizeSeeding(c *gin.Context) {
	if err := h.registry.FinalizeSeeding(c.Request.Context(), middleware.Caller(c)); err != nil {
		respondServiceError(c, err, "finalize_seeding")
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "initialized"})
}

func (h *handler) Deposit(c *gin.Context) {
	var req dto.DepositRequest
	if !bindJSON(c, &req) {
		return
	}
	account, amount, err := req.Parse()
	if err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.registry.Deposit(c.Request.Context(), middleware.Caller(c), account, amount); err != nil {
		respondServiceError(c, err, "deposit")
		return
	}
	balance, err := h.registry.BalanceOf(c.Request.Context(), account)
	if err != nil {
		respondServiceError(c, err, "balance_of")
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{Address: account.Hex(), Balance: balance.String()})
}
