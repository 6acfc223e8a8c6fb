package posting

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/lmntix/finledger/internal/ledger/journal"
	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/ledger/shared"
	"github.com/lmntix/finledger/internal/platform/httpx"
	"github.com/lmntix/finledger/internal/tenancy"
)

type Handler struct {
	engine   *Engine
	tenants  tenancy.Resolver
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, engine *Engine, tenants tenancy.Resolver) *Handler {
	return &Handler{
		engine:   engine,
		tenants:  tenants,
		logger:   logger,
		validate: validator.New(),
	}
}

type postRequest struct {
	Type           string `json:"type" validate:"required"`
	ProductType    string `json:"productType" validate:"required"`
	AccountNumber  string `json:"accountNumber" validate:"required"`
	Amount         string `json:"amount" validate:"required"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,max=64"`
}

type disburseRequest struct {
	Amount         string `json:"amount" validate:"required"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,max=64"`
}

type postingResponse struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	DebitAccountID  string  `json:"debitAccountId"`
	CreditAccountID string  `json:"creditAccountId"`
	Amount          string  `json:"amount"`
	ProductType     *string `json:"productType,omitempty"`
	AccountID       *string `json:"productAccountId,omitempty"`
	CreatedAt       string  `json:"createdAt"`
}

func toPostingResponse(p journal.Posting) postingResponse {
	resp := postingResponse{
		ID:              p.ID.String(),
		Type:            string(p.Type),
		DebitAccountID:  p.DebitAccountID.String(),
		CreditAccountID: p.CreditAccountID.String(),
		Amount:          p.Amount.StringFixed(shared.MoneyScale),
		CreatedAt:       p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.ProductType != nil {
		pt := string(*p.ProductType)
		resp.ProductType = &pt
	}
	if p.ProductAccountID != nil {
		id := p.ProductAccountID.String()
		resp.AccountID = &id
	}
	return resp
}

func (h *Handler) resolveTenant(w http.ResponseWriter, r *http.Request) (tenancy.Tenant, bool) {
	tenant, err := h.tenants.ResolveCode(r.Context(), chi.URLParam(r, "tenant"))
	if err != nil {
		httpx.RespondError(w, err)
		return tenancy.Tenant{}, false
	}
	return tenant, true
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidAmount)
		return
	}
	committed, err := h.engine.Post(r.Context(), tenant.ID, Event{
		Type:           shared.TransactionType(req.Type),
		Account:        product.Ref{Type: shared.ProductType(req.ProductType), Number: req.AccountNumber},
		Amount:         amount,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		if errors.Is(err, shared.ErrCommitIntegrity) {
			h.logger.Error("posting failed with integrity violation",
				slog.String("tenant", tenant.Code), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostingResponse(committed))
}

func (h *Handler) Disburse(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	var req disburseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.RespondError(w, shared.ErrInvalidAmount)
		return
	}
	committed, err := h.engine.Disburse(r.Context(), tenant.ID, chi.URLParam(r, "number"), amount, req.IdempotencyKey)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostingResponse(committed))
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	ref := product.Ref{
		Type:   shared.ProductType(chi.URLParam(r, "productType")),
		Number: chi.URLParam(r, "number"),
	}
	if !ref.Type.Valid() {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	balance, err := h.engine.GetBalance(r.Context(), tenant.ID, ref)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"accountNumber": ref.Number,
		"balance":       balance.StringFixed(shared.MoneyScale),
	})
}

func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	ref := product.Ref{
		Type:   shared.ProductType(chi.URLParam(r, "productType")),
		Number: chi.URLParam(r, "number"),
	}
	if !ref.Type.Valid() {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	from, to, err := statementRange(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Date Range", err.Error())
		return
	}
	postings, err := h.engine.GetStatement(r.Context(), tenant.ID, ref, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]postingResponse, 0, len(postings))
	for _, p := range postings {
		out = append(out, toPostingResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func statementRange(r *http.Request) (time.Time, time.Time, error) {
	from := time.Time{}
	to := time.Now().Add(24 * time.Hour)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// Exclusive upper bound: include the whole "to" day.
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, nil
}
