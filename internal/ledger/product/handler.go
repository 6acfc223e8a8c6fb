package product

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lmntix/finledger/internal/ledger/shared"
	"github.com/lmntix/finledger/internal/platform/httpx"
	"github.com/lmntix/finledger/internal/tenancy"
)

type Handler struct {
	service  *Service
	tenants  tenancy.Resolver
	logger   *slog.Logger
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, tenants tenancy.Resolver) *Handler {
	return &Handler{service: service, tenants: tenants, logger: logger, validate: validator.New()}
}

type openRequest struct {
	CustomerID  string `json:"customerId" validate:"required,uuid"`
	Number      string `json:"accountNumber" validate:"required,max=32"`
	ProductType string `json:"productType" validate:"required"`
	LoanAmount  string `json:"loanAmount" validate:"omitempty"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=DORMANT CLOSED"`
}

type accountResponse struct {
	ID               string `json:"id"`
	CustomerID       string `json:"customerId"`
	Number           string `json:"accountNumber"`
	ProductType      string `json:"productType"`
	Status           string `json:"status"`
	ControlAccountID string `json:"controlAccountId"`
	Balance          string `json:"balance"`
	CreatedAt        string `json:"createdAt"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:               a.ID.String(),
		CustomerID:       a.CustomerID.String(),
		Number:           a.Number,
		ProductType:      string(a.Type),
		Status:           string(a.Status),
		ControlAccountID: a.ControlAccountID.String(),
		Balance:          a.Balance.StringFixed(shared.MoneyScale),
		CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) resolveTenant(w http.ResponseWriter, r *http.Request) (tenancy.Tenant, bool) {
	tenant, err := h.tenants.ResolveCode(r.Context(), chi.URLParam(r, "tenant"))
	if err != nil {
		httpx.RespondError(w, err)
		return tenancy.Tenant{}, false
	}
	return tenant, true
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	var req openRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Customer ID", err.Error())
		return
	}
	in := OpenInput{
		TenantID:   tenant.ID,
		CustomerID: customerID,
		Number:     req.Number,
		Type:       shared.ProductType(req.ProductType),
	}
	if req.LoanAmount != "" {
		amount, err := decimal.NewFromString(req.LoanAmount)
		if err != nil {
			httpx.RespondError(w, shared.ErrInvalidAmount)
			return
		}
		in.LoanAmount = amount
	}
	account, err := h.service.Open(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	ref := Ref{Type: shared.ProductType(chi.URLParam(r, "productType")), Number: chi.URLParam(r, "number")}
	if !ref.Type.Valid() {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	account, err := h.service.Get(r.Context(), tenant.ID, ref)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ref := Ref{Type: shared.ProductType(chi.URLParam(r, "productType")), Number: chi.URLParam(r, "number")}
	if !ref.Type.Valid() {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	if err := h.service.TransitionStatus(r.Context(), tenant.ID, ref, shared.AccountStatus(req.Status)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
