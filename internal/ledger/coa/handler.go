package coa

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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

type registerRequest struct {
	Code           string `json:"code" validate:"required,max=32"`
	Name           string `json:"name" validate:"required,max=120"`
	Classification string `json:"classification" validate:"required"`
	Tag            string `json:"tag" validate:"omitempty,max=32"`
}

type accountResponse struct {
	ID             string  `json:"id"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Classification string  `json:"classification"`
	Tag            *string `json:"tag,omitempty"`
	IsActive       bool    `json:"isActive"`
	CreatedAt      string  `json:"createdAt"`
}

func toAccountResponse(a GLAccount) accountResponse {
	resp := accountResponse{
		ID:             a.ID.String(),
		Code:           a.Code,
		Name:           a.Name,
		Classification: string(a.Classification),
		IsActive:       a.IsActive,
		CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.Tag != nil {
		tag := string(*a.Tag)
		resp.Tag = &tag
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	accounts, err := h.service.List(r.Context(), tenant.ID)
	if err != nil {
		h.logger.Error("list gl accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := RegisterInput{
		TenantID:       tenant.ID,
		Code:           req.Code,
		Name:           req.Name,
		Classification: Classification(req.Classification),
	}
	if req.Tag != "" {
		tag := Tag(req.Tag)
		in.Tag = &tag
	}
	account, err := h.service.RegisterAccount(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	if err := h.service.DeactivateAccount(r.Context(), tenant.ID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
