package coa

import (
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/gl-accounts", h.List)
	r.Post("/gl-accounts", h.Register)
	r.Post("/gl-accounts/{id}/deactivate", h.Deactivate)
}

func parseID(raw string) (uuid.UUID, error) {
	return uuid.Parse(raw)
}
