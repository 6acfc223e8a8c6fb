package product

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/accounts", h.Open)
	r.Get("/accounts/{productType}/{number}", h.Get)
	r.Post("/accounts/{productType}/{number}/status", h.TransitionStatus)
}
