package posting

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/postings", h.Post)
	r.Post("/loans/{number}/disburse", h.Disburse)
	r.Get("/accounts/{productType}/{number}/balance", h.Balance)
	r.Get("/accounts/{productType}/{number}/statement", h.Statement)
}
