package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/lmntix/finledger/internal/ledger/coa"
	"github.com/lmntix/finledger/internal/ledger/posting"
	"github.com/lmntix/finledger/internal/ledger/product"
	"github.com/lmntix/finledger/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Metrics        *observability.Metrics
	PostingHandler *posting.Handler
	CoAHandler     *coa.Handler
	ProductHandler *product.Handler
}

// NewRouter constructs the chi.Router with finledger defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	rateLimit := 120
	if params.Config != nil && params.Config.PostingRateLimit > 0 {
		rateLimit = params.Config.PostingRateLimit
	}

	r.Route("/api/tenants/{tenant}", func(r chi.Router) {
		if params.PostingHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(rateLimit, time.Minute))
				params.PostingHandler.MountRoutes(r)
			})
		}
		if params.CoAHandler != nil {
			params.CoAHandler.MountRoutes(r)
		}
		if params.ProductHandler != nil {
			params.ProductHandler.MountRoutes(r)
		}
	})

	return r
}
