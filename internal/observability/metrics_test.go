package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

func TestPostingCounters(t *testing.T) {
	m := NewMetrics()

	m.PostingCommitted(shared.TxDeposit, shared.ProductSavings, 5*time.Millisecond)
	m.PostingCommitted(shared.TxDeposit, shared.ProductSavings, 5*time.Millisecond)
	m.PostingCommitted(shared.TxWithdrawal, shared.ProductLoan, 5*time.Millisecond)
	m.PostingRejected("insufficient_funds")
	m.ReconcileMismatch(shared.ProductSavings)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.postingsTotal.WithLabelValues("DEPOSIT", "SAVINGS")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.postingsTotal.WithLabelValues("WITHDRAWAL", "LOAN")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.postingRejections.WithLabelValues("insufficient_funds")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reconcileMismatches.WithLabelValues("SAVINGS")))
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()

	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues("/healthz", "200")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := NewMetrics()
	m.PostingRejected("invalid_amount")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "finledger_posting_rejections_total")
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.PostingCommitted(shared.TxDeposit, shared.ProductSavings, time.Millisecond)
	m.PostingRejected("x")
	m.ReconcileMismatch(shared.ProductLoan)
	assert.NotNil(t, m.Handler())
	assert.NotNil(t, m.Registerer())
}
