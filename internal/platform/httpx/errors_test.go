package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{shared.ErrNotFound, http.StatusNotFound},
		{shared.ErrDuplicateCode, http.StatusConflict},
		{shared.ErrAmbiguousMapping, http.StatusConflict},
		{shared.ErrAlreadyDisbursed, http.StatusConflict},
		{shared.ErrAccountNotActive, http.StatusUnprocessableEntity},
		{shared.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{shared.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{shared.ErrInvalidStatus, http.StatusUnprocessableEntity},
		{errors.New("pool exhausted"), http.StatusInternalServerError},
		{shared.ErrCommitIntegrity, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%v", tc.err), func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestRespondErrorWrappedSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("post deposit: %w", shared.ErrInsufficientFunds))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRespondErrorInternalStaysOpaque(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	var problem ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	assert.Equal(t, http.StatusInternalServerError, problem.Status)
	assert.Empty(t, problem.Detail, "internals never leak to clients")
}
