package httpx

import (
	"errors"
	"net/http"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// RespondError maps ledger errors to HTTP responses using RFC7807.
// Business-rule rejections carry enough detail to correct and resubmit;
// integrity failures stay opaque and are handled through alerting instead.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicateCode):
		Problem(w, http.StatusConflict, "Duplicate Code", err.Error())
	case errors.Is(err, shared.ErrAmbiguousMapping):
		Problem(w, http.StatusConflict, "Ambiguous Mapping", err.Error())
	case errors.Is(err, shared.ErrAccountNotActive):
		Problem(w, http.StatusUnprocessableEntity, "Account Not Active", err.Error())
	case errors.Is(err, shared.ErrInsufficientFunds):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Funds", err.Error())
	case errors.Is(err, shared.ErrInvalidAmount):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Amount", err.Error())
	case errors.Is(err, shared.ErrInvalidStatus):
		Problem(w, http.StatusUnprocessableEntity, "Invalid Status Transition", err.Error())
	case errors.Is(err, shared.ErrAlreadyDisbursed):
		Problem(w, http.StatusConflict, "Already Disbursed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
