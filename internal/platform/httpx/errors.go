// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var validation *shared.ValidationError
	var locked *shared.LockedPeriodError
	switch {
	case errors.As(err, &validation):
		Problem(w, http.StatusBadRequest, "Validation Failed", validation.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &locked):
		Problem(w, http.StatusLocked, "Fiscal Year Locked", locked.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
