package httpx

import (
	"net/http"

	"github.com/landbook/landbook/internal/shared"
)

// StatusFor maps a domain error code to its HTTP status.
func StatusFor(code shared.Code) int {
	switch code {
	case shared.CodeMissingField, shared.CodeInvalidAmount, shared.CodeValidationFailed:
		return http.StatusBadRequest
	case shared.CodeUnauthenticated:
		return http.StatusUnauthorized
	case shared.CodeUnauthorized, shared.CodeForbidden:
		return http.StatusForbidden
	case shared.CodeNotFound:
		return http.StatusNotFound
	case shared.CodeInvalidState, shared.CodeFinalized, shared.CodeAlreadyCleared, shared.CodeAlreadyBounced,
		shared.CodeAlreadyCancelled, shared.CodeDuplicateEntry, shared.CodeScheduleAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the error envelope for err. Errors outside the domain
// taxonomy are reported as InternalError without their message.
func RespondError(w http.ResponseWriter, err error) {
	code := shared.CodeOf(err)
	status := StatusFor(code)
	message := "internal server error"
	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	Fail(w, status, string(code), message)
}

// IsServerError reports whether err would be rendered as a 5xx.
func IsServerError(err error) bool {
	return StatusFor(shared.CodeOf(err)) >= http.StatusInternalServerError
}
