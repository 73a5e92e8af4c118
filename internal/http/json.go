package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/target/sessionauth/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, Message: "Invalid JSON"})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	Message string // defaults to http.StatusText(Code)
}

// WriteError writes a JSON error body of the form {"error": "<message>"}.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	msg := p.Message
	if msg == "" {
		msg = http.StatusText(p.Code)
	}
	WriteJSON(w, p.Code, map[string]string{"error": msg})
}

// Canned error bodies shared by the gate and the handlers.
var (
	errUnauthorized = ErrorParams{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	errForbidden    = ErrorParams{Code: http.StatusForbidden, Message: "Forbidden"}
	errNotFound     = ErrorParams{Code: http.StatusNotFound, Message: "Not found"}
	errInternal     = ErrorParams{Code: http.StatusInternalServerError, Message: "Internal Server Error"}
	errUnavailable  = ErrorParams{Code: http.StatusServiceUnavailable, Message: "Service Unavailable"}
	errTimeout      = ErrorParams{Code: http.StatusGatewayTimeout, Message: "Gateway Timeout"}
)

// faultResponse picks the 5xx body for a backing-store fault.
func faultResponse(err error) ErrorParams {
	switch {
	case apperrors.IsUnavailable(err):
		return errUnavailable
	case apperrors.IsTimeout(err):
		return errTimeout
	default:
		return errInternal
	}
}
