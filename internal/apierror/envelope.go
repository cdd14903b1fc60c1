package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Envelope is the {success,data,error} response shape used by every
// REST endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// WriteJSON writes a successful envelope with the given data.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}

// WriteError writes a failure envelope, deriving the HTTP status from
// the error's Code. Any error that isn't already an *Error is wrapped
// as CodeInternal so no raw error text ever reaches the client.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		apiErr = Internal(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status())
	json.NewEncoder(w).Encode(Envelope{Success: false, Error: apiErr})
}
