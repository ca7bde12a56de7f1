// Package httputil provides HTTP response and request helpers shared by the
// savings service handlers and middleware.
package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/nestfund/savings_layer/internal/errors"
)

// APIResponse is the standard response envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Kind    string                 `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   string                 `json:"cause,omitempty"`
}

// exposeCauses controls whether wrapped causes are echoed to clients.
var exposeCauses = false

// SetExposeCauses toggles inclusion of error causes in responses. It is set
// once at startup for non-production environments.
func SetExposeCauses(expose bool) {
	exposeCauses = expose
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 envelope around data.
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// WriteCreated writes a 201 envelope around data.
func WriteCreated(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusCreated, APIResponse{Success: true, Data: data})
}

// WriteErrorResponse writes an error envelope with explicit fields.
func WriteErrorResponse(w http.ResponseWriter, status int, kind, message string, details map[string]interface{}) {
	WriteJSON(w, status, APIResponse{
		Success: false,
		Error: &ErrorBody{
			Kind:    kind,
			Message: message,
			Details: details,
		},
	})
}

// WriteServiceError writes err using its ServiceError mapping. Unknown errors
// become INTERNAL_ERROR.
func WriteServiceError(w http.ResponseWriter, err error) {
	se := errors.Wrap(err, "internal server error")
	body := &ErrorBody{
		Kind:    string(se.Code),
		Message: se.Message,
		Details: se.Details,
	}
	if exposeCauses && se.Err != nil {
		body.Cause = se.Err.Error()
	}
	if secs, ok := se.Details["retry_after_seconds"].(int64); ok && secs > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	WriteJSON(w, se.HTTPStatus, APIResponse{Success: false, Error: body})
}

// BadRequest writes a VALIDATION_ERROR response.
func BadRequest(w http.ResponseWriter, message string) {
	WriteServiceError(w, errors.Validation("%s", message))
}

// Unauthorized writes an AUTHENTICATION_ERROR response.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteServiceError(w, errors.Unauthorized(message))
}

// Forbidden writes an AUTHORIZATION_ERROR response.
func Forbidden(w http.ResponseWriter, message string) {
	WriteServiceError(w, errors.Forbidden(message))
}

// InternalError writes an INTERNAL_ERROR response.
func InternalError(w http.ResponseWriter, message string) {
	WriteServiceError(w, errors.Internal(message, nil))
}
