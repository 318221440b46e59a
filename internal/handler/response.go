// internal/handler/response.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
)

// ErrorBody is the JSON shape of every non-2xx response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.GetLogger().WithField("error", err).Error("❌ Failed to encode response")
	}
}

// StatusFor maps an error to its HTTP status and a stable code.
func StatusFor(err error) (int, string) {
	var verr *appErrors.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "validation_failed"
	case appErrors.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, appErrors.ErrCampaignClosed):
		return http.StatusGone, "campaign_closed"
	case errors.Is(err, appErrors.ErrSlugTaken):
		return http.StatusConflict, "slug_taken"
	case errors.Is(err, appErrors.ErrSubmitInFlight):
		return http.StatusConflict, "submit_in_flight"
	case errors.Is(err, appErrors.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, appErrors.ErrInvalidStatusTransition):
		return http.StatusConflict, "invalid_status_transition"
	case errors.Is(err, appErrors.ErrStaleSession):
		return http.StatusConflict, "stale_session"
	case errors.Is(err, appErrors.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large"
	case errors.Is(err, appErrors.ErrFileTypeNotAllowed):
		return http.StatusUnsupportedMediaType, "file_type_not_allowed"
	case errors.Is(err, appErrors.ErrPolicyBlocked):
		return http.StatusForbidden, "policy_blocked"
	case errors.Is(err, appErrors.ErrUnsupportedPlatform):
		return http.StatusBadRequest, "unsupported_platform"
	case errors.Is(err, appErrors.ErrUnrecognizedObjectRef):
		return http.StatusBadRequest, "unrecognized_object_ref"
	}
	return http.StatusInternalServerError, "internal"
}

// WriteError renders err. Internal errors are logged and hidden from the client.
func WriteError(w http.ResponseWriter, err error) {
	writeErrorWithFallback(w, err, http.StatusInternalServerError, "internal")
}

// writeErrorWithFallback lets upstream-facing endpoints report unclassified
// failures as something other than 500.
func writeErrorWithFallback(w http.ResponseWriter, err error, fallbackStatus int, fallbackCode string) {
	status, code := StatusFor(err)
	body := ErrorBody{Error: err.Error(), Code: code}

	var verr *appErrors.ValidationError
	if errors.As(err, &verr) {
		body.Error = "validation failed"
		body.Fields = verr.Fields
	}
	if code == "internal" {
		status, code = fallbackStatus, fallbackCode
		body.Code = code
		logger.GetLogger().WithFields(map[string]interface{}{
			"status": status,
			"error":  err,
		}).Error("❌ Request failed")
		if status == http.StatusInternalServerError {
			body.Error = "internal server error"
		}
	}
	WriteJSON(w, status, body)
}

// BadRequest reports a malformed request.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: msg, Code: "bad_request"})
}

// DecodeJSON reads a JSON body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
