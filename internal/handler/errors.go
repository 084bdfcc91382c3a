package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/teamauth/pkg/oauth"
	"github.com/dmitrymomot/teamauth/pkg/provision"
)

// HTTPError is the JSON error body of the auth endpoints. Err is logged, never rendered.
type HTTPError struct {
	Err           error  `json:"-"`
	Message       string `json:"message"`
	ErrorCode     string `json:"code"`
	OwnerTenantID string `json:"owner_tenant_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
	Code          int    `json:"-"`
}

func (e *HTTPError) Error() string { return e.Message }

func (e *HTTPError) Unwrap() error { return e.Err }

// Outcome labels, also used as metric values.
const (
	outcomeSuccess      = "success"
	outcomeInvalid      = "invalid"
	outcomeConflict     = "conflict"
	outcomeUnavailable  = "unavailable"
	outcomeProviderFail = "provider_error"
)

// classify maps a login failure to its HTTP form and metric outcome.
func classify(err error) (*HTTPError, string) {
	var conflict *provision.ConflictError
	switch {
	case errors.As(err, &conflict):
		return &HTTPError{
			Err:           err,
			Code:          http.StatusConflict,
			Message:       "account conflict",
			ErrorCode:     "account_conflict",
			OwnerTenantID: conflict.OwnerTenantID.String(),
		}, outcomeConflict
	case errors.Is(err, provision.ErrValidation):
		return &HTTPError{Err: err, Code: http.StatusBadRequest, Message: "sign-in failed", ErrorCode: "invalid_profile"}, outcomeInvalid
	case errors.Is(err, oauth.ErrEmailNotVerified):
		return &HTTPError{Err: err, Code: http.StatusBadRequest, Message: "sign-in failed", ErrorCode: "email_not_verified"}, outcomeInvalid
	case errors.Is(err, oauth.ErrInvalidState):
		return &HTTPError{Err: err, Code: http.StatusBadRequest, Message: "sign-in failed", ErrorCode: "invalid_state"}, outcomeInvalid
	case errors.Is(err, provision.ErrTransientStorage):
		return &HTTPError{Err: err, Code: http.StatusServiceUnavailable, Message: "try again", ErrorCode: "temporarily_unavailable"}, outcomeUnavailable
	case errors.Is(err, oauth.ErrFetchFailed), errors.Is(err, oauth.ErrRequestFailed),
		errors.Is(err, oauth.ErrDecodeFailed), errors.Is(err, oauth.ErrNilResponse):
		return &HTTPError{Err: err, Code: http.StatusBadGateway, Message: "sign-in failed", ErrorCode: "provider_error"}, outcomeProviderFail
	default:
		return &HTTPError{Err: err, Code: http.StatusInternalServerError, Message: "internal error", ErrorCode: "internal"}, outcomeUnavailable
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
