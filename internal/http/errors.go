package http

import (
	"encoding/json"
	"net/http"
)

// errorBody es el envelope JSON de error de toda la API.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeErr(w http.ResponseWriter, status int, code, desc string) {
	writeJSON(w, status, errorBody{Error: code, Description: desc})
}

// Códigos de error estables de la API.
const (
	codeInvalidRequest   = "invalid_request"
	codeInvalidToken     = "invalid_token"
	codeBadCredentials   = "invalid_credentials"
	codeTOTPRequired     = "totp_required"
	codeTOTPInvalid      = "totp_invalid"
	codeNotConfirmed     = "email_not_confirmed"
	codeSuspended        = "membership_suspended"
	codePermissionDenied = "permission_denied"
	codeDuplicate        = "duplicate"
	codeNotFound         = "not_found"
	codeConflict         = "conflict"
	codeRateLimited      = "rate_limited"
	codeInternal         = "internal_error"
)

func internalErr(w http.ResponseWriter) {
	// nunca filtra detalle del datastore hacia afuera
	writeErr(w, http.StatusInternalServerError, codeInternal, "internal error")
}
