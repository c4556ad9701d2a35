package http

import (
	"errors"
	"net/http"

	"github.com/appercydev/uinbox/internal/auth"
	"github.com/appercydev/uinbox/internal/observability/logger"
)

func (h *Handlers) enrollTOTP(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	enr, err := h.Auth.EnrollTOTP(r.Context(), sess.Member.ID)
	if err != nil {
		logger.From(r.Context()).Error("totp enroll failed", logger.Err(err))
		internalErr(w)
		return
	}
	// el secreto se muestra una sola vez
	writeJSON(w, http.StatusOK, map[string]any{
		"secret":      enr.SecretB32,
		"otpauth_url": enr.OTPAuthURL,
	})
}

func (h *Handlers) verifyTOTP(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	var req struct {
		Code string `json:"code"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body")
		return
	}
	codes, err := h.Auth.ActivateTOTP(r.Context(), sess.Member.ID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTOTPInvalid):
			writeErr(w, http.StatusBadRequest, codeTOTPInvalid, "invalid totp code")
		case errors.Is(err, auth.ErrTOTPNotEnrolled):
			writeErr(w, http.StatusConflict, codeConflict, "enroll first")
		default:
			logger.From(r.Context()).Error("totp activate failed", logger.Err(err))
			internalErr(w)
		}
		return
	}
	// los códigos de respaldo se muestran una sola vez
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":      true,
		"backup_codes": codes,
	})
}
