package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/appercydev/uinbox/internal/auth"
	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/invites"
	"github.com/appercydev/uinbox/internal/jwt"
	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/appercydev/uinbox/internal/session"
	"github.com/appercydev/uinbox/internal/tokenflow"
)

// Handlers agrupa las dependencias de los endpoints.
type Handlers struct {
	Auth    *auth.Service
	Invites *invites.Service
	JWT     *jwt.Issuer
	Store   repository.Store
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// memberView es la proyección pública de una membresía.
type memberView struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Status        string     `json:"status"`
	EmailVerified bool       `json:"email_verified"`
	TwoFactor     bool       `json:"two_factor_enabled"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

func toMemberView(m *repository.TenantUser) memberView {
	return memberView{
		ID:            m.ID,
		TenantID:      m.TenantID,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Email:         m.Email,
		Role:          string(m.Role),
		Status:        string(m.Status),
		EmailVerified: m.EmailVerified,
		TwoFactor:     m.TwoFactorEnabled,
		LastLogin:     m.LastLogin,
	}
}

func (h *Handlers) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantName string `json:"tenant_name"`
		TenantSlug string `json:"tenant_slug"`
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		Password   string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body")
		return
	}
	res, err := h.Auth.Signup(r.Context(), auth.SignupInput{
		TenantName: req.TenantName,
		TenantSlug: req.TenantSlug,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Password:   req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrSlugTaken), errors.Is(err, auth.ErrEmailTaken):
			writeErr(w, http.StatusConflict, codeDuplicate, err.Error())
		case errors.Is(err, repository.ErrInvalidInput):
			writeErr(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		default:
			logger.From(r.Context()).Error("signup failed", logger.Err(err))
			internalErr(w)
		}
		return
	}
	body := map[string]any{
		"tenant": map[string]any{
			"id":   res.Tenant.ID,
			"name": res.Tenant.Name,
			"slug": res.Tenant.Slug,
		},
		"member": toMemberView(res.Member),
	}
	if res.Confirmation != nil && res.Confirmation.Warning != nil {
		body["warning"] = "confirmation email could not be delivered; use resend"
	}
	writeJSON(w, http.StatusCreated, body)
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		TOTPCode string `json:"totp_code"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body")
		return
	}
	sess, err := h.Auth.Login(r.Context(), req.Email, req.Password, req.TOTPCode)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrBadCredentials):
			writeErr(w, http.StatusUnauthorized, codeBadCredentials, "invalid email or password")
		case errors.Is(err, auth.ErrTOTPRequired):
			writeErr(w, http.StatusUnauthorized, codeTOTPRequired, "totp code required")
		case errors.Is(err, auth.ErrTOTPInvalid), errors.Is(err, auth.ErrTOTPNotEnrolled):
			writeErr(w, http.StatusUnauthorized, codeTOTPInvalid, "invalid totp code")
		case errors.Is(err, auth.ErrEmailNotConfirmed):
			writeErr(w, http.StatusForbidden, codeNotConfirmed, "confirm your email first")
		case errors.Is(err, auth.ErrSuspended):
			writeErr(w, http.StatusForbidden, codeSuspended, "membership suspended")
		default:
			logger.From(r.Context()).Error("login failed", logger.Err(err))
			internalErr(w)
		}
		return
	}
	token, exp, err := h.JWT.Issue(jwt.Claims{
		IdentityID: sess.Identity.ID,
		TenantID:   sess.Tenant.ID,
		MemberID:   sess.Member.ID,
		Role:       string(sess.Member.Role),
	})
	if err != nil {
		logger.From(r.Context()).Error("token issue failed", logger.Err(err))
		internalErr(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   exp.UTC(),
		"user":         sessionView(sess),
	})
}

func (h *Handlers) confirmEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if err := h.Auth.ConfirmEmail(r.Context(), token); err != nil {
		if errors.Is(err, tokenflow.ErrInvalidToken) {
			writeErr(w, http.StatusBadRequest, codeInvalidToken, "invalid or expired token")
			return
		}
		logger.From(r.Context()).Error("confirm email failed", logger.Err(err))
		internalErr(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"confirmed": true})
}

func (h *Handlers) resendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body")
		return
	}
	if _, err := h.Auth.ResendConfirmation(r.Context(), req.Email); err != nil {
		logger.From(r.Context()).Error("resend confirmation failed", logger.Err(err))
		internalErr(w)
		return
	}
	// 202 siempre: la respuesta no revela si el email existe
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (h *Handlers) forgot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body")
		return
	}
	if _, err := h.Auth.Forgot(r.Context(), req.Email); err != nil {
		logger.From(r.Context()).Error("forgot password failed", logger.Err(err))
		internalErr(w)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (h *Handlers) reset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body")
		return
	}
	if err := h.Auth.Reset(r.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, tokenflow.ErrInvalidToken):
			writeErr(w, http.StatusBadRequest, codeInvalidToken, "invalid or expired token")
		case errors.Is(err, repository.ErrInvalidInput):
			writeErr(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		default:
			logger.From(r.Context()).Error("password reset failed", logger.Err(err))
			internalErr(w)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

func (h *Handlers) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token     string `json:"token"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body")
		return
	}
	member, err := h.Invites.Accept(r.Context(), req.Token, invites.AcceptInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, tokenflow.ErrInvalidToken):
			writeErr(w, http.StatusBadRequest, codeInvalidToken, "invalid or expired invitation")
		case errors.Is(err, invites.ErrAccountCreationFailed):
			// el token sigue canjeable; el cliente puede reintentar
			writeErr(w, http.StatusUnprocessableEntity, codeConflict, err.Error())
		default:
			logger.From(r.Context()).Error("accept invitation failed", logger.Err(err))
			internalErr(w)
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"member": toMemberView(member)})
}

func sessionView(s *session.Session) map[string]any {
	return map[string]any{
		"identity": map[string]any{
			"id":              s.Identity.ID,
			"email":           s.Identity.Email,
			"email_confirmed": s.Identity.EmailConfirmedAt != nil,
		},
		"member": toMemberView(s.Member),
		"tenant": map[string]any{
			"id":   s.Tenant.ID,
			"name": s.Tenant.Name,
			"slug": s.Tenant.Slug,
		},
		"permissions": s.Permissions,
	}
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	if sess == nil {
		writeErr(w, http.StatusUnauthorized, codeInvalidToken, "no session")
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (h *Handlers) listMembers(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	members, err := h.Store.Members().List(r.Context(), sess.Tenant.ID)
	if err != nil {
		logger.From(r.Context()).Error("member list failed", logger.Err(err))
		internalErr(w)
		return
	}
	out := make([]memberView, 0, len(members))
	for i := range members {
		out = append(out, toMemberView(&members[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": out})
}
