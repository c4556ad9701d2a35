package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/invites"
	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/appercydev/uinbox/internal/rbac"
	"github.com/go-chi/chi/v5"
)

// invitationView es la proyección pública de una invitación. El token nunca
// viaja en listados; solo en el link del email.
type invitationView struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	State     string     `json:"state"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func (h *Handlers) listInvitations(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	views, err := h.Invites.List(r.Context(), sess.Tenant.ID)
	if err != nil {
		logger.From(r.Context()).Error("invitation list failed", logger.Err(err))
		internalErr(w)
		return
	}
	out := make([]invitationView, 0, len(views))
	for _, v := range views {
		out = append(out, invitationView{
			ID:        v.ID,
			Email:     v.Email,
			Role:      string(v.Role),
			Status:    string(v.Status),
			State:     string(v.State),
			ExpiresAt: v.ExpiresAt,
			CreatedAt: v.CreatedAt,
			UsedAt:    v.UsedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"invitations": out})
}

func (h *Handlers) createInvitation(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	var req struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, "malformed JSON body")
		return
	}
	issued, err := h.Invites.Invite(r.Context(), invites.InviteInput{
		TenantID:    sess.Tenant.ID,
		InvitedByID: sess.Member.ID,
		Email:       req.Email,
		Role:        rbac.ParseRole(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, invites.ErrDuplicateMember), errors.Is(err, invites.ErrDuplicateInvitation):
			writeErr(w, http.StatusConflict, codeDuplicate, err.Error())
		case errors.Is(err, invites.ErrInvalidRole):
			writeErr(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		case errors.Is(err, repository.ErrInvalidInput):
			writeErr(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		default:
			logger.From(r.Context()).Error("invite failed", logger.Err(err))
			internalErr(w)
		}
		return
	}
	body := map[string]any{
		"invitation": invitationView{
			ID:        issued.Invitation.ID,
			Email:     issued.Invitation.Email,
			Role:      string(issued.Invitation.Role),
			Status:    string(issued.Invitation.Status),
			State:     "ISSUED",
			ExpiresAt: issued.Invitation.ExpiresAt,
			CreatedAt: issued.Invitation.CreatedAt,
		},
	}
	if issued.Warning != nil {
		body["warning"] = "invitation email could not be delivered; use resend"
	}
	writeJSON(w, http.StatusCreated, body)
}

// invitationForTenant carga la invitación y verifica que pertenezca al tenant
// de la sesión. SUPER_ADMIN opera sobre cualquier tenant.
func (h *Handlers) invitationForTenant(w http.ResponseWriter, r *http.Request) (*repository.Invitation, bool) {
	sess := SessionFrom(r.Context())
	id := chi.URLParam(r, "id")
	inv, err := h.Store.Invitations().GetByID(r.Context(), id)
	if err != nil {
		if repository.IsNotFound(err) {
			writeErr(w, http.StatusNotFound, codeNotFound, "invitation not found")
		} else {
			logger.From(r.Context()).Error("invitation lookup failed", logger.Err(err))
			internalErr(w)
		}
		return nil, false
	}
	if inv.TenantID != sess.Tenant.ID && sess.Member.Role != rbac.RoleSuperAdmin {
		// 404, no 403: no confirmamos que la invitación exista en otro tenant
		writeErr(w, http.StatusNotFound, codeNotFound, "invitation not found")
		return nil, false
	}
	return inv, true
}

func (h *Handlers) cancelInvitation(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.invitationForTenant(w, r)
	if !ok {
		return
	}
	if err := h.Invites.Cancel(r.Context(), inv.ID); err != nil {
		switch {
		case errors.Is(err, invites.ErrAlreadyAccepted):
			writeErr(w, http.StatusConflict, codeConflict, err.Error())
		case repository.IsNotFound(err):
			writeErr(w, http.StatusNotFound, codeNotFound, "invitation not found")
		default:
			logger.From(r.Context()).Error("cancel invitation failed", logger.Err(err))
			internalErr(w)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

func (h *Handlers) resendInvitation(w http.ResponseWriter, r *http.Request) {
	inv, ok := h.invitationForTenant(w, r)
	if !ok {
		return
	}
	issued, err := h.Invites.Resend(r.Context(), inv.ID)
	if err != nil {
		switch {
		case errors.Is(err, invites.ErrAlreadyAccepted):
			writeErr(w, http.StatusConflict, codeConflict, err.Error())
		case repository.IsNotFound(err):
			writeErr(w, http.StatusNotFound, codeNotFound, "invitation not found")
		default:
			logger.From(r.Context()).Error("resend invitation failed", logger.Err(err))
			internalErr(w)
		}
		return
	}
	body := map[string]any{
		"resent":     true,
		"expires_at": issued.Invitation.ExpiresAt,
	}
	if issued.Warning != nil {
		body["warning"] = "invitation email could not be delivered"
	}
	writeJSON(w, http.StatusOK, body)
}
