package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/appercydev/uinbox/internal/auth"
	"github.com/appercydev/uinbox/internal/email"
	httpapi "github.com/appercydev/uinbox/internal/http"
	"github.com/appercydev/uinbox/internal/identity"
	"github.com/appercydev/uinbox/internal/invites"
	"github.com/appercydev/uinbox/internal/jwt"
	"github.com/appercydev/uinbox/internal/rate"
	"github.com/appercydev/uinbox/internal/session"
	"github.com/appercydev/uinbox/internal/store/memory"
	"github.com/appercydev/uinbox/internal/tokenflow"
	"github.com/stretchr/testify/require"
)

// mailbox captura los emails salientes para extraer links de los flujos.
type mailbox struct {
	mu   sync.Mutex
	last map[email.Kind]email.Payload
}

func newMailbox() *mailbox {
	return &mailbox{last: map[email.Kind]email.Payload{}}
}

func (m *mailbox) Send(ctx context.Context, kind email.Kind, p email.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[kind] = p
	return nil
}

// token extrae el token del link del último email del kind dado.
func (m *mailbox) token(t *testing.T, kind email.Kind) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.last[kind]
	require.True(t, ok, "no email captured for kind %s", kind)
	u, err := url.Parse(p.Link)
	require.NoError(t, err)
	tok := u.Query().Get("token")
	require.NotEmpty(t, tok)
	return tok
}

type api struct {
	router http.Handler
	mail   *mailbox
}

func newAPI(t *testing.T, loginLimiter rate.Limiter) *api {
	t.Helper()
	store := memory.New()
	mail := newMailbox()
	ids := identity.New(store.Identities())
	tf := tokenflow.New(store.Tokens(), mail, "https://console.example.com")
	sessions := session.NewResolver(store)
	authSvc := auth.New(auth.Deps{
		Store:      store,
		Identities: ids,
		Tokens:     tf,
		Sessions:   sessions,
		TOTPIssuer: "uinbox-test",
	})
	invSvc := invites.New(invites.Deps{
		Store:      store,
		Identities: ids,
		Sender:     mail,
		BaseURL:    "https://console.example.com",
	})
	issuer, err := jwt.NewIssuer("uinbox", "una-seed-de-prueba-con-32-bytes-o-mas", time.Hour)
	require.NoError(t, err)

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Handlers: &httpapi.Handlers{
			Auth:    authSvc,
			Invites: invSvc,
			JWT:     issuer,
			Store:   store,
		},
		Auth: &httpapi.Authenticator{
			Issuer:   issuer,
			Resolver: sessions,
		},
		LoginLimiter: loginLimiter,
	})
	return &api{router: router, mail: mail}
}

func (a *api) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	}
	return rec, out
}

// signupOwner da de alta una organización, confirma el email y devuelve el
// access token del owner.
func (a *api) signupOwner(t *testing.T, tenantName, emailAddr string) string {
	t.Helper()
	rec, _ := a.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"tenant_name": tenantName,
		"first_name":  "Ana",
		"last_name":   "Gomez",
		"email":       emailAddr,
		"password":    "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	confirm := a.mail.token(t, email.KindConfirmEmail)
	rec, _ = a.do(t, http.MethodGet, "/v1/auth/confirm-email?token="+url.QueryEscape(confirm), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	return a.login(t, emailAddr, "s3cret-pass")
}

func (a *api) login(t *testing.T, emailAddr, password string) string {
	t.Helper()
	rec, body := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    emailAddr,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthEndpoints(t *testing.T) {
	a := newAPI(t, nil)
	rec, _ := a.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = a.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSignupConfirmLoginMe(t *testing.T) {
	a := newAPI(t, nil)

	// antes de confirmar, el login es 403
	rec, _ := a.do(t, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"tenant_name": "Acme",
		"email":       "ana@acme.com",
		"password":    "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec, body := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email": "ana@acme.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "email_not_confirmed", body["error"])

	confirm := a.mail.token(t, email.KindConfirmEmail)
	rec, _ = a.do(t, http.MethodGet, "/v1/auth/confirm-email?token="+url.QueryEscape(confirm), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	token := a.login(t, "ana@acme.com", "s3cret-pass")
	rec, body = a.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	idv := body["identity"].(map[string]any)
	require.Equal(t, "ana@acme.com", idv["email"])
	require.Equal(t, true, idv["email_confirmed"])

	// token de confirmación reusado: genérico, 400
	rec, body = a.do(t, http.MethodGet, "/v1/auth/confirm-email?token="+url.QueryEscape(confirm), "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_token", body["error"])
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t, nil)
	rec, body := a.do(t, http.MethodGet, "/v1/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_token", body["error"])

	rec, _ = a.do(t, http.MethodGet, "/v1/me", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestInvitationLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t, nil)
	owner := a.signupOwner(t, "Acme", "ana@acme.com")

	rec, body := a.do(t, http.MethodPost, "/v1/invitations/", owner, map[string]any{
		"email": "bruno@example.com",
		"role":  "tenant_manager",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := body["invitation"].(map[string]any)
	invID := inv["id"].(string)
	require.Equal(t, "PENDING", inv["status"])
	// el token no viaja en la respuesta, solo en el email
	_, hasToken := inv["token"]
	require.False(t, hasToken)

	// duplicada: 409
	rec, body = a.do(t, http.MethodPost, "/v1/invitations/", owner, map[string]any{
		"email": "bruno@example.com", "role": "tenant_user",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "duplicate", body["error"])

	// el invitado acepta con el link del email
	invToken := a.mail.token(t, email.KindInvitation)
	rec, body = a.do(t, http.MethodPost, "/v1/auth/accept-invitation", "", map[string]any{
		"token":      invToken,
		"first_name": "Bruno",
		"password":   "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	member := body["member"].(map[string]any)
	require.Equal(t, "TENANT_MANAGER", member["role"])
	require.Equal(t, "ACTIVE", member["status"])

	// cancelar una aceptada: 409
	rec, _ = a.do(t, http.MethodPost, "/v1/invitations/"+invID+"/cancel", owner, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	// el manager entra pero no puede invitar (ni ver la lista)
	manager := a.login(t, "bruno@example.com", "hunter2hunter2")
	rec, _ = a.do(t, http.MethodGet, "/v1/me", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = a.do(t, http.MethodPost, "/v1/invitations/", manager, map[string]any{
		"email": "x@example.com", "role": "tenant_user",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "permission_denied", body["error"])

	// manager sí ve miembros (TENANT_MANAGER tiene view_users)
	rec, body = a.do(t, http.MethodGet, "/v1/members", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["members"], 2)
}

func TestInvitationCrossTenantIs404(t *testing.T) {
	a := newAPI(t, nil)
	owner1 := a.signupOwner(t, "Acme", "ana@acme.com")

	rec, body := a.do(t, http.MethodPost, "/v1/invitations/", owner1, map[string]any{
		"email": "bruno@example.com", "role": "tenant_user",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	invID := body["invitation"].(map[string]any)["id"].(string)

	// el owner de otra organización no puede operar la invitación: 404, no 403
	owner2 := a.signupOwner(t, "Globex", "gloria@globex.com")
	for _, path := range []string{
		"/v1/invitations/" + invID + "/cancel",
		"/v1/invitations/" + invID + "/resend",
	} {
		rec, body = a.do(t, http.MethodPost, path, owner2, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		require.Equal(t, "not_found", body["error"])
	}

	// y su listado no la incluye
	rec, body = a.do(t, http.MethodGet, "/v1/invitations/", owner2, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body["invitations"], 0)
}

func TestLoginRateLimit(t *testing.T) {
	a := newAPI(t, rate.NewMemoryLimiter(2, time.Minute))
	a.signupOwner(t, "Acme", "ana@acme.com") // consume 1 login

	rec, _ := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email": "ana@acme.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := a.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email": "ana@acme.com", "password": "s3cret-pass",
	})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limited", body["error"])
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}
