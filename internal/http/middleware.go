package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appercydev/uinbox/internal/jwt"
	"github.com/appercydev/uinbox/internal/metrics"
	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/appercydev/uinbox/internal/rate"
	"github.com/appercydev/uinbox/internal/rbac"
	"github.com/appercydev/uinbox/internal/session"
)

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxSession
)

// RequestIDFrom recupera el request id del contexto.
func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestID).(string); ok {
		return v
	}
	return ""
}

// SessionFrom recupera la sesión resuelta del contexto. Nil si el request no
// pasó por RequireAuth.
func SessionFrom(ctx context.Context) *session.Session {
	if v, ok := ctx.Value(ctxSession).(*session.Session); ok {
		return v
	}
	return nil
}

// WithRequestID propaga X-Request-ID (o genera uno) y scopea el logger del
// request en el contexto.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			var b [16]byte
			_, _ = rand.Read(b[:])
			rid = hex.EncodeToString(b[:])
		}
		w.Header().Set("X-Request-ID", rid)

		ctx := context.WithValue(r.Context(), ctxRequestID, rid)
		ctx = logger.ToContext(ctx, logger.L().With(
			logger.RequestID(rid),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
		))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captura status y bytes de la respuesta.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// WithLogging loguea cada request con campos estructurados y alimenta el
// contador HTTP.
func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(r.URL.Path, fmt.Sprintf("%d", rec.status)).Inc()
		logger.From(r.Context()).Info("request completed",
			logger.Status(rec.status),
			logger.Duration(time.Since(start)),
			logger.ClientIP(clientIP(r)),
			logger.Count(rec.bytes),
		)
	})
}

// WithRecover captura panics y responde 500 en lugar de tirar el proceso.
func WithRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.From(r.Context()).Error("panic recovered",
					logger.Op("recover"), logger.Any("panic", rec))
				internalErr(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// WithCORS responde preflights y setea los headers para los orígenes
// permitidos. Lista vacía = CORS deshabilitado.
func WithCORS(allowed []string) func(http.Handler) http.Handler {
	allowedSet := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allowedSet[strings.TrimRight(o, "/")] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowedSet[strings.TrimRight(origin, "/")] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithRateLimit limita por key (IP + path). Limiter nil = sin límite.
func WithRateLimit(l rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r) + ":" + r.URL.Path
			res, err := l.Allow(r.Context(), key)
			if err != nil {
				// limiter caído no bloquea el tráfico
				logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(res.RetryAfter.Seconds())+1))
				writeErr(w, http.StatusTooManyRequests, codeRateLimited, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator valida el Bearer token y resuelve la sesión completa.
type Authenticator struct {
	Issuer   *jwt.Issuer
	Resolver *session.Resolver
}

// RequireAuth exige un token de sesión válido con una sesión resoluble.
// Un token válido cuya identidad perdió la membresía es 401: la sesión es la
// vista resuelta, no el JWT.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeErr(w, http.StatusUnauthorized, codeInvalidToken, "missing bearer token")
			return
		}
		claims, err := a.Issuer.Parse(raw)
		if err != nil {
			writeErr(w, http.StatusUnauthorized, codeInvalidToken, "invalid or expired token")
			return
		}
		sess, err := a.Resolver.CurrentUser(r.Context(), claims.IdentityID)
		if err != nil {
			logger.From(r.Context()).Error("session resolve failed", logger.Err(err))
			internalErr(w)
			return
		}
		if sess == nil {
			writeErr(w, http.StatusUnauthorized, codeInvalidToken, "session no longer valid")
			return
		}
		ctx := context.WithValue(r.Context(), ctxSession, sess)
		ctx = logger.ToContext(ctx, logger.From(ctx).With(
			logger.UserID(sess.Identity.ID),
			logger.TenantID(sess.Tenant.ID),
		))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission gatea por capacidad del matrix RBAC. Siempre después de
// RequireAuth.
func RequirePermission(cap rbac.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFrom(r.Context())
			if !sess.Can(cap) {
				writeErr(w, http.StatusForbidden, codePermissionDenied, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if i := strings.IndexByte(xf, ','); i > 0 {
			return strings.TrimSpace(xf[:i])
		}
		return strings.TrimSpace(xf)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}
