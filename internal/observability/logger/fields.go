package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar HTTP.

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path crea un campo para el path del request.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field { return zap.Int("status", v) }

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// ClientIP crea un campo para la IP del cliente.
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// Campos estándar de negocio.

// TenantID crea un campo para el ID del tenant.
func TenantID(v string) zap.Field { return zap.String("tenant_id", v) }

// TenantSlug crea un campo para el slug del tenant.
func TenantSlug(v string) zap.Field { return zap.String("tenant_slug", v) }

// UserID crea un campo para el ID del usuario (identity).
func UserID(v string) zap.Field { return zap.String("user_id", v) }

// MemberID crea un campo para el ID de la membresía (tenant_user).
func MemberID(v string) zap.Field { return zap.String("member_id", v) }

// InvitationID crea un campo para el ID de una invitación.
func InvitationID(v string) zap.Field { return zap.String("invitation_id", v) }

// TokenKind crea un campo para el tipo de token (confirmation/reset/invitation).
func TokenKind(v string) zap.Field { return zap.String("token_kind", v) }

// Role crea un campo para el rol de membresía.
func Role(v string) zap.Field { return zap.String("role", v) }

// Email crea un campo para el email (usar con cuidado en prod).
func Email(v string) zap.Field { return zap.String("email", v) }

// Campos estándar de sistema.

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer crea un campo para la capa (handler, service, repository).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// Count crea un campo para un conteo.
func Count(v int) zap.Field { return zap.Int("count", v) }

// String crea un campo string genérico.
func String(key, v string) zap.Field { return zap.String(key, v) }

// Any crea un campo genérico para valores arbitrarios.
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
