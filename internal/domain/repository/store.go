package repository

import "context"

// Store agrega los repositorios del dominio. Los drivers (pg, memory) lo
// implementan; los services reciben solo los repositorios que usan.
type Store interface {
	Tenants() TenantRepository
	Identities() IdentityRepository
	Members() MemberRepository
	Tokens() TokenRepository
	Invitations() InvitationRepository

	// Ping verifica la disponibilidad del datastore (readiness).
	Ping(ctx context.Context) error

	// Close libera recursos del driver. Idempotente.
	Close()
}
