// Package memory implementa los repositorios del dominio sobre maps en
// memoria, protegidos por un mutex. Se usa en tests unitarios y como driver
// "memory" para desarrollo local sin Postgres. La atomicidad de Consume y
// Accept se emula con compare-and-set bajo el mutex más rollback si el
// effect falla; misma semántica observable que el driver pg.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
)

// Store implementa repository.Store. Los sub-repositorios comparten el
// mismo mutex y los mismos maps.
type Store struct {
	mu          sync.Mutex
	tenants     map[string]*repository.Tenant
	identities  map[string]*repository.Identity
	members     map[string]*repository.TenantUser
	tokens      map[string]*repository.Token      // por ID
	invitations map[string]*repository.Invitation // por ID
}

// New crea un Store vacío.
func New() *Store {
	return &Store{
		tenants:     map[string]*repository.Tenant{},
		identities:  map[string]*repository.Identity{},
		members:     map[string]*repository.TenantUser{},
		tokens:      map[string]*repository.Token{},
		invitations: map[string]*repository.Invitation{},
	}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Tenants() repository.TenantRepository         { return tenantRepo{s} }
func (s *Store) Identities() repository.IdentityRepository    { return identityRepo{s} }
func (s *Store) Members() repository.MemberRepository         { return memberRepo{s} }
func (s *Store) Tokens() repository.TokenRepository           { return tokenRepo{s} }
func (s *Store) Invitations() repository.InvitationRepository { return invitationRepo{s} }

func (s *Store) Ping(ctx context.Context) error { return nil }
func (s *Store) Close()                         {}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func nowUTC() time.Time { return time.Now().UTC() }
