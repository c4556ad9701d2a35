// Package identity implementa el proveedor de identidades sobre el
// repositorio local: alta con password argon2id, verificación de
// credenciales y cambios de password.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/security/password"
)

// ErrBadCredentials cubre email inexistente y password incorrecto.
// Genérico a propósito: no se filtra cuál de los dos falló.
var ErrBadCredentials = errors.New("invalid email or password")

// ErrEmailTaken indica que ya existe una identidad con ese email.
var ErrEmailTaken = errors.New("email already registered")

// Service opera identidades. Stateless salvo el repo.
type Service struct {
	repo   repository.IdentityRepository
	params password.Params
}

func New(repo repository.IdentityRepository) *Service {
	return &Service{repo: repo, params: password.Default}
}

// Create da de alta una identidad con el password hasheado.
func (s *Service) Create(ctx context.Context, email, plain string) (*repository.Identity, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email", repository.ErrInvalidInput)
	}
	if err := password.CheckPolicy(plain); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	}
	hash, err := password.Hash(s.params, plain)
	if err != nil {
		return nil, fmt.Errorf("identity: hash: %w", err)
	}
	id, err := s.repo.Create(ctx, email, hash)
	if err != nil {
		if repository.IsConflict(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("identity: create: %w", err)
	}
	return id, nil
}

// VerifyCredentials valida el par email/password.
func (s *Service) VerifyCredentials(ctx context.Context, email, plain string) (*repository.Identity, error) {
	id, err := s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("identity: lookup: %w", err)
	}
	if !password.Verify(plain, id.PasswordHash) {
		return nil, ErrBadCredentials
	}
	return id, nil
}

// SetPassword reemplaza el password. No valida el anterior; el caller decide
// qué prueba de posesión exige (token de reset o sesión válida).
func (s *Service) SetPassword(ctx context.Context, identityID, plain string) error {
	if err := password.CheckPolicy(plain); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	}
	hash, err := password.Hash(s.params, plain)
	if err != nil {
		return fmt.Errorf("identity: hash: %w", err)
	}
	return s.repo.SetPasswordHash(ctx, identityID, hash)
}

// MarkEmailConfirmed sella email_confirmed_at.
func (s *Service) MarkEmailConfirmed(ctx context.Context, identityID string, at time.Time) error {
	return s.repo.SetEmailConfirmed(ctx, identityID, at)
}

// GetByEmail expone la búsqueda por email para los flujos que la necesitan.
func (s *Service) GetByEmail(ctx context.Context, email string) (*repository.Identity, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}

// GetByID expone la búsqueda por id.
func (s *Service) GetByID(ctx context.Context, id string) (*repository.Identity, error) {
	return s.repo.GetByID(ctx, id)
}
