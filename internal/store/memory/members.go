package memory

import (
	"context"
	"sort"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/rbac"
	"github.com/google/uuid"
)

type memberRepo struct{ s *Store }

func (r memberRepo) Create(ctx context.Context, in repository.CreateMemberInput) (*repository.TenantUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := normEmail(in.Email)
	for _, m := range r.s.members {
		if m.IdentityID == in.IdentityID && m.TenantID == in.TenantID {
			return nil, repository.ErrConflict
		}
		if m.TenantID == in.TenantID && m.Email == email {
			return nil, repository.ErrConflict
		}
	}
	now := nowUTC()
	rec := &repository.TenantUser{
		ID:            uuid.NewString(),
		IdentityID:    in.IdentityID,
		TenantID:      in.TenantID,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         email,
		Phone:         in.Phone,
		Role:          in.Role,
		Status:        in.Status,
		EmailVerified: in.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.s.members[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (r memberRepo) GetByID(ctx context.Context, memberID string) (*repository.TenantUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m, ok := r.s.members[memberID]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r memberRepo) GetByIdentity(ctx context.Context, identityID string) (*repository.TenantUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.IdentityID == identityID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memberRepo) GetByEmail(ctx context.Context, tenantID, email string) (*repository.TenantUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = normEmail(email)
	for _, m := range r.s.members {
		if m.TenantID == tenantID && m.Email == email {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memberRepo) List(ctx context.Context, tenantID string) ([]repository.TenantUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.TenantUser
	for _, m := range r.s.members {
		if m.TenantID == tenantID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memberRepo) Update(ctx context.Context, memberID string, in repository.UpdateMemberInput) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	if in.FirstName != nil {
		m.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		m.LastName = *in.LastName
	}
	if in.Phone != nil {
		m.Phone = *in.Phone
	}
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r memberRepo) SetStatus(ctx context.Context, memberID string, status repository.MemberStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	m.Status = status
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r memberRepo) SetRole(ctx context.Context, memberID string, role rbac.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	m.Role = role
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r memberRepo) Activate(ctx context.Context, identityID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.IdentityID != identityID {
			continue
		}
		// SUSPENDED es terminal: el reset/confirmación nunca lo revierte
		if m.Status != repository.MemberPending && m.Status != repository.MemberInvited {
			return repository.ErrNotFound
		}
		m.Status = repository.MemberActive
		m.EmailVerified = true
		m.UpdatedAt = time.Now().UTC()
		return nil
	}
	return repository.ErrNotFound
}

func (r memberRepo) TouchLastLogin(ctx context.Context, identityID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.IdentityID == identityID {
			t := at.UTC()
			m.LastLogin = &t
			m.UpdatedAt = t
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r memberRepo) SetTwoFactor(ctx context.Context, memberID, secretB32 string, enabled bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	m.TwoFactorSecret = secretB32
	m.TwoFactorEnabled = enabled
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r memberRepo) SetBackupCodes(ctx context.Context, memberID string, hashes []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	m.TwoFactorBackup = append([]string(nil), hashes...)
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (r memberRepo) UseBackupCode(ctx context.Context, memberID, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[memberID]
	if !ok {
		return repository.ErrNotFound
	}
	for i, h := range m.TwoFactorBackup {
		if h == hash {
			m.TwoFactorBackup = append(m.TwoFactorBackup[:i], m.TwoFactorBackup[i+1:]...)
			m.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return repository.ErrNotFound
}
