package memory

import (
	"context"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/google/uuid"
)

type tenantRepo struct{ s *Store }

func (r tenantRepo) Create(ctx context.Context, t *repository.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.tenants {
		if x.Slug == t.Slug {
			return repository.ErrConflict
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := nowUTC()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	r.s.tenants[t.ID] = &cp
	return nil
}

func (r tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tenants[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r tenantRepo) GetBySlug(ctx context.Context, slug string) (*repository.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r tenantRepo) Update(ctx context.Context, t *repository.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tenants[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name = t.Name
	cur.Domain = t.Domain
	cur.LogoURL = t.LogoURL
	cur.Settings = t.Settings
	cur.UpdatedAt = time.Now().UTC()
	return nil
}
