// Package pg implementa los repositorios del dominio sobre PostgreSQL
// (pgxpool). Los updates condicionales sobre used_at/status son el CAS que
// hace seguro Consume/Accept frente a canjes concurrentes.
package pg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/observability/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store implementa repository.Store sobre un pool pgx.
type Store struct{ pool *pgxpool.Pool }

// Config es el tuning opcional del pool.
type Config struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// New abre el pool. El ping inicial es no bloqueante: la app puede arrancar
// con la DB temporalmente caída.
func New(ctx context.Context, dsn string, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.L().Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		logger.L().Info("pg pool ready", logger.Count(int(pcfg.MaxConns)))
	}
	return &Store{pool: pool}, nil
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Tenants() repository.TenantRepository         { return tenantRepo{s.pool} }
func (s *Store) Identities() repository.IdentityRepository    { return identityRepo{s.pool} }
func (s *Store) Members() repository.MemberRepository         { return memberRepo{s.pool} }
func (s *Store) Tokens() repository.TokenRepository           { return tokenRepo{s.pool} }
func (s *Store) Invitations() repository.InvitationRepository { return invitationRepo{s.pool} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// RunMigrations aplica los *.sql del directorio en orden lexicográfico.
func (s *Store) RunMigrations(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, dir+"/"+e.Name())
		}
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
	}
	return nil
}

// mapErr traduce errores de pgx a los sentinelas del dominio.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if strings.Contains(strings.ToLower(err.Error()), "unique") {
		return repository.ErrConflict
	}
	return err
}
