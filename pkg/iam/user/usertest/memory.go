// Package usertest provides an in-memory user.Repository for tests.
package usertest

import (
	"context"
	"sync"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/iam/user"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// Repository keeps principals in a map guarded by a mutex, so
// RotateRefreshToken has the same compare-and-swap semantics as the SQL
// implementation.
type Repository struct {
	mu   sync.Mutex
	byID map[kernel.UserID]*user.Principal
}

func NewRepository(principals ...user.Principal) *Repository {
	r := &Repository{byID: make(map[kernel.UserID]*user.Principal)}
	for _, p := range principals {
		p := p
		r.byID[p.ID] = &p
	}
	return r
}

// Get returns a copy of the stored principal.
func (r *Repository) Get(id kernel.UserID) (user.Principal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return user.Principal{}, false
	}
	return clone(p), true
}

func (r *Repository) find(match func(*user.Principal) bool) (*user.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if match(p) {
			c := clone(p)
			return &c, nil
		}
	}
	return nil, user.ErrUserNotFound()
}

func (r *Repository) FindByID(_ context.Context, tenantID kernel.TenantID, id kernel.UserID) (*user.Principal, error) {
	return r.find(func(p *user.Principal) bool { return p.TenantID == tenantID && p.ID == id })
}

func (r *Repository) FindByEmail(_ context.Context, tenantID kernel.TenantID, normalizedEmail string) (*user.Principal, error) {
	return r.find(func(p *user.Principal) bool {
		return p.TenantID == tenantID && p.NormalizedEmail == normalizedEmail
	})
}

func (r *Repository) FindByRefreshTokenHash(_ context.Context, tenantID kernel.TenantID, hash string) (*user.Principal, error) {
	return r.find(func(p *user.Principal) bool {
		return p.TenantID == tenantID && p.RefreshTokenHash != nil && *p.RefreshTokenHash == hash
	})
}

func (r *Repository) SetRefreshToken(_ context.Context, tenantID kernel.TenantID, id kernel.UserID, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.TenantID != tenantID {
		return user.ErrUserNotFound()
	}
	p.RefreshTokenHash, p.RefreshTokenExpiresAt = &hash, &expiresAt
	return nil
}

func (r *Repository) RotateRefreshToken(_ context.Context, tenantID kernel.TenantID, id kernel.UserID, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.TenantID != tenantID || p.RefreshTokenHash == nil || *p.RefreshTokenHash != oldHash {
		return false, nil
	}
	p.RefreshTokenHash, p.RefreshTokenExpiresAt = &newHash, &expiresAt
	return true, nil
}

func (r *Repository) ClearRefreshToken(_ context.Context, tenantID kernel.TenantID, id kernel.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.TenantID != tenantID {
		return user.ErrUserNotFound()
	}
	p.RefreshTokenHash, p.RefreshTokenExpiresAt = nil, nil
	return nil
}

func (r *Repository) Create(_ context.Context, _ sqlx.ExtContext, p user.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.TenantID == p.TenantID && existing.NormalizedEmail == p.NormalizedEmail {
			return user.ErrEmailTaken()
		}
	}
	c := clone(&p)
	r.byID[p.ID] = &c
	return nil
}

func clone(p *user.Principal) user.Principal {
	c := *p
	c.Roles = append([]string(nil), p.Roles...)
	if p.RefreshTokenHash != nil {
		h := *p.RefreshTokenHash
		c.RefreshTokenHash = &h
	}
	if p.RefreshTokenExpiresAt != nil {
		t := *p.RefreshTokenExpiresAt
		c.RefreshTokenExpiresAt = &t
	}
	return c
}

// PlainHasher is a PasswordHasher for tests that stores passwords with a
// fixed prefix.
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }
func (PlainHasher) Compare(hash, password string) bool  { return hash == "plain:"+password }
