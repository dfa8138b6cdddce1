package auth

import (
	"context"
	"slices"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/user"
	"github.com/alebhayan/King-Laminaat/pkg/idx"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
)

// dummyPassword is hashed once at construction so that lookups for unknown
// emails still pay for one hash comparison.
const dummyPassword = "not-a-real-password-3f9c1d"

// Validator checks credentials and refresh tokens behind the tenant gate.
type Validator struct {
	gate      *TenantGate
	users     user.Repository
	hasher    user.PasswordHasher
	dummyHash string
	now       func() time.Time
}

func NewValidator(gate *TenantGate, users user.Repository, hasher user.PasswordHasher) (*Validator, error) {
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}
	return &Validator{
		gate:      gate,
		users:     users,
		hasher:    hasher,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// ValidateCredentials authenticates email and password in rc's tenant.
func (v *Validator) ValidateCredentials(ctx context.Context, rc kernel.RequestContext, email, password string) (*ClaimSet, error) {
	if _, err := v.gate.Check(ctx, rc.TenantID); err != nil {
		return nil, err
	}

	p, err := v.users.FindByEmail(ctx, rc.TenantID, user.NormalizeEmail(email))
	if err != nil {
		if errx.IsCode(err, user.CodeUserNotFound) {
			v.hasher.Compare(v.dummyHash, password)
			return nil, ErrInvalidCredentials(ReasonUserNotFound)
		}
		return nil, errx.Wrap(err, "failed to load principal", errx.TypeInternal)
	}

	if !v.hasher.Compare(p.PasswordHash, password) {
		return nil, ErrInvalidCredentials(ReasonBadPassword).WithDetail("user_id", p.ID.String())
	}
	if err := usable(p); err != nil {
		return nil, err
	}
	return buildClaims(p), nil
}

// ValidateRefreshToken resolves the principal holding presented in rc's
// tenant. It does not rotate; the caller swaps the stored hash.
func (v *Validator) ValidateRefreshToken(ctx context.Context, rc kernel.RequestContext, presented string) (*ClaimSet, error) {
	if _, err := v.gate.Check(ctx, rc.TenantID); err != nil {
		return nil, err
	}
	if presented == "" {
		return nil, ErrInvalidCredentials(ReasonRefreshNotFound)
	}

	p, err := v.users.FindByRefreshTokenHash(ctx, rc.TenantID, HashRefreshToken(presented))
	if err != nil {
		if errx.IsCode(err, user.CodeUserNotFound) {
			return nil, ErrInvalidCredentials(ReasonRefreshNotFound)
		}
		return nil, errx.Wrap(err, "failed to load principal", errx.TypeInternal)
	}

	if !p.RefreshTokenValidAt(v.now()) {
		return nil, ErrInvalidCredentials(ReasonRefreshExpired).WithDetail("user_id", p.ID.String())
	}
	if err := usable(p); err != nil {
		return nil, err
	}
	return buildClaims(p), nil
}

func usable(p *user.Principal) error {
	switch {
	case p.IsUsable():
		return nil
	case !p.Active:
		return ErrAccountNotUsable(ReasonAccountDisabled).WithDetail("user_id", p.ID.String())
	case !p.EmailConfirmed:
		return ErrAccountNotUsable(ReasonEmailUnconfirmed).WithDetail("user_id", p.ID.String())
	}
	return nil
}

// buildClaims is shared by both entry points so login and refresh produce
// the same claim shape.
func buildClaims(p *user.Principal) *ClaimSet {
	roles := slices.Clone(p.Roles)
	if roles == nil {
		roles = []string{}
	}
	return &ClaimSet{
		Subject:     p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		TenantID:    p.TenantID,
		Roles:       roles,
		TokenID:     idx.NewUUID(),
	}
}
