package user

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/jmoiron/sqlx"
)

// Principal is the stored identity of a user within one tenant.
type Principal struct {
	ID                    kernel.UserID
	TenantID              kernel.TenantID
	Email                 string
	NormalizedEmail       string
	DisplayName           string
	PasswordHash          string
	Active                bool
	EmailConfirmed        bool
	Roles                 []string
	RefreshTokenHash      *string
	RefreshTokenExpiresAt *time.Time
	ExternalID            *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// IsUsable reports whether the account may authenticate.
func (p *Principal) IsUsable() bool {
	return p.Active && p.EmailConfirmed
}

// RefreshTokenValidAt reports whether the stored refresh token has not
// expired at now.
func (p *Principal) RefreshTokenValidAt(now time.Time) bool {
	return p.RefreshTokenHash != nil && p.RefreshTokenExpiresAt != nil && p.RefreshTokenExpiresAt.After(now)
}

// NormalizeEmail is the lookup key for emails: trimmed and lower-cased.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Repository is the per-tenant principal store.
type Repository interface {
	FindByID(ctx context.Context, tenantID kernel.TenantID, id kernel.UserID) (*Principal, error)
	FindByEmail(ctx context.Context, tenantID kernel.TenantID, normalizedEmail string) (*Principal, error)
	FindByRefreshTokenHash(ctx context.Context, tenantID kernel.TenantID, hash string) (*Principal, error)

	// SetRefreshToken replaces whatever refresh token the principal holds.
	SetRefreshToken(ctx context.Context, tenantID kernel.TenantID, id kernel.UserID, hash string, expiresAt time.Time) error

	// RotateRefreshToken replaces the stored hash only if it still equals
	// oldHash. It returns false when another caller rotated first.
	RotateRefreshToken(ctx context.Context, tenantID kernel.TenantID, id kernel.UserID, oldHash, newHash string, expiresAt time.Time) (bool, error)

	ClearRefreshToken(ctx context.Context, tenantID kernel.TenantID, id kernel.UserID) error

	// Create inserts p using q, which may be a transaction.
	Create(ctx context.Context, q sqlx.ExtContext, p Principal) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare must run in constant time with respect to the password.
	Compare(hash, password string) bool
}

// RegisteredEvent is published through the outbox when a principal is created.
type RegisteredEvent struct {
	UserID      kernel.UserID   `json:"user_id"`
	TenantID    kernel.TenantID `json:"tenant_id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name"`
}

const RegisteredEventType = "user.registered"

func (RegisteredEvent) EventType() string { return RegisteredEventType }

var ErrRegistry = errx.NewRegistry("USER")

var (
	CodeUserNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeEmailTaken   = ErrRegistry.Register("EMAIL_TAKEN", errx.TypeConflict, http.StatusConflict, "Email already registered")
	CodeInvalidInput = ErrRegistry.Register("INVALID_INPUT", errx.TypeValidation, http.StatusBadRequest, "Invalid registration input")
)

func ErrUserNotFound() *errx.Error {
	return ErrRegistry.New(CodeUserNotFound)
}

func ErrEmailTaken() *errx.Error {
	return ErrRegistry.New(CodeEmailTaken)
}

func ErrInvalidInput() *errx.Error {
	return ErrRegistry.New(CodeInvalidInput)
}
