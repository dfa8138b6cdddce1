package auth

import (
	"crypto/rand"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/idx"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

const (
	MinSigningKeyBytes     = 32
	DefaultAccessTokenTTL  = 30 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// IssuerConfig is validated once by NewTokenIssuer.
type IssuerConfig struct {
	SigningKey      []byte
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Option customizes a TokenIssuer.
type Option func(*TokenIssuer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *TokenIssuer) { i.now = now }
}

// WithEntropy replaces crypto/rand as the refresh token source.
func WithEntropy(r io.Reader) Option {
	return func(i *TokenIssuer) { i.entropy = r }
}

// TokenIssuer signs HS256 access tokens and mints opaque refresh tokens. It
// has no persistence side effects.
type TokenIssuer struct {
	key        []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	entropy    io.Reader
	parser     *jwt.Parser
}

// NewTokenIssuer returns a ConfigurationError when the key is shorter than
// MinSigningKeyBytes or issuer/audience are empty. Zero lifetimes take the
// defaults; negative lifetimes are rejected.
func NewTokenIssuer(cfg IssuerConfig, opts ...Option) (*TokenIssuer, error) {
	switch {
	case len(cfg.SigningKey) < MinSigningKeyBytes:
		return nil, ErrConfiguration("signing_key_too_short").WithDetail("min_bytes", MinSigningKeyBytes)
	case strings.TrimSpace(cfg.Issuer) == "":
		return nil, ErrConfiguration("issuer_missing")
	case strings.TrimSpace(cfg.Audience) == "":
		return nil, ErrConfiguration("audience_missing")
	case cfg.AccessTokenTTL < 0 || cfg.RefreshTokenTTL < 0:
		return nil, ErrConfiguration("negative_lifetime")
	}

	i := &TokenIssuer{
		key:        slices.Clone(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
		entropy:    rand.Reader,
	}
	if i.accessTTL == 0 {
		i.accessTTL = DefaultAccessTokenTTL
	}
	if i.refreshTTL == 0 {
		i.refreshTTL = DefaultRefreshTokenTTL
	}
	for _, opt := range opts {
		opt(i)
	}

	i.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return i.now() }),
	)
	return i, nil
}

// Issue signs an access token for subject in rc's tenant and mints a new
// refresh token. A fresh jti is assigned when claims carries none.
func (i *TokenIssuer) Issue(subject kernel.UserID, claims ClaimSet, rc kernel.RequestContext) (TokenPair, error) {
	tenantID := rc.TenantID
	if tenantID.IsEmpty() {
		tenantID = claims.TenantID
	}
	if !claims.TenantID.IsEmpty() && claims.TenantID != tenantID {
		return TokenPair{}, errx.New("claims tenant does not match request tenant", errx.TypeInternal).
			WithDetail("claims_tenant", claims.TenantID.String())
	}

	jti := claims.TokenID
	if jti == "" {
		jti = idx.NewUUID()
	}
	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}

	now := i.now().UTC()
	accessExp := now.Add(i.accessTTL)
	body := accessClaims{
		TenantID: tenantID,
		Email:    claims.Email,
		Name:     claims.DisplayName,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject.String(),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, body).SignedString(i.key)
	if err != nil {
		return TokenPair{}, errx.Wrap(err, "failed to sign access token", errx.TypeInternal)
	}

	refresh, err := NewRefreshToken(i.entropy)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: now.Add(i.refreshTTL),
	}, nil
}

// ValidateAccessToken verifies signature, issuer, audience and lifetime.
func (i *TokenIssuer) ValidateAccessToken(token string) (*ClaimSet, error) {
	var body accessClaims
	if _, err := i.parser.ParseWithClaims(token, &body, i.keyFunc); err != nil {
		return nil, ErrTokenInvalid(err)
	}
	if body.Subject == "" || body.TenantID.IsEmpty() {
		return nil, ErrTokenInvalid(nil).WithDetail("reason", "missing_subject_or_tenant")
	}
	return body.toClaimSet(), nil
}

// PeekSubject returns the subject of a token signed by this issuer without
// enforcing its lifetime. It is only used to compare a presented hint with
// an already authenticated subject and must never grant access.
func (i *TokenIssuer) PeekSubject(token string) (kernel.UserID, error) {
	var body accessClaims
	p := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if _, err := p.ParseWithClaims(token, &body, i.keyFunc); err != nil {
		return "", ErrTokenInvalid(err)
	}
	if body.Issuer != i.issuer || !slices.Contains(body.Audience, i.audience) {
		return "", ErrTokenInvalid(nil).WithDetail("reason", "foreign_issuer_or_audience")
	}
	if body.Subject == "" {
		return "", ErrTokenInvalid(nil).WithDetail("reason", "missing_subject")
	}
	return kernel.UserID(body.Subject), nil
}

func (i *TokenIssuer) keyFunc(*jwt.Token) (interface{}, error) {
	return i.key, nil
}

func (i *TokenIssuer) AccessTokenTTL() time.Duration  { return i.accessTTL }
func (i *TokenIssuer) RefreshTokenTTL() time.Duration { return i.refreshTTL }
