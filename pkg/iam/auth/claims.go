package auth

import (
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

// ClaimSet is what a successful validation asserts about a principal. It is
// rebuilt on every validation and only ever lives inside a signed token.
type ClaimSet struct {
	Subject     kernel.UserID
	Email       string
	DisplayName string
	TenantID    kernel.TenantID
	Roles       []string
	TokenID     string
}

// TokenPair is the result of issuance. RefreshToken is plaintext here and
// must only be stored hashed.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// accessClaims is the JWT body of an access token.
type accessClaims struct {
	TenantID kernel.TenantID `json:"tenant_id"`
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Roles    []string        `json:"roles"`
	jwt.RegisteredClaims
}

func (c *accessClaims) toClaimSet() *ClaimSet {
	roles := c.Roles
	if roles == nil {
		roles = []string{}
	}
	return &ClaimSet{
		Subject:     kernel.UserID(c.Subject),
		Email:       c.Email,
		DisplayName: c.Name,
		TenantID:    c.TenantID,
		Roles:       roles,
		TokenID:     c.ID,
	}
}
