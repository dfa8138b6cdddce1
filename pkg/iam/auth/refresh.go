package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
)

// RefreshTokenBytes is the entropy of a refresh token.
const RefreshTokenBytes = 32

// NewRefreshToken reads RefreshTokenBytes from r and encodes them as
// unpadded base64url.
func NewRefreshToken(r io.Reader) (string, error) {
	buf := make([]byte, RefreshTokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errx.Wrap(err, "failed to generate refresh token", errx.TypeInternal)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashRefreshToken is the only form of a refresh token that is stored.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
