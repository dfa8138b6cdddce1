package authsrv

import "github.com/alebhayan/King-Laminaat/pkg/kernel"

// Grant types recorded with TokenIssued.
const (
	GrantPassword     = "password"
	GrantRefreshToken = "refresh_token"
)

// SecurityAuditor receives security events. Implementations must not block.
type SecurityAuditor interface {
	LoginSucceeded(rc kernel.RequestContext, accessToken string)
	LoginFailed(rc kernel.RequestContext, email, reason string)
	TokenIssued(rc kernel.RequestContext, accessToken, grant string)
	TokenRevoked(rc kernel.RequestContext, accessToken, reason string)
	RefreshTokenSubjectMismatch(rc kernel.RequestContext, presentedSubject kernel.UserID, reason string)
}
