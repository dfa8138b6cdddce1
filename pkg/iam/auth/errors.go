package auth

import (
	"net/http"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeTenantInvalid      = ErrRegistry.Register("TENANT_INVALID", errx.TypeAuthorization, http.StatusUnauthorized, "Tenant is not valid")
	CodeInvalidCredentials = ErrRegistry.Register("INVALID_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid credentials")
	CodeAccountNotUsable   = ErrRegistry.Register("ACCOUNT_NOT_USABLE", errx.TypeAuthorization, http.StatusUnauthorized, "Account is not usable")
	CodeSubjectMismatch    = ErrRegistry.Register("SUBJECT_MISMATCH", errx.TypeAuthorization, http.StatusUnauthorized, "Token subject mismatch")
	CodeConfiguration      = ErrRegistry.Register("CONFIGURATION_ERROR", errx.TypeConfiguration, http.StatusInternalServerError, "Token issuer is misconfigured")
	CodeTokenInvalid       = ErrRegistry.Register("TOKEN_INVALID", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid or expired token")

	// CodeUnauthorized is the only auth code that crosses the trust boundary.
	CodeUnauthorized = ErrRegistry.Register("UNAUTHORIZED", errx.TypeAuthorization, http.StatusUnauthorized, "Unauthorized")
)

// Reason codes carried in the "reason" detail and in audit payloads.
const (
	ReasonTenantMissing      = "tenant_missing"
	ReasonTenantInactive     = "tenant_inactive"
	ReasonTenantExpired      = "tenant_expired"
	ReasonTenantLookupFailed = "tenant_lookup_failed"
	ReasonUserNotFound       = "user_not_found"
	ReasonBadPassword        = "bad_password"
	ReasonAccountDisabled    = "account_disabled"
	ReasonEmailUnconfirmed   = "email_unconfirmed"
	ReasonRefreshNotFound    = "refresh_not_found"
	ReasonRefreshExpired     = "refresh_expired"
	ReasonRefreshRotated     = "refresh_rotated"
	ReasonSubjectMismatch    = "subject_mismatch"
	ReasonHintInvalid        = "access_token_hint_invalid"
)

func withReason(code *errx.ErrorCode, reason string) *errx.Error {
	return ErrRegistry.New(code).WithDetail("reason", reason)
}

func ErrTenantInvalid(reason string) *errx.Error {
	return withReason(CodeTenantInvalid, reason)
}

func ErrInvalidCredentials(reason string) *errx.Error {
	return withReason(CodeInvalidCredentials, reason)
}

func ErrAccountNotUsable(reason string) *errx.Error {
	return withReason(CodeAccountNotUsable, reason)
}

func ErrSubjectMismatch(reason string) *errx.Error {
	return withReason(CodeSubjectMismatch, reason)
}

func ErrConfiguration(reason string) *errx.Error {
	return withReason(CodeConfiguration, reason)
}

func ErrTokenInvalid(cause error) *errx.Error {
	return ErrRegistry.NewWithCause(CodeTokenInvalid, cause)
}

func ErrUnauthorized() *errx.Error {
	return ErrRegistry.New(CodeUnauthorized)
}

// IsAuthFailure reports whether err is one of the failures that must be
// presented to clients as a generic unauthorized response.
func IsAuthFailure(err error) bool {
	for _, c := range []*errx.ErrorCode{
		CodeTenantInvalid, CodeInvalidCredentials, CodeAccountNotUsable,
		CodeSubjectMismatch, CodeTokenInvalid, CodeUnauthorized,
	} {
		if errx.IsCode(err, c) {
			return true
		}
	}
	return false
}

// Reason returns the reason detail of the first auth error in err's chain.
func Reason(err error) string {
	var e *errx.Error
	if !errx.As(err, &e) {
		return ""
	}
	if r, ok := e.Details["reason"].(string); ok {
		return r
	}
	return ""
}
