package authsrv

import (
	"context"

	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/auth"
	"github.com/alebhayan/King-Laminaat/pkg/iam/user"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	// AccessToken is the previous access token, if the client still has it.
	// It is used only to detect token-pair confusion.
	AccessToken string `json:"accessToken,omitempty"`
}

// AuthService runs the login, refresh and revoke flows, owning refresh token
// persistence and auditing around the validator and issuer.
type AuthService struct {
	validator *auth.Validator
	issuer    *auth.TokenIssuer
	users     user.Repository
	auditor   SecurityAuditor
}

func NewAuthService(validator *auth.Validator, issuer *auth.TokenIssuer, users user.Repository, auditor SecurityAuditor) *AuthService {
	return &AuthService{
		validator: validator,
		issuer:    issuer,
		users:     users,
		auditor:   auditor,
	}
}

// Login validates credentials, issues a pair and stores the refresh hash,
// replacing any token the principal held.
func (s *AuthService) Login(ctx context.Context, rc kernel.RequestContext, req LoginRequest) (*auth.TokenPair, error) {
	claims, err := s.validator.ValidateCredentials(ctx, rc, req.Email, req.Password)
	if err != nil {
		s.fail(rc, user.NormalizeEmail(req.Email), err)
		return nil, err
	}
	rc = rc.WithUser(claims.Subject)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pair, err := s.issuer.Issue(claims.Subject, *claims, rc)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, rc.TenantID, claims.Subject, auth.HashRefreshToken(pair.RefreshToken), pair.RefreshTokenExpiresAt); err != nil {
		return nil, errx.Wrap(err, "failed to persist refresh token", errx.TypeInternal)
	}

	s.auditor.LoginSucceeded(rc, pair.AccessToken)
	s.auditor.TokenIssued(rc, pair.AccessToken, GrantPassword)
	return &pair, nil
}

// Refresh rotates a refresh token. The swap is conditional on the stored
// hash, so of several concurrent refreshes with the same token only one
// succeeds.
func (s *AuthService) Refresh(ctx context.Context, rc kernel.RequestContext, req RefreshRequest) (*auth.TokenPair, error) {
	claims, err := s.validator.ValidateRefreshToken(ctx, rc, req.RefreshToken)
	if err != nil {
		s.fail(rc, "", err)
		return nil, err
	}
	rc = rc.WithUser(claims.Subject)

	if req.AccessToken != "" {
		if err := s.checkHint(rc, claims.Subject, req.AccessToken); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pair, err := s.issuer.Issue(claims.Subject, *claims, rc)
	if err != nil {
		return nil, err
	}

	swapped, err := s.users.RotateRefreshToken(ctx, rc.TenantID, claims.Subject,
		auth.HashRefreshToken(req.RefreshToken), auth.HashRefreshToken(pair.RefreshToken), pair.RefreshTokenExpiresAt)
	if err != nil {
		return nil, errx.Wrap(err, "failed to rotate refresh token", errx.TypeInternal)
	}
	if !swapped {
		err := auth.ErrInvalidCredentials(auth.ReasonRefreshRotated).WithDetail("user_id", claims.Subject.String())
		s.fail(rc, "", err)
		return nil, err
	}

	s.auditor.TokenIssued(rc, pair.AccessToken, GrantRefreshToken)
	return &pair, nil
}

// checkHint compares the subject of the previous access token with the
// principal the refresh token resolved to. An expired hint is still
// compared; a hint that is not ours at all is treated as a mismatch.
func (s *AuthService) checkHint(rc kernel.RequestContext, resolved kernel.UserID, hint string) error {
	presented, err := s.issuer.PeekSubject(hint)
	reason := auth.ReasonSubjectMismatch
	switch {
	case err != nil:
		reason = auth.ReasonHintInvalid
	case presented == resolved:
		return nil
	}

	s.auditor.RefreshTokenSubjectMismatch(rc, presented, reason)
	logx.WithFields(rc.LogFields()).
		WithField("presented_subject", presented.String()).
		WithField("reason", reason).
		Warn("refresh refused: access token subject mismatch")
	return auth.ErrSubjectMismatch(reason).WithDetail("user_id", resolved.String())
}

// Revoke clears the caller's refresh token.
func (s *AuthService) Revoke(ctx context.Context, rc kernel.RequestContext, accessToken string) error {
	if rc.UserID.IsEmpty() {
		return auth.ErrUnauthorized()
	}
	if err := s.users.ClearRefreshToken(ctx, rc.TenantID, rc.UserID); err != nil {
		if errx.IsCode(err, user.CodeUserNotFound) {
			return auth.ErrUnauthorized()
		}
		return errx.Wrap(err, "failed to revoke refresh token", errx.TypeInternal)
	}
	s.auditor.TokenRevoked(rc, accessToken, "logout")
	return nil
}

func (s *AuthService) fail(rc kernel.RequestContext, email string, err error) {
	if !auth.IsAuthFailure(err) {
		logx.WithFields(rc.LogFields()).WithError(err).Error("authentication aborted")
		return
	}
	reason := auth.Reason(err)
	s.auditor.LoginFailed(rc, email, reason)
	logx.WithFields(rc.LogFields()).
		WithField("reason", reason).
		WithField("code", errx.CodeOf(err)).
		Info("authentication failed")
}
