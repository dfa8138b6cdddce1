package kernel

import "slices"

// RequestContext is the explicit per-request context threaded through every
// auth, audit and outbox call. Nothing in the domain reads tenant or
// correlation ids from globals.
type RequestContext struct {
	TenantID      TenantID `json:"tenant_id"`
	UserID        UserID   `json:"user_id,omitempty"`
	CorrelationID string   `json:"correlation_id,omitempty"`
	TraceID       string   `json:"trace_id,omitempty"`
	IP            string   `json:"ip,omitempty"`
	UserAgent     string   `json:"user_agent,omitempty"`
}

// WithUser returns a copy bound to userID.
func (rc RequestContext) WithUser(userID UserID) RequestContext {
	rc.UserID = userID
	return rc
}

// LogFields returns the non-empty identifiers for structured logging.
func (rc RequestContext) LogFields() map[string]interface{} {
	f := make(map[string]interface{}, 4)
	if !rc.TenantID.IsEmpty() {
		f["tenant_id"] = rc.TenantID.String()
	}
	if !rc.UserID.IsEmpty() {
		f["user_id"] = rc.UserID.String()
	}
	if rc.CorrelationID != "" {
		f["correlation_id"] = rc.CorrelationID
	}
	if rc.TraceID != "" {
		f["trace_id"] = rc.TraceID
	}
	return f
}

// AuthContext is the authenticated caller placed in fiber locals by the
// bearer middleware.
type AuthContext struct {
	UserID   UserID   `json:"user_id"`
	TenantID TenantID `json:"tenant_id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
	TokenID  string   `json:"jti"`
}

func (ac *AuthContext) IsValid() bool {
	return ac != nil && !ac.UserID.IsEmpty() && !ac.TenantID.IsEmpty()
}

func (ac *AuthContext) HasRole(role string) bool {
	return ac != nil && slices.Contains(ac.Roles, role)
}

// Fiber locals keys.
const (
	AuthContextKey    = "auth_context"
	RequestContextKey = "request_context"
)
