package kernel

import "context"

// SessionIdentity is what the session middleware exposes to handlers: the
// two identity provider tokens carried by the session cookie.
type SessionIdentity struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
}

// IsValid reports whether both tokens are present
func (s *SessionIdentity) IsValid() bool {
	return s != nil && s.IDToken != "" && s.AccessToken != ""
}

type ContextKey string

const (
	// SessionContextKey stores *SessionIdentity in context.Context
	SessionContextKey ContextKey = "session"

	// RequestIDKey stores the request id
	RequestIDKey ContextKey = "request_id"
)

// WithSession returns ctx carrying the session identity
func WithSession(ctx context.Context, s *SessionIdentity) context.Context {
	return context.WithValue(ctx, SessionContextKey, s)
}

// SessionFromContext returns the session identity stored in ctx, if any
func SessionFromContext(ctx context.Context) (*SessionIdentity, bool) {
	s, ok := ctx.Value(SessionContextKey).(*SessionIdentity)
	return s, ok && s != nil
}

// WithRequestID returns ctx carrying the request id
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// RequestIDFromContext returns the request id stored in ctx, or ""
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
