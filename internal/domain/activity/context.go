package activity

import "context"

type sessionKey struct{}

// WithSessionID tags ctx so that entries logged under it carry the session.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionIDFromContext returns the session set by WithSessionID, or nil.
func SessionIDFromContext(ctx context.Context) *string {
	id, ok := ctx.Value(sessionKey{}).(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}
