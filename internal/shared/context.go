package shared

import "context"

type (
	sessionContextKey struct{}
	profileContextKey struct{}
)

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithProfile stores the browser profile id in context.
func ContextWithProfile(ctx context.Context, profile string) context.Context {
	return context.WithValue(ctx, profileContextKey{}, profile)
}

// ProfileFromContext returns the browser profile id, empty when missing.
func ProfileFromContext(ctx context.Context) string {
	profile, _ := ctx.Value(profileContextKey{}).(string)
	return profile
}
