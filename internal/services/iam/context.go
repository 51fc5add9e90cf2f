package iam

import "context"

type principalContextKey struct{}

// ContextWithPrincipal stores the authenticated principal on the context
// for downstream consumers (authorization guards, handlers, audit logs).
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext retrieves the authenticated principal from the
// context. The second return is false for unauthenticated requests.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(*Principal)
	return principal, ok && principal != nil
}
