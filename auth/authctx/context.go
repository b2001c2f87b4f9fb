// Package authctx carries verified token claims on a request context.
//
//	ctx = authctx.Set(ctx, claims)
//	claims, ok := authctx.Get[*jwt.Claims](ctx)
package authctx

import "context"

type claimsKey struct{}

// Set returns a copy of ctx holding claims.
func Set(ctx context.Context, claims any) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// Get reports false when ctx holds no claims or claims of another type.
func Get[T any](ctx context.Context) (T, bool) {
	claims, ok := ctx.Value(claimsKey{}).(T)
	return claims, ok
}
