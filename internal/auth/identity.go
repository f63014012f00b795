package auth

import "context"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is the bearer-token caller. Lifecycle operations take it
// explicitly; nothing in this service relies on ambient session state.
type Identity struct {
	UserID string
	Role   Role
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
