package identity

import "context"

// Identity is the authenticated caller as asserted by the external identity
// provider. Wallets are keyed by UserID.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IsZero reports whether the identity carries no user.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying id.
func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, or the zero Identity.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
