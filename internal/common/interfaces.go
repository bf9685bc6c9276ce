package common

import (
	"context"
)

// IdentityResolver turns raw user ids read from the store into projections.
// Ids without a user are absent from the returned map.
type IdentityResolver interface {
	ResolveUsers(ctx context.Context, ids []string) (map[string]UserProjection, error)
}

// Authenticator maps a bearer credential to the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*UserProjection, error)
}
