package domain

import (
	"context"
	"time"
)

// TokenRevoker records tokens invalidated by logout until they would have
// expired anyway. Bearer tokens are otherwise valid until expiry, so logout
// needs a denylist to take effect immediately.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}
