package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/staffdesk/internal/infrastructure/redis"
	"github.com/yourorg/staffdesk/internal/reliability/circuitbreaker"
)

// RevokedTokenRepository implements domain.TokenRevoker using Redis with a
// TTL per entry. A circuit breaker guards the revocation checks: when Redis
// is down the check fails open, since locking every user out for the
// remainder of a Redis outage is worse than honoring a recently logged-out
// token until expiry.
type RevokedTokenRepository struct {
	redis   *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewRevokedTokenRepository creates a new revocation store
func NewRevokedTokenRepository(redisClient *redis.Client, logger *slog.Logger) *RevokedTokenRepository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &RevokedTokenRepository{
		redis:   redisClient,
		breaker: circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		logger:  logger,
	}
	r.breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("revocation store breaker state changed",
			slog.Int("from", int(from)),
			slog.Int("to", int(to)),
		)
	})
	return r
}

// Revoke stores the token until it would have expired anyway. Revocation is
// a user-initiated logout, so a failure here is surfaced rather than
// swallowed.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.redis.Set(ctx, revocationKey(token), "1", ttl); err != nil {
		r.breaker.RecordFailure()
		return fmt.Errorf("failed to store revocation: %w", err)
	}
	r.breaker.RecordSuccess()
	r.logger.Debug("token revoked", slog.Duration("ttl", ttl))
	return nil
}

// IsRevoked reports whether the token was revoked by a logout. With the
// breaker open the check is skipped and the token accepted.
func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	if !r.breaker.AllowRequest() {
		return false, nil
	}

	revoked, err := r.redis.Exists(ctx, revocationKey(token))
	if err != nil {
		r.breaker.RecordFailure()
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	r.breaker.RecordSuccess()
	return revoked, nil
}

// revocationKey hashes the token so raw JWTs never land in Redis.
func revocationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "revoked:" + hex.EncodeToString(sum[:])
}
