package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// VerificationStore keeps one-time tokens that can be exchanged once for a session ID.
type VerificationStore struct {
	client redis.UniversalClient
	prefix string
}

// NewVerificationStore creates a verification token store.
func NewVerificationStore(client redis.UniversalClient) *VerificationStore {
	return NewVerificationStoreWithPrefix(client, "gatekeeper:verify:")
}

// NewVerificationStoreWithPrefix creates a verification token store with a custom key prefix.
func NewVerificationStoreWithPrefix(client redis.UniversalClient, prefix string) *VerificationStore {
	return &VerificationStore{client: client, prefix: prefix}
}

// Issue stores token -> sessionID. Reusing a live token is an error.
func (v *VerificationStore) Issue(ctx context.Context, token, sessionID string, ttl time.Duration) error {
	if token == "" || sessionID == "" {
		return errors.New("token and session ID are required")
	}
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	ok, err := v.client.SetNX(ctx, v.prefix+token, sessionID, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return errors.New("verification token already issued")
	}
	return nil
}

// Consume atomically reads and deletes the token.
func (v *VerificationStore) Consume(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNotFound
	}
	sessionID, err := v.client.GetDel(ctx, v.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis getdel: %w", err)
	}
	return sessionID, nil
}
