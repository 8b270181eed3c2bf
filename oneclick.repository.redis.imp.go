// File: oneclick.repository.redis.imp.go

package oneclick

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	linkPrefix = "oneclick:link:"
	usedPrefix = "oneclick:used:"
)

type RedisLinkRepository struct {
	client *redis.Client
}

// NewRedisLinkRepository creates a new Redis-based link repository
func NewRedisLinkRepository(client *redis.Client) (LinkRepository, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisLinkRepository{
		client: client,
	}, nil
}

// SaveLink stores the serialized link under its token hash with the given ttl
func (r *RedisLinkRepository) SaveLink(ctx context.Context, link UnsubscribeLink, ttl time.Duration) error {
	if link.Token() == "" {
		return fmt.Errorf("%w: link has no token", ErrInvalidToken)
	}

	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	payload, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to serialize link: %w", err)
	}

	key := linkPrefix + hashToken(link.Token())

	return r.client.Set(ctx, key, payload, ttl).Err()
}

// FindLink returns the stored link for the presented token
func (r *RedisLinkRepository) FindLink(ctx context.Context, token string) (UnsubscribeLink, error) {
	if token == "" {
		return UnsubscribeLink{}, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	key := linkPrefix + hashToken(token)

	payload, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return UnsubscribeLink{}, ErrLinkNotFound
	}
	if err != nil {
		return UnsubscribeLink{}, fmt.Errorf("redis error: %w", err)
	}

	var link UnsubscribeLink
	if err := json.Unmarshal(payload, &link); err != nil {
		return UnsubscribeLink{}, fmt.Errorf("failed to deserialize link: %w", err)
	}

	return link, nil
}

// MarkLinkUsed records that the link for the presented token was redeemed
func (r *RedisLinkRepository) MarkLinkUsed(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	key := usedPrefix + hashToken(token)

	return r.client.Set(ctx, key, "1", ttl).Err()
}

// IsLinkUsed checks whether the link for the presented token was redeemed
func (r *RedisLinkRepository) IsLinkUsed(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	key := usedPrefix + hashToken(token)

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}

	return exists > 0, nil
}

// ConsumeLink atomically marks the link redeemed via SETNX: the first
// consumer creates the used marker, every later one fails with ErrLinkUsed.
func (r *RedisLinkRepository) ConsumeLink(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	key := usedPrefix + hashToken(token)

	set, err := r.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !set {
		return ErrLinkUsed
	}

	return nil
}

// DeleteLink removes the stored link and its used marker
func (r *RedisLinkRepository) DeleteLink(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	tokenHash := hashToken(token)

	if _, err := r.client.Del(ctx, linkPrefix+tokenHash, usedPrefix+tokenHash).Result(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}

	return nil
}

// CleanupExpiredLinks sweeps leftover keys whose TTL already elapsed.
// Redis expires keys natively, so this only deletes stragglers.
func (r *RedisLinkRepository) CleanupExpiredLinks(ctx context.Context) error {
	if err := r.cleanupExpiredKeys(ctx, linkPrefix); err != nil {
		return err
	}
	return r.cleanupExpiredKeys(ctx, usedPrefix)
}

// cleanupExpiredKeys is a helper function that removes expired keys with a given prefix
func (r *RedisLinkRepository) cleanupExpiredKeys(ctx context.Context, prefix string) error {
	var cursor uint64
	const batchSize = 100

	for {
		// Check if context is cancelled
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}

		keys, newCursor, err := r.client.Scan(ctx, cursor, prefix+"*", batchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan error: %w", err)
		}

		var keysToDelete []string
		for _, key := range keys {
			ttl, err := r.client.TTL(ctx, key).Result()
			if err != nil {
				continue
			}

			// If TTL is negative, the key has expired or lost its expiry
			if ttl <= 0 {
				keysToDelete = append(keysToDelete, key)
			}
		}

		if len(keysToDelete) > 0 {
			if _, err := r.client.Del(ctx, keysToDelete...).Result(); err != nil {
				return fmt.Errorf("redis delete error: %w", err)
			}
		}

		if newCursor == 0 {
			break
		}
		cursor = newCursor
	}

	return nil
}

// Close closes the underlying Redis client
func (r *RedisLinkRepository) Close() error {
	return r.client.Close()
}
