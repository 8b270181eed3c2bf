// oneclick.repository.go

package oneclick

import (
	"context"
	"time"
)

// LinkRepository defines storage for issued unsubscribe links so they can
// be reconstructed and validated later, and redeemed at most once.
//
// Implementations key entries by the SHA-256 digest of the link's token;
// raw tokens never appear in storage keys. All lookups take the candidate
// token presented at unsubscribe time, not the digest.
type LinkRepository interface {
	// SaveLink stores an issued link for later lookup. ttl must be positive.
	SaveLink(ctx context.Context, link UnsubscribeLink, ttl time.Duration) error

	// FindLink returns the stored link for the given token, or
	// ErrLinkNotFound if none exists or it has expired.
	FindLink(ctx context.Context, token string) (UnsubscribeLink, error)

	// MarkLinkUsed records that the link for the given token was redeemed.
	// ttl must be positive and should outlive the link's own ttl.
	MarkLinkUsed(ctx context.Context, token string, ttl time.Duration) error

	// IsLinkUsed reports whether the link for the given token was redeemed.
	IsLinkUsed(ctx context.Context, token string) (bool, error)

	// ConsumeLink atomically marks the link redeemed, failing with
	// ErrLinkUsed when it already was. Concurrent consumers of the same
	// token see exactly one success. ttl must be positive.
	ConsumeLink(ctx context.Context, token string, ttl time.Duration) error

	// DeleteLink removes the stored link and its used marker.
	DeleteLink(ctx context.Context, token string) error

	// CleanupExpiredLinks removes expired entries eagerly. Backends with
	// native TTL support may treat this as a sweep of leftovers.
	CleanupExpiredLinks(ctx context.Context) error

	// Close releases any background resources held by the repository.
	Close() error
}
