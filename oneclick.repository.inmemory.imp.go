// File: oneclick.repository.inmemory.imp.go

package oneclick

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// linkEntry represents a stored link with its expiration time
type linkEntry struct {
	link      UnsubscribeLink
	expiresAt time.Time
}

// MemoryLinkRepository is an in-memory implementation of LinkRepository
// Suitable for development, testing, or single-instance deployments
type MemoryLinkRepository struct {
	mu              sync.RWMutex
	links           map[string]linkEntry
	usedLinks       map[string]time.Time
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

// NewMemoryLinkRepository creates a new in-memory link repository
// cleanupInterval determines how often expired entries are removed (default: 5 minutes)
func NewMemoryLinkRepository(cleanupInterval time.Duration) LinkRepository {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}

	repo := &MemoryLinkRepository{
		links:           make(map[string]linkEntry),
		usedLinks:       make(map[string]time.Time),
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	// Start background cleanup
	go repo.periodicCleanup()

	return repo
}

// SaveLink stores an issued link keyed by its token hash
func (m *MemoryLinkRepository) SaveLink(ctx context.Context, link UnsubscribeLink, ttl time.Duration) error {
	if link.Token() == "" {
		return fmt.Errorf("%w: link has no token", ErrInvalidToken)
	}

	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	tokenHash := hashToken(link.Token())
	entry := linkEntry{
		link:      link,
		expiresAt: time.Now().Add(ttl),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.links[tokenHash] = entry

	return nil
}

// FindLink returns the stored link for the presented token
func (m *MemoryLinkRepository) FindLink(ctx context.Context, token string) (UnsubscribeLink, error) {
	if token == "" {
		return UnsubscribeLink{}, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	tokenHash := hashToken(token)

	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.links[tokenHash]
	if !exists {
		return UnsubscribeLink{}, ErrLinkNotFound
	}

	// Check if entry has expired
	if time.Now().After(entry.expiresAt) {
		return UnsubscribeLink{}, ErrLinkNotFound
	}

	return entry.link, nil
}

// MarkLinkUsed records that the link for the presented token was redeemed
func (m *MemoryLinkRepository) MarkLinkUsed(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	tokenHash := hashToken(token)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.usedLinks[tokenHash] = time.Now().Add(ttl)

	return nil
}

// IsLinkUsed checks whether the link for the presented token was redeemed
func (m *MemoryLinkRepository) IsLinkUsed(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	tokenHash := hashToken(token)

	m.mu.RLock()
	defer m.mu.RUnlock()

	expiresAt, exists := m.usedLinks[tokenHash]
	if !exists {
		return false, nil
	}

	// Check if entry has expired
	if time.Now().After(expiresAt) {
		return false, nil
	}

	return true, nil
}

// ConsumeLink atomically marks the link redeemed. The check and the write
// happen under one write lock so concurrent consumers cannot both succeed.
func (m *MemoryLinkRepository) ConsumeLink(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	tokenHash := hashToken(token)

	m.mu.Lock()
	defer m.mu.Unlock()

	if expiresAt, exists := m.usedLinks[tokenHash]; exists && time.Now().Before(expiresAt) {
		return ErrLinkUsed
	}

	m.usedLinks[tokenHash] = time.Now().Add(ttl)

	return nil
}

// DeleteLink removes the stored link and its used marker
func (m *MemoryLinkRepository) DeleteLink(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	tokenHash := hashToken(token)

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.links, tokenHash)
	delete(m.usedLinks, tokenHash)

	return nil
}

// CleanupExpiredLinks removes expired links and used markers from memory
func (m *MemoryLinkRepository) CleanupExpiredLinks(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	for hash, entry := range m.links {
		if now.After(entry.expiresAt) {
			delete(m.links, hash)
		}
	}
	for hash, expiresAt := range m.usedLinks {
		if now.After(expiresAt) {
			delete(m.usedLinks, hash)
		}
	}

	return nil
}

// periodicCleanup runs background cleanup of expired entries
func (m *MemoryLinkRepository) periodicCleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	ctx := context.Background()

	for {
		select {
		case <-m.stopCleanup:
			return
		case <-ticker.C:
			_ = m.CleanupExpiredLinks(ctx)
		}
	}
}

// Close stops the background cleanup goroutine
// Call this when shutting down the application
func (m *MemoryLinkRepository) Close() error {
	m.cleanupOnce.Do(func() {
		close(m.stopCleanup)
	})
	return nil
}

// Stats returns statistics about the repository
// Useful for monitoring and debugging
func (m *MemoryLinkRepository) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]int{
		"stored_links": len(m.links),
		"used_links":   len(m.usedLinks),
	}
}
