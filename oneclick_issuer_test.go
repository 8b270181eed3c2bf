// oneclick_issuer_test.go

package oneclick

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer(t *testing.T) *LinkIssuer {
	t.Helper()

	maker, err := NewHMACTokenMaker(DefaultTokenMakerConfig(testSecretKey))
	require.NoError(t, err)

	repo := NewMemoryLinkRepository(time.Minute)
	t.Cleanup(func() {
		_ = repo.Close()
	})

	issuer, err := NewLinkIssuer(maker, testBaseURI, repo, time.Hour)
	require.NoError(t, err)
	return issuer
}

func TestNewLinkIssuer_Validation(t *testing.T) {
	maker, err := NewHMACTokenMaker(DefaultTokenMakerConfig(testSecretKey))
	require.NoError(t, err)

	t.Run("Nil Maker Rejected", func(t *testing.T) {
		_, err := NewLinkIssuer(nil, testBaseURI, nil, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token maker cannot be nil")
	})

	t.Run("HTTP Base Rejected", func(t *testing.T) {
		_, err := NewLinkIssuer(maker, "http://example.com/unsubscribe", nil, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRequiresHTTPS)
	})

	t.Run("Repository Requires Positive TTL", func(t *testing.T) {
		repo := NewMemoryLinkRepository(time.Minute)
		defer repo.Close()

		_, err := NewLinkIssuer(maker, testBaseURI, repo, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "link ttl must be positive")
	})
}

func TestLinkIssuer_IssueAndRedeem(t *testing.T) {
	issuer := testIssuer(t)
	ctx := context.Background()
	subscriberID := uuid.New()

	link, err := issuer.IssueLink(ctx, subscriberID, testListID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URI(), testBaseURI+"/"))

	headers := link.Headers()
	require.Len(t, headers, 2)
	assert.Equal(t, "<"+link.URI()+">", headers[HeaderListUnsubscribe])

	// First redemption succeeds.
	redeemed, err := issuer.RedeemLink(ctx, link.Token())
	require.NoError(t, err)
	assert.Equal(t, link, redeemed)

	// Second redemption of the same token is rejected.
	_, err = issuer.RedeemLink(ctx, link.Token())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLinkUsed)
}

func TestLinkIssuer_ConcurrentRedemption(t *testing.T) {
	issuer := testIssuer(t)
	ctx := context.Background()

	link, err := issuer.IssueLink(ctx, uuid.New(), testListID)
	require.NoError(t, err)

	const goroutines = 32
	results := make(chan error, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			_, err := issuer.RedeemLink(ctx, link.Token())
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var succeeded, replayed int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrLinkUsed):
			replayed++
		default:
			t.Fatalf("unexpected redemption error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, goroutines-1, replayed)
}

func TestLinkIssuer_RedeemUnknownToken(t *testing.T) {
	issuer := testIssuer(t)

	_, err := issuer.RedeemLink(context.Background(), "never-issued-token")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLinkNotFound)
}

func TestLinkIssuer_WithoutRepository(t *testing.T) {
	maker, err := NewHMACTokenMaker(DefaultTokenMakerConfig(testSecretKey))
	require.NoError(t, err)

	issuer, err := NewLinkIssuer(maker, testBaseURI, nil, 0)
	require.NoError(t, err)

	link, err := issuer.IssueLink(context.Background(), uuid.New(), testListID)
	require.NoError(t, err)
	assert.NotEmpty(t, link.Token())

	_, err = issuer.RedeemLink(context.Background(), link.Token())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "link repository is not configured")
}

func TestLinkIssuer_WithJWTMaker(t *testing.T) {
	maker, err := NewJWTTokenMaker(jwtTestConfig())
	require.NoError(t, err)

	repo := NewMemoryLinkRepository(time.Minute)
	defer repo.Close()

	issuer, err := NewLinkIssuer(maker, testBaseURI, repo, time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	subscriberID := uuid.New()

	link, err := issuer.IssueLink(ctx, subscriberID, testListID)
	require.NoError(t, err)

	// The JWT token round-trips through the link and still verifies.
	claims, err := maker.VerifyToken(ctx, link.Token(), testListID)
	require.NoError(t, err)
	assert.Equal(t, subscriberID, claims.SubscriberID)

	redeemed, err := issuer.RedeemLink(ctx, link.Token())
	require.NoError(t, err)
	assert.Equal(t, link, redeemed)
}
