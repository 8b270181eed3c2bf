// tests_helpers.go

package oneclick

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// Test Helper Functions

const (
	testSecretKey = "test-secret-32-bytes-long-1234567890"
	testBaseURI   = "https://example.com/unsubscribe"
	testListID    = "newsletter-weekly"
)

func mustLink(t *testing.T, baseURI, token string) UnsubscribeLink {
	t.Helper()

	link, err := NewUnsubscribeLink(baseURI, token)
	require.NoError(t, err)
	return link
}

func testRedisServer(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: srv.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return srv, client
}
