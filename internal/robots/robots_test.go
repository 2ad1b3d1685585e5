package robots

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func robotsServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIsAllowedPermitsUnlistedPath(t *testing.T) {
	var hits int32
	srv := robotsServer(t, "User-agent: *\nDisallow: /admin\n", &hits)

	c := NewChecker("test-agent", time.Second)
	assert.True(t, c.IsAllowed(srv.URL+"/search?q=elden+ring"))
}

func TestIsAllowedBlocksDisallowedPath(t *testing.T) {
	var hits int32
	srv := robotsServer(t, "User-agent: *\nDisallow: /search\n", &hits)

	c := NewChecker("test-agent", time.Second)
	assert.False(t, c.IsAllowed(srv.URL+"/search?q=elden+ring"))
}

func TestIsAllowedFailsOpenOnUnreachableHost(t *testing.T) {
	c := NewChecker("test-agent", time.Second)
	assert.True(t, c.IsAllowed("http://127.0.0.1:1/search"))
}

func TestIsAllowedCachesWithinTTL(t *testing.T) {
	var hits int32
	srv := robotsServer(t, "User-agent: *\nDisallow: /search\n", &hits)

	c := NewChecker("test-agent", time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.IsAllowed(srv.URL + "/search")
	c.IsAllowed(srv.URL + "/search")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "second check within TTL should reuse the cached entry")
}

func TestIsAllowedRefetchesAfterTTLExpires(t *testing.T) {
	var hits int32
	srv := robotsServer(t, "User-agent: *\nDisallow: /search\n", &hits)

	c := NewChecker("test-agent", time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.IsAllowed(srv.URL + "/search")
	c.now = func() time.Time { return now.Add(c.ttl + time.Minute) }
	c.IsAllowed(srv.URL + "/search")

	assert.EqualValues(t, 2, atomic.LoadInt32(&hits), "entry past TTL should trigger a re-fetch")
}
