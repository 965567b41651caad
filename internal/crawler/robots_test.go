package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webscoutlabs/webscout/internal/logger"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestFetchRobots(t *testing.T) {
	t.Run("DisallowHonored", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/robots.txt" {
				w.Write([]byte("User-agent: *\nDisallow: /private\n"))
				return
			}
			http.NotFound(w, r)
		}))
		defer srv.Close()

		g := fetchRobots(context.Background(), mustParse(t, srv.URL), "WebScout-Bot", logger.Nop())
		assert.True(t, g.allowed(mustParse(t, srv.URL+"/public")))
		assert.False(t, g.allowed(mustParse(t, srv.URL+"/private/area")))
	})

	t.Run("QueryIncludedInPathCheck", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("User-agent: *\nDisallow: /search?\n"))
		}))
		defer srv.Close()

		g := fetchRobots(context.Background(), mustParse(t, srv.URL), "WebScout-Bot", logger.Nop())
		assert.True(t, g.allowed(mustParse(t, srv.URL+"/search")))
		assert.False(t, g.allowed(mustParse(t, srv.URL+"/search?q=x")))
	})

	t.Run("MissingFileFailsOpen", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		g := fetchRobots(context.Background(), mustParse(t, srv.URL), "WebScout-Bot", logger.Nop())
		assert.True(t, g.allowed(mustParse(t, srv.URL+"/anything")))
	})

	t.Run("UnreachableHostFailsOpen", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		base := srv.URL
		srv.Close() // nothing listening anymore

		g := fetchRobots(context.Background(), mustParse(t, base), "WebScout-Bot", logger.Nop())
		assert.True(t, g.allowed(mustParse(t, base+"/anything")))
	})

	t.Run("NilGateAllows", func(t *testing.T) {
		var g *robotsGate
		assert.True(t, g.allowed(mustParse(t, "https://example.com/x")))
	})
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable("timeout"))
	assert.False(t, retryable("404"))
	assert.False(t, retryable("javascript_error"))
	assert.False(t, retryable("other"))
}
