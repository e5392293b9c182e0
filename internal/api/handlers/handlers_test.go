// Package handlers_test provides behavior tests for the API handlers package.
package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/bastiondns/bastiondns/internal/api/handlers"
	"github.com/bastiondns/bastiondns/internal/catalog"
	"github.com/bastiondns/bastiondns/internal/config"
	"github.com/bastiondns/bastiondns/internal/resolvers"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testZone = `$TTL 3600
$ORIGIN example.com.
@       IN SOA   ns1 hostmaster 2026010100 7200 3600 1209600 1800
@       IN NS    ns1
ns1     IN A     192.0.2.1
www     IN A     192.0.2.10
alias   IN CNAME www
`

// testResolver builds a single-zone chain for example.com.
func testResolver(t *testing.T) resolvers.Resolver {
	t.Helper()
	a, err := resolvers.FromText(testZone, "example.com", nil)
	require.NoError(t, err)
	chain := &resolvers.Chained{Resolvers: []resolvers.Resolver{a}}
	t.Cleanup(func() { _ = chain.Close() })
	return chain
}

// testCatalog opens a throwaway catalog with one recorded zone.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	require.NoError(t, cat.Upsert(catalog.Zone{
		Origin:  "example.com",
		Source:  "zones/example.com.zone",
		Format:  "master",
		Enabled: true,
	}))
	require.NoError(t, cat.MarkLoaded("example.com", 2026010100))
	return cat
}

func createTestHandler(t *testing.T, deps handlers.Deps) *handlers.Handler {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: 1053,
		},
	}
	return handlers.New(cfg, deps, nil)
}

func setupTestRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()

	api := r.Group("/api/v1")
	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)
	api.GET("/zones", h.ListZones)
	api.POST("/zones", h.CreateZone)
	api.GET("/zones/:origin", h.GetZone)
	api.PUT("/zones/:origin", h.UpdateZone)
	api.DELETE("/zones/:origin", h.DeleteZone)
	api.GET("/resolve", h.Resolve)

	return r
}

func performRequest(r http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
