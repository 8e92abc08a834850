package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penx/internal/app"
	"penx/internal/config"
	"penx/internal/logging"
)

func testApp(t *testing.T) *app.App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths = config.Paths{
		DataDir:      dir,
		BooksDir:     filepath.Join(dir, "Books"),
		ImagesDir:    filepath.Join(dir, "images"),
		UploadsDir:   filepath.Join(dir, "uploads"),
		ReadersCSV:   filepath.Join(dir, "readers.csv"),
		Database:     filepath.Join(dir, "penx.db"),
		EngagementDB: filepath.Join(dir, "engagement.db"),
		SearchIndex:  filepath.Join(dir, "books.bleve"),
	}
	cfg.Search.Enabled = false
	a, err := app.Open(context.Background(), &cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestRouterServesStaticFilesAndAPI(t *testing.T) {
	a := testApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(a.Config.Paths.ImagesDir, "logo.png"), []byte("logo"), 0o644))
	router := newRouter(a)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/logo.png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "logo", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	a := testApp(t)
	a.Config.Server.CORSOrigins = []string{"http://localhost:3000"}
	router := newRouter(a)

	req := httptest.NewRequest(http.MethodOptions, "/api/comments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, "localhost:5000", displayAddr(":5000"))
	assert.Equal(t, "0.0.0.0:80", displayAddr("0.0.0.0:80"))
}
