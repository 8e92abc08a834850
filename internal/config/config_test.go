package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penx/internal/config"
)

func TestLoadDefaultsDerivePathsFromDataDir(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PENX_DATA_DIR", "var/penx")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, filepath.Join("var", "penx", "penx.db"), cfg.Paths.Database)
	assert.Equal(t, filepath.Join("var", "penx", "readers_Accounts.csv"), cfg.Paths.ReadersCSV)
	assert.Equal(t, filepath.Join("var", "penx", "uploads", "profile-pictures"), cfg.ProfilePicturesDir())
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 100*time.Millisecond, cfg.RetryDelay())
	assert.Equal(t, 5, cfg.Retry.Attempts)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "penx.toml")
	body := `
[server]
addr = ":9000"

[paths]
books_dir = "/srv/books"

[auth]
jwt_secret = "from-file"
bcrypt_cost = 4

[logging]
format = "JSON"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("PENX_JWT_SECRET", "from-env")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "/srv/books", cfg.Paths.BooksDir)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()

	tts := []struct {
		name string
		body string
	}{
		{"bad log format", "[logging]\nformat = \"xml\"\n"},
		{"bcrypt cost too high", "[auth]\nbcrypt_cost = 99\n"},
		{"short legacy key", "[auth]\nlegacy_reader_key = \"short\"\n"},
	}

	for i, tt := range tts {
		path := filepath.Join(dir, filepath.Base(t.Name())+string(rune('a'+i))+".toml")
		require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

		_, err := config.Load(path)
		assert.Error(t, err, tt.name)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.EnsureDirectories())

	for _, p := range []string{cfg.Paths.DataDir, cfg.Paths.BooksDir, cfg.ProfilePicturesDir()} {
		info, err := os.Stat(p)
		require.NoError(t, err, p)
		assert.True(t, info.IsDir(), p)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
