package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server contains HTTP listener settings.
type Server struct {
	Addr           string   `toml:"addr"`
	CORSOrigins    []string `toml:"cors_origins"`
	MaxUploadBytes int64    `toml:"max_upload_bytes"`
}

// Paths locates every persisted store.
type Paths struct {
	DataDir         string `toml:"data_dir"`
	BooksDir        string `toml:"books_dir"`
	ImagesDir       string `toml:"images_dir"`
	UploadsDir      string `toml:"uploads_dir"`
	ReadersCSV      string `toml:"readers_csv"`
	Database        string `toml:"database"`
	EngagementDB    string `toml:"engagement_db"`
	SearchIndex     string `toml:"search_index"`
	LegacyFavorites string `toml:"legacy_favorites_dir"`
	LegacyReads     string `toml:"legacy_reads_json"`
}

// Auth contains token and password hashing settings.
type Auth struct {
	JWTSecret       string `toml:"jwt_secret"`
	TokenTTLHours   int    `toml:"token_ttl_hours"`
	BcryptCost      int    `toml:"bcrypt_cost"`
	LegacyReaderKey string `toml:"legacy_reader_key"`
}

// Admin holds the single dashboard account. An empty PasswordHash leaves the
// analytics endpoint open.
type Admin struct {
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"`
}

// Institution names the rollup returned by /api/institution-data.
type Institution struct {
	Name string `toml:"name"`
}

// Search configures the book search index.
type Search struct {
	Enabled         bool   `toml:"enabled"`
	ReindexSchedule string `toml:"reindex_schedule"`
}

// Retry bounds retries of busy file-store writes.
type Retry struct {
	Attempts int `toml:"attempts"`
	DelayMS  int `toml:"delay_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for the PenX backend.
type Config struct {
	Server      Server      `toml:"server"`
	Paths       Paths       `toml:"paths"`
	Auth        Auth        `toml:"auth"`
	Admin       Admin       `toml:"admin"`
	Institution Institution `toml:"institution"`
	Search      Search      `toml:"search"`
	Retry       Retry       `toml:"retry"`
	Logging     Logging     `toml:"logging"`
}

// Load parses the TOML file at path on top of the defaults, applies
// environment overrides, then normalizes and validates the result. An empty
// path falls back to ./penx.toml when present, otherwise to defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", false, fmt.Errorf("config file %q does not exist", path)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return path, true, nil
	}

	projectPath, err := filepath.Abs("penx.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return "", false, nil
}

// EnsureDirectories creates the directories the stores write into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.BooksDir,
		c.Paths.ImagesDir,
		c.Paths.UploadsDir,
		c.ProfilePicturesDir(),
		filepath.Dir(c.Paths.ReadersCSV),
		filepath.Dir(c.Paths.Database),
		filepath.Dir(c.Paths.EngagementDB),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ProfilePicturesDir is where uploaded reader and author pictures are stored.
func (c *Config) ProfilePicturesDir() string {
	return filepath.Join(c.Paths.UploadsDir, "profile-pictures")
}

// TokenTTL returns the bearer token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

// RetryDelay returns the pause between busy-write attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelayMS) * time.Millisecond
}
