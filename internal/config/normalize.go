package config

import (
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("PENX_ADDR")); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("PENX_JWT_SECRET")); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("PENX_DATA_DIR")); v != "" {
		c.Paths.DataDir = v
	}
}

func (c *Config) normalize() {
	c.normalizePaths()

	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = defaultMaxUploadBytes
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = defaultTokenTTLHours
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = defaultBcryptCost
	}
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = defaultRetryAttempts
	}
	if c.Retry.DelayMS < 0 {
		c.Retry.DelayMS = defaultRetryDelayMS
	}
	if strings.TrimSpace(c.Institution.Name) == "" {
		c.Institution.Name = defaultInstitutionName
	}
	if strings.TrimSpace(c.Search.ReindexSchedule) == "" {
		c.Search.ReindexSchedule = defaultReindexSchedule
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

func (c *Config) normalizePaths() {
	p := &c.Paths
	p.DataDir = cleanOr(p.DataDir, defaultDataDir)
	p.BooksDir = cleanOr(p.BooksDir, defaultBooksDir)
	p.ImagesDir = cleanOr(p.ImagesDir, defaultImagesDir)
	p.UploadsDir = cleanOr(p.UploadsDir, filepath.Join(p.DataDir, "uploads"))
	p.ReadersCSV = cleanOr(p.ReadersCSV, filepath.Join(p.DataDir, "readers_Accounts.csv"))
	p.Database = cleanOr(p.Database, filepath.Join(p.DataDir, "penx.db"))
	p.EngagementDB = cleanOr(p.EngagementDB, filepath.Join(p.DataDir, "engagement.db"))
	p.SearchIndex = cleanOr(p.SearchIndex, filepath.Join(p.DataDir, "books.bleve"))
	p.LegacyFavorites = cleanOr(p.LegacyFavorites, filepath.Join(p.DataDir, "favorites"))
	p.LegacyReads = cleanOr(p.LegacyReads, filepath.Join(p.DataDir, "reads.json"))
}

func cleanOr(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = fallback
	}
	return filepath.Clean(value)
}
