package config

const (
	defaultAddr            = ":5000"
	defaultMaxUploadBytes  = 5 * 1024 * 1024
	defaultDataDir         = "./data"
	defaultBooksDir        = "./public/Books"
	defaultImagesDir       = "./public/images"
	defaultJWTSecret       = "your-secret-key"
	defaultTokenTTLHours   = 24
	defaultBcryptCost      = 10
	defaultLegacyReaderKey = "default_secret_key_1234567890123456"
	defaultAdminUsername   = "admin"
	defaultInstitutionName = "PenX Institution"
	defaultReindexSchedule = "@every 15m"
	defaultRetryAttempts   = 5
	defaultRetryDelayMS    = 100
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
)

// Default returns a Config populated with repository defaults. Store paths
// left empty are derived from DataDir during normalization.
func Default() Config {
	return Config{
		Server: Server{
			Addr:           defaultAddr,
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Paths: Paths{
			DataDir:   defaultDataDir,
			BooksDir:  defaultBooksDir,
			ImagesDir: defaultImagesDir,
		},
		Auth: Auth{
			JWTSecret:       defaultJWTSecret,
			TokenTTLHours:   defaultTokenTTLHours,
			BcryptCost:      defaultBcryptCost,
			LegacyReaderKey: defaultLegacyReaderKey,
		},
		Admin:       Admin{Username: defaultAdminUsername},
		Institution: Institution{Name: defaultInstitutionName},
		Search: Search{
			Enabled:         true,
			ReindexSchedule: defaultReindexSchedule,
		},
		Retry: Retry{
			Attempts: defaultRetryAttempts,
			DelayMS:  defaultRetryDelayMS,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
