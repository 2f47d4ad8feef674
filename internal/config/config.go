package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface. The
// remote backend, media upload endpoint and Sheets export are optional:
// leaving them unset degrades the app to a local-only experience.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Mongo     MongoConfig
	Sync      SyncConfig
	Media     MediaConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// StorageConfig locates the local durable store.
type StorageConfig struct {
	Path string
}

// MongoConfig holds settings for the remote MongoDB backend. An empty URI
// disables remote sync entirely.
type MongoConfig struct {
	URI    string
	DBName string
}

// SyncConfig carries the externally-resolved user identity. Empty UserID
// means no identity: local-only mode, no subscriptions.
type SyncConfig struct {
	UserID string
	Email  string
}

// MediaConfig configures the photo upload endpoint.
type MediaConfig struct {
	UploadURL string
	Token     string
}

// SheetsConfig contains configuration required for the weekly summary
// export to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	SummaryRange    string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// Load reads environment variables (optionally from the provided file)
// and materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes
		// from the environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Storage: StorageConfig{
			Path: getenvWithDefault("LOCAL_STORE_PATH", "babyrons.db"),
		},
		Mongo: MongoConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "babyrons"),
		},
		Sync: SyncConfig{
			UserID: os.Getenv("SYNC_USER_ID"),
			Email:  os.Getenv("SYNC_USER_EMAIL"),
		},
		Media: MediaConfig{
			UploadURL: os.Getenv("MEDIA_UPLOAD_URL"),
			Token:     os.Getenv("MEDIA_UPLOAD_TOKEN"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_SUMMARY_ID"),
			SummaryRange:    getenvWithDefault("GOOGLE_SHEET_SUMMARY_RANGE", "Summary!A:H"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("SUMMARY_CRON_SCHEDULE", "0 20 * * 0"),
			Timezone:     getenvWithDefault("TIMEZONE", "Europe/Paris"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.Storage.Path == "" {
		return errors.New("LOCAL_STORE_PATH must be provided")
	}

	if c.Mongo.URI != "" && c.Mongo.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided when MONGODB_URI is set")
	}

	if c.Sheets.SpreadsheetID != "" {
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when GOOGLE_SHEET_SUMMARY_ID is set")
		}
		if c.Reporting.CronSchedule == "" {
			return errors.New("SUMMARY_CRON_SCHEDULE must be provided")
		}
	}

	return nil
}

// RemoteEnabled reports whether a remote backend is configured.
func (c *Config) RemoteEnabled() bool {
	return c.Mongo.URI != ""
}

// SheetsEnabled reports whether the weekly summary export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath != ""
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
