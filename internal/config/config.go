// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"pkt.systems/pslog"
)

// Storage backends.
const (
	BackendFront = "front"
	BackendS3    = "s3"
)

const defaultJWTSecret = "change_me_in_production"

// Config holds all runtime configuration for the service.
type Config struct {
	DatabaseURL string // optional; the upload ledger is disabled when empty
	JWTSecret   string
	Port        string
	AppEnv      string
	LogLevel    string

	// Platform account and workspace the uploads belong to.
	HulyURL         string
	HulyAccountsURL string
	HulyWorkspace   string
	HulyEmail       string
	HulyPassword    string
	HulyToken       string

	StorageBackend string

	// Object storage (S3-compatible: MinIO locally, ArvanCloud in production)
	StorageEndpoint   string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageBucket     string
	StorageUseSSL     bool
	StoragePublicRead bool
	StoragePublicBase string // browser-accessible base URL, e.g. "http://localhost:9000/uploads"

	AllowLocalPaths bool
	FetchTimeout    time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load(logger pslog.Logger) (*Config, error) {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	if err := godotenv.Load(); err != nil {
		logger.Debug("config.dotenv.missing", "detail", "reading from environment")
	}

	useSSL, err := getBool("STORAGE_USE_SSL", false)
	if err != nil {
		return nil, err
	}
	publicRead, err := getBool("STORAGE_PUBLIC_READ", false)
	if err != nil {
		return nil, err
	}
	allowLocal, err := getBool("UPLOAD_ALLOW_LOCAL_PATHS", false)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := getDuration("FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", defaultJWTSecret),
		Port:        getEnv("PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		HulyURL:         getEnv("HULY_URL", ""),
		HulyAccountsURL: getEnv("HULY_ACCOUNTS_URL", ""),
		HulyWorkspace:   getEnv("HULY_WORKSPACE", ""),
		HulyEmail:       getEnv("HULY_EMAIL", ""),
		HulyPassword:    getEnv("HULY_PASSWORD", ""),
		HulyToken:       getEnv("HULY_TOKEN", ""),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", BackendFront)),

		StorageEndpoint:   getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:  getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
		StorageSecretKey:  getEnv("STORAGE_SECRET_KEY", "minioadmin"),
		StorageBucket:     getEnv("STORAGE_BUCKET", "uploads"),
		StorageUseSSL:     useSSL,
		StoragePublicRead: publicRead,
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", "http://localhost:9000/uploads"),

		AllowLocalPaths: allowLocal,
		FetchTimeout:    fetchTimeout,
	}, nil
}

// Validate checks that the selected storage backend has what it needs to
// connect. It does not contact anything.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case BackendFront:
		if c.HulyURL == "" {
			errs = append(errs, errors.New("HULY_URL is required for the front backend"))
		}
		if c.HulyToken == "" {
			if c.HulyEmail == "" || c.HulyPassword == "" {
				errs = append(errs, errors.New("HULY_TOKEN or HULY_EMAIL and HULY_PASSWORD are required"))
			}
			if c.HulyAccountsURL == "" {
				errs = append(errs, errors.New("HULY_ACCOUNTS_URL is required for password login"))
			}
			if c.HulyWorkspace == "" {
				errs = append(errs, errors.New("HULY_WORKSPACE is required for password login"))
			}
		}
	case BackendS3:
		if c.StorageEndpoint == "" || c.StorageBucket == "" {
			errs = append(errs, errors.New("STORAGE_ENDPOINT and STORAGE_BUCKET are required for the s3 backend"))
		}
		if c.HulyWorkspace == "" {
			errs = append(errs, errors.New("HULY_WORKSPACE is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	return errors.Join(errs...)
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
