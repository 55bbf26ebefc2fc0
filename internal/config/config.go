// Package config provides configuration loading and validation for the
// session manager. It uses koanf to merge environment variables with an
// optional YAML file; environment variables win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Store backend names.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Asset backend names.
const (
	AssetsLocal = "local"
	AssetsS3    = "s3"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Document store
	StoreBackend string `koanf:"store_backend"`
	DataFile     string `koanf:"data_file"`
	RedisAddr    string `koanf:"redis_addr"`
	RedisKey     string `koanf:"redis_key"`
	DatabaseURL  string `koanf:"database_url"`

	// Player access tokens. TokenSecretPrevious keeps links minted under a
	// rotated-out secret working during the rotation window.
	TokenSecret         string `koanf:"token_secret"`
	TokenSecretPrevious string `koanf:"token_secret_previous"`

	// Asset gallery
	AssetBackend    string `koanf:"asset_backend"`
	AssetsDir       string `koanf:"assets_dir"`
	S3Bucket        string `koanf:"s3_bucket"`
	S3AccessKeyID   string `koanf:"s3_access_key_id"`
	S3SecretKey     string `koanf:"s3_secret_key"`
	S3Endpoint      string `koanf:"s3_endpoint"`
	MaxUploadSizeMB int    `koanf:"max_upload_size_mb"`

	// Clients
	CORSOrigins    []string `koanf:"cors_origins"`
	PollIntervalMS int      `koanf:"poll_interval_ms"`

	// Rate limiting (0 disables)
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
}

// Configuration validation errors.
var (
	ErrInvalidPort          = errors.New("PORT must be a valid integer between 1 and 65535")
	ErrUnknownStoreBackend  = errors.New("MESA_STORE_BACKEND must be one of file, memory, redis, postgres")
	ErrMissingRedisAddr     = errors.New("REDIS_ADDR is required for the redis store backend")
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required for the postgres store backend")
	ErrUnknownAssetBackend  = errors.New("MESA_ASSET_BACKEND must be one of local, s3")
	ErrMissingS3Credentials = errors.New("S3_BUCKET, S3_ACCESS_KEY_ID and S3_SECRET_KEY are required for the s3 asset backend")
	ErrDefaultTokenSecret   = errors.New("MESA_TOKEN_SECRET must be set in production")
	ErrInvalidPollInterval  = errors.New("MESA_POLL_INTERVAL_MS must be at least 250")
)

// Default values for non-secret configuration.
const (
	DefaultPort            = 8080
	DefaultEnv             = "development"
	DefaultStoreBackend    = StoreFile
	DefaultDataFile        = "data/session.json"
	DefaultAssetBackend    = AssetsLocal
	DefaultAssetsDir       = "data/assets"
	DefaultMaxUploadSizeMB = 15
	DefaultPollIntervalMS  = 3000
	DefaultRateLimit       = 0
	// DefaultTokenSecret is only acceptable outside production; player links
	// signed with it are forgeable by anyone who reads this file.
	DefaultTokenSecret = "mesa-development-secret"
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over file values. Returns the
// loaded config and a slice of validation errors (empty if valid).
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault([]string{"MESA_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	maxUpload, uploadErr := getEnvIntOrDefault([]string{"MESA_MAX_UPLOAD_SIZE_MB"}, k.Int("max_upload_size_mb"), DefaultMaxUploadSizeMB)
	if uploadErr != nil {
		loadErrs = append(loadErrs, uploadErr)
	}

	pollInterval, pollErr := getEnvIntOrDefault([]string{"MESA_POLL_INTERVAL_MS"}, k.Int("poll_interval_ms"), DefaultPollIntervalMS)
	if pollErr != nil {
		loadErrs = append(loadErrs, pollErr)
	}

	rateLimit, rateErr := getEnvIntOrDefault([]string{"MESA_RATE_LIMIT_PER_MINUTE"}, k.Int("rate_limit_per_minute"), DefaultRateLimit)
	if rateErr != nil {
		loadErrs = append(loadErrs, rateErr)
	}

	cfg := &Config{
		Port:              port,
		Env:                 getEnvOrDefault([]string{"MESA_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		StoreBackend:        getEnvOrDefault([]string{"MESA_STORE_BACKEND"}, k.String("store_backend"), DefaultStoreBackend),
		DataFile:            getEnvOrDefault([]string{"MESA_DATA_FILE"}, k.String("data_file"), DefaultDataFile),
		RedisAddr:           getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		RedisKey:            getEnvOrKoanf("MESA_REDIS_KEY", k, "redis_key"),
		DatabaseURL:         getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		TokenSecret:         getEnvOrDefault([]string{"MESA_TOKEN_SECRET"}, k.String("token_secret"), DefaultTokenSecret),
		TokenSecretPrevious: getEnvOrKoanf("MESA_TOKEN_SECRET_PREVIOUS", k, "token_secret_previous"),
		AssetBackend:        getEnvOrDefault([]string{"MESA_ASSET_BACKEND"}, k.String("asset_backend"), DefaultAssetBackend),
		AssetsDir:           getEnvOrDefault([]string{"MESA_ASSETS_DIR"}, k.String("assets_dir"), DefaultAssetsDir),
		S3Bucket:            getEnvOrKoanf("S3_BUCKET", k, "s3_bucket"),
		S3AccessKeyID:       getEnvOrKoanf("S3_ACCESS_KEY_ID", k, "s3_access_key_id"),
		S3SecretKey:         getEnvOrKoanf("S3_SECRET_KEY", k, "s3_secret_key"),
		S3Endpoint:          getEnvOrKoanf("S3_ENDPOINT", k, "s3_endpoint"),
		MaxUploadSizeMB:     maxUpload,
		CORSOrigins:         corsOrigins(k),
		PollIntervalMS:      pollInterval,
		RateLimitPerMinute:  rateLimit,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)
	return cfg, errs
}

// Validate checks the configuration for consistency and returns all problems
// found (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}

	switch c.StoreBackend {
	case StoreFile, StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			errs = append(errs, ErrMissingRedisAddr)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, ErrMissingDatabaseURL)
		}
	default:
		errs = append(errs, ErrUnknownStoreBackend)
	}

	switch c.AssetBackend {
	case AssetsLocal:
	case AssetsS3:
		if c.S3Bucket == "" || c.S3AccessKeyID == "" || c.S3SecretKey == "" {
			errs = append(errs, ErrMissingS3Credentials)
		}
	default:
		errs = append(errs, ErrUnknownAssetBackend)
	}

	if c.IsProduction() && c.TokenSecret == DefaultTokenSecret {
		errs = append(errs, ErrDefaultTokenSecret)
	}

	if c.PollIntervalMS < 250 {
		errs = append(errs, ErrInvalidPollInterval)
	}

	return errs
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LogSummary returns a summary of the configuration suitable for logging.
// Secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                  fmt.Sprintf("%d", c.Port),
		"env":                   c.Env,
		"store_backend":         c.StoreBackend,
		"data_file":             c.DataFile,
		"redis_addr":            c.RedisAddr,
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"token_secret":          maskSecret(c.TokenSecret),
		"token_secret_previous": maskSecret(c.TokenSecretPrevious),
		"asset_backend":         c.AssetBackend,
		"assets_dir":            c.AssetsDir,
		"s3_bucket":             c.S3Bucket,
		"s3_access_key_id":      maskSecret(c.S3AccessKeyID),
		"s3_secret_key":         maskSecret(c.S3SecretKey),
		"s3_endpoint":           c.S3Endpoint,
		"max_upload_size_mb":    fmt.Sprintf("%d", c.MaxUploadSizeMB),
		"cors_origins":          strings.Join(c.CORSOrigins, ","),
		"poll_interval_ms":      fmt.Sprintf("%d", c.PollIntervalMS),
		"rate_limit_per_minute": fmt.Sprintf("%d", c.RateLimitPerMinute),
	}
}

// corsOrigins reads the origin allowlist from MESA_CORS_ORIGINS (comma
// separated) or the config file list.
func corsOrigins(k *koanf.Koanf) []string {
	if val := os.Getenv("MESA_CORS_ORIGINS"); val != "" {
		parts := strings.Split(val, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		return origins
	}
	return k.Strings("cors_origins")
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the
// koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault tries the environment variable keys in order, then the
// koanf value, then the default.
func getEnvOrDefault(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault parses an integer from the environment variable keys in
// order, falling back to the koanf value and then the default. A present but
// malformed value is reported as an error.
func getEnvIntOrDefault(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return defaultVal, fmt.Errorf("%s must be an integer, got %q", key, val)
		}
		return parsed, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// maskSecret masks a secret value, showing only the first 4 characters.
// Values shorter than 8 characters are fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a database URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}
	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s
	}
	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s
	}
	return s[:schemeEnd+3] + rest[:colonIndex] + ":****" + rest[atIndex:]
}
