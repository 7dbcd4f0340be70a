// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the contact pipeline
type Config struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Vault      VaultConfig      `json:"vault"`
	Audience   AudienceConfig   `json:"audience"`
	FileSource FileSourceConfig `json:"file_source"`
	Pipeline   PipelineConfig   `json:"pipeline"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	EnableMetrics   bool          `json:"enable_metrics"`
	TrustedProxies  []string      `json:"trusted_proxies"`
	ProxyHeader     string        `json:"proxy_header"`
}

type LoggingConfig struct {
	Level    string `json:"level"`  // debug, info, warn, error
	Format   string `json:"format"` // json, text
	Output   string `json:"output"` // stdout, file, both
	FilePath string `json:"file_path"`
	MaxSize  int    `json:"max_size"` // MB
	MaxAge   int    `json:"max_age"`  // days

	MaxBackups int  `json:"max_backups"`
	Compress   bool `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled"`
	Provider    string        `json:"provider"` // redis, memory
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	DefaultTTL  time.Duration `json:"default_ttl"`
}

// VaultConfig configures the credential vault key derivation.
type VaultConfig struct {
	MasterSecret string `json:"-"`
	Salt         string `json:"-"`
}

// AudienceConfig configures the external audience platform client.
type AudienceConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// FileSourceConfig configures the contact list drop service client.
type FileSourceConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// PipelineConfig tunes the reconciliation and sync pipeline.
type PipelineConfig struct {
	Interval         time.Duration `json:"interval"`
	RetentionDays    int           `json:"retention_days"`
	BulkThreshold    int           `json:"bulk_threshold"`
	OverwriteOnMatch bool          `json:"overwrite_on_match"`
	RunLogPath       string        `json:"run_log_path"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// LoadConfig loads configuration from the environment, with .env overrides.
func LoadConfig() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "listflow"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 32*1024*1024), // uploads can be large
			EnableMetrics:   getEnvBool("SERVER_ENABLE_METRICS", true),
			TrustedProxies:  getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Format:     getEnvString("LOG_FORMAT", "json"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/listflow/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", true),
			Provider:    getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "listflow:"),
			DefaultTTL:  getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Vault: VaultConfig{
			MasterSecret: getEnvString("VAULT_MASTER_SECRET", ""),
			Salt:         getEnvString("VAULT_SALT", ""),
		},
		Audience: AudienceConfig{
			BaseURL: getEnvString("AUDIENCE_BASE_URL", "https://graph.facebook.com/v18.0"),
			Timeout: getEnvDuration("AUDIENCE_TIMEOUT", 30*time.Second),
		},
		FileSource: FileSourceConfig{
			BaseURL: getEnvString("FILE_SOURCE_BASE_URL", ""),
			Timeout: getEnvDuration("FILE_SOURCE_TIMEOUT", 60*time.Second),
		},
		Pipeline: PipelineConfig{
			Interval:         getEnvDuration("PIPELINE_INTERVAL", 24*time.Hour),
			RetentionDays:    getEnvInt("PIPELINE_RETENTION_DAYS", 30),
			BulkThreshold:    getEnvInt("PIPELINE_BULK_THRESHOLD", 100),
			OverwriteOnMatch: getEnvBool("PIPELINE_OVERWRITE_ON_MATCH", false),
			RunLogPath:       getEnvString("PIPELINE_RUN_LOG_PATH", "data/pipeline.log"),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Set environment variable if not already set
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func ValidateConfig(cfg *Config) error {
	var errors []string

	if cfg.Database.Host == "" {
		errors = append(errors, "database host is required")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "database name is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "database user is required")
	}
	if cfg.Deployment.Environment == "production" && cfg.Database.Password == "" {
		errors = append(errors, "database password is required in production")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "server port must be between 1 and 65535")
	}

	if cfg.Deployment.Environment == "production" {
		if cfg.Vault.MasterSecret == "" {
			errors = append(errors, "vault master secret is required in production")
		}
		if cfg.Vault.Salt == "" {
			errors = append(errors, "vault salt is required in production")
		}
	}

	if cfg.Audience.BaseURL == "" {
		errors = append(errors, "audience base url is required")
	}

	if cfg.Pipeline.Interval < time.Minute {
		errors = append(errors, "pipeline interval must be at least one minute")
	}
	if cfg.Pipeline.RetentionDays <= 0 {
		errors = append(errors, "pipeline retention days must be positive")
	}
	if cfg.Pipeline.BulkThreshold <= 0 {
		errors = append(errors, "pipeline bulk threshold must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}
	return nil
}
