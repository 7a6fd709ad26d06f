// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"blogdesk/internal/models"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env              string        `mapstructure:"APP_ENV"`
	APIBaseURL       string        `mapstructure:"API_BASE_URL"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	Port             string        `mapstructure:"PORT"`
	StorageDriver    string        `mapstructure:"STORAGE_DRIVER"`
	StoragePath      string        `mapstructure:"STORAGE_PATH"`
	StorageNamespace string        `mapstructure:"STORAGE_NAMESPACE"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	Locale           string        `mapstructure:"LOCALE"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	TracingEnabled   bool          `mapstructure:"TRACING_ENABLED"`
	TracingExporter  string        `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint     string        `mapstructure:"OTLP_ENDPOINT"`
	TracingSampler   float64       `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// LoadConfig loads application configuration from .env, config.yml and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("API_BASE_URL", "http://localhost:8080/api/v1")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("PORT", "3000")
	v.SetDefault("STORAGE_DRIVER", StorageFile)
	v.SetDefault("STORAGE_PATH", "")
	v.SetDefault("STORAGE_NAMESPACE", "blogdesk")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("LOCALE", models.DefaultLocale)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

// Validate ensures that required configuration values are present and usable.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL %q is not an absolute URL", c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}

	switch c.StorageDriver {
	case StorageFile, StorageSQLite, StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis storage driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if !models.SupportedLocale(c.Locale) {
		log.Printf("WARNING: no messages for LOCALE %q, falling back to %q", c.Locale, models.DefaultLocale)
		c.Locale = models.DefaultLocale
	}

	if c.IsProduction() && u.Scheme != "https" {
		log.Println("WARNING: API_BASE_URL is not https in production. Tokens will be sent in clear text.")
	}

	return nil
}

// IsProduction reports whether APP_ENV names a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
