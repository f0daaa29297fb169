package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/clinicdesk/clinic/internal/platform/storage"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFile        string        `mapstructure:"LOG_FILE"`
	LogFileMaxMB   int           `mapstructure:"LOG_FILE_MAX_MB"`
	LogFileBackups int           `mapstructure:"LOG_FILE_BACKUPS"`
	LogFileMaxDays int           `mapstructure:"LOG_FILE_MAX_DAYS"`
	StoreBackend   string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	MongoURI       string        `mapstructure:"MONGO_URI"`
	MongoDatabase  string        `mapstructure:"MONGO_DATABASE"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	CardAllocator  string        `mapstructure:"CARD_ALLOCATOR"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string        `mapstructure:"AUTH_JWKS_URL"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

var envKeys = []string{
	"PORT", "ENV", "LOG_LEVEL", "STORE_BACKEND",
	"LOG_FILE", "LOG_FILE_MAX_MB", "LOG_FILE_BACKUPS", "LOG_FILE_MAX_DAYS",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"MONGO_URI", "MONGO_DATABASE", "REDIS_URL", "CARD_ALLOCATOR",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_JWKS_URL",
	"CORS_ORIGINS", "REQUEST_TIMEOUT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE_MAX_MB", 100)
	v.SetDefault("LOG_FILE_BACKUPS", 5)
	v.SetDefault("LOG_FILE_MAX_DAYS", 28)
	v.SetDefault("STORE_BACKEND", string(storage.BackendPostgres))
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MONGO_DATABASE", "clinic")
	v.SetDefault("CARD_ALLOCATOR", "store")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// A missing .env file is fine
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.IsDev() {
		log.Println("WARNING: development mode: every request is treated as admin. Do not expose this server.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Backend returns the parsed store backend. Validate has already vetted it.
func (c *Config) Backend() storage.Backend {
	b, _ := storage.ParseBackend(c.StoreBackend)
	return b
}

// SigningKey decodes AUTH_SIGNING_KEY; a hex string is decoded, anything else
// is used as raw bytes.
func (c *Config) SigningKey() []byte {
	if c.AuthSigningKey == "" {
		return nil
	}
	if b, err := hex.DecodeString(c.AuthSigningKey); err == nil {
		return b
	}
	return []byte(c.AuthSigningKey)
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	backend, err := storage.ParseBackend(c.StoreBackend)
	if err != nil {
		return err
	}

	switch backend {
	case storage.BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is postgres")
		}
	case storage.BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_BACKEND is mongo")
		}
	case storage.BackendMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_BACKEND=memory is not allowed in production")
		}
	}

	switch c.CardAllocator {
	case "", "store":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CARD_ALLOCATOR is redis")
		}
	default:
		return fmt.Errorf("CARD_ALLOCATOR must be \"store\" or \"redis\", got %q", c.CardAllocator)
	}

	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set outside development (ENV=%q)", c.Env)
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}

	return nil
}
