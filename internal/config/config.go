package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MongoConfig locates survey definitions and archived responses
type MongoConfig struct {
	URI      string `yaml:"uri" validate:"required"`
	Database string `yaml:"database" validate:"required"`
}

// RedisConfig locates session snapshots and the definition cache
type RedisConfig struct {
	Addr     string `yaml:"addr" validate:"required"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`

	// SessionTTL is how long an idle respondent session survives
	SessionTTL time.Duration `yaml:"session_ttl" validate:"gt=0"`

	// DefinitionTTL is how long a survey definition stays cached
	DefinitionTTL time.Duration `yaml:"definition_ttl" validate:"gt=0"`
}

// AuthConfig holds host credentials and token settings
type AuthConfig struct {
	HostUsername string `yaml:"host_username" validate:"required"`
	HostPassword string `yaml:"host_password" validate:"required"`
	JWTSecret    string `yaml:"-" validate:"required,min=16"` // Never read from or written to files

	// RespondentTokenTTL bounds how long a respondent can resume a session
	RespondentTokenTTL time.Duration `yaml:"respondent_token_ttl" validate:"gt=0"`
	HostTokenTTL       time.Duration `yaml:"host_token_ttl" validate:"gt=0"`
}

// CollaboratorConfig points at the external verification and submission services.
// Empty URLs disable remote verification and switch submission to local storage.
type CollaboratorConfig struct {
	VerifyURL  string        `yaml:"verify_url" validate:"omitempty,url"`
	SubmitURL  string        `yaml:"submit_url" validate:"omitempty,url"`
	Token      string        `yaml:"-"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=1,lte=10"`
}

// Config is the full service configuration
type Config struct {
	Port         string             `yaml:"port" validate:"required,numeric"`
	Environment  string             `yaml:"environment" validate:"oneof=development staging production"`
	LogLevel     string             `yaml:"log_level" validate:"oneof=debug info warn error"`
	CORSOrigins  string             `yaml:"cors_allowed_origins"`
	Mongo        MongoConfig        `yaml:"mongo"`
	Redis        RedisConfig        `yaml:"redis"`
	Auth         AuthConfig         `yaml:"auth"`
	Collaborator CollaboratorConfig `yaml:"collaborator"`
}

// Default returns the configuration used for local development
func Default() *Config {
	return &Config{
		Port:        "8080",
		Environment: "development",
		LogLevel:    "info",
		CORSOrigins: "*",
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "surveyflow",
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			SessionTTL:    7 * 24 * time.Hour,
			DefinitionTTL: 10 * time.Minute,
		},
		Auth: AuthConfig{
			HostUsername:       "admin",
			HostPassword:       "password123",
			JWTSecret:          "super-secret-key-change-in-production",
			RespondentTokenTTL: 7 * 24 * time.Hour,
			HostTokenTTL:       12 * time.Hour,
		},
		Collaborator: CollaboratorConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 5,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.CORSOrigins = getEnv("CORS_ALLOWED_ORIGINS", c.CORSOrigins)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)

	// Accept redis://host:port as well as host:port
	c.Redis.Addr = strings.TrimPrefix(getEnv("REDIS_URI", c.Redis.Addr), "redis://")
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)
	c.Redis.SessionTTL = getEnvDuration("SESSION_TTL", c.Redis.SessionTTL)
	c.Redis.DefinitionTTL = getEnvDuration("DEFINITION_CACHE_TTL", c.Redis.DefinitionTTL)

	c.Auth.HostUsername = getEnv("HOST_USERNAME", c.Auth.HostUsername)
	c.Auth.HostPassword = getEnv("HOST_PASSWORD", c.Auth.HostPassword)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.RespondentTokenTTL = getEnvDuration("RESPONDENT_TOKEN_TTL", c.Auth.RespondentTokenTTL)
	c.Auth.HostTokenTTL = getEnvDuration("HOST_TOKEN_TTL", c.Auth.HostTokenTTL)

	c.Collaborator.VerifyURL = getEnv("VERIFY_URL", c.Collaborator.VerifyURL)
	c.Collaborator.SubmitURL = getEnv("SUBMIT_URL", c.Collaborator.SubmitURL)
	c.Collaborator.Token = getEnv("COLLABORATOR_TOKEN", c.Collaborator.Token)
	c.Collaborator.Timeout = getEnvDuration("COLLABORATOR_TIMEOUT", c.Collaborator.Timeout)
	c.Collaborator.MaxRetries = getEnvInt("COLLABORATOR_MAX_RETRIES", c.Collaborator.MaxRetries)
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
