package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/platinummonkey/permgate/pkg/backend"
	"github.com/platinummonkey/permgate/pkg/observability"
	"github.com/platinummonkey/permgate/pkg/rbac"
)

// Prefix is prepended to every environment variable name
const Prefix = "PERMGATE"

// Config holds all application configuration
type Config struct {
	// Where the two documents live
	Backend backend.Config `envconfig:"BACKEND"`

	PermissionsDocument string `envconfig:"PERMISSIONS_DOCUMENT" default:"config/RolePermissions.yaml" validate:"required"`
	UsersDocument       string `envconfig:"USERS_DOCUMENT" default:"config/UserRegistry.yaml" validate:"required,nefield=PermissionsDocument"`

	Audit  AuditConfig              `envconfig:"AUDIT"`
	Cache  CacheConfig              `envconfig:"CACHE"`
	Log    LogConfig                `envconfig:"LOG"`
	OTel   observability.OTelConfig `envconfig:"OTEL"`
	Ops    OpsConfig                `envconfig:"OPS"`
	Reload ReloadConfig             `envconfig:"RELOAD"`
}

// AuditConfig configures the audit log file
type AuditConfig struct {
	Path     string `envconfig:"PATH" default:"rbac.log" validate:"required"`
	MaxSize  int64  `envconfig:"MAX_SIZE" default:"0" validate:"gte=0"`
	MaxFiles int    `envconfig:"MAX_FILES" default:"10" validate:"gte=0"`
	// Mirror also writes every record to the structured log
	Mirror bool `envconfig:"MIRROR" default:"false"`
}

// CacheConfig configures the resolved context cache. Size 0 disables it.
type CacheConfig struct {
	Size int           `envconfig:"SIZE" default:"1024" validate:"gte=0"`
	TTL  time.Duration `envconfig:"TTL" default:"30s" validate:"gte=0"`
}

// LogConfig configures logrus
type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `envconfig:"FORMAT" default:"text" validate:"oneof=text json"`
}

// OpsConfig configures the metrics and health server started by serve
type OpsConfig struct {
	Addr            string        `envconfig:"ADDR" default:":9090" validate:"required"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`
}

// ReloadConfig configures how serve picks up document changes
type ReloadConfig struct {
	Watch    bool          `envconfig:"WATCH" default:"true"`
	Schedule string        `envconfig:"SCHEDULE"`
	Debounce time.Duration `envconfig:"DEBOUNCE" default:"200ms" validate:"gte=0"`
}

var validate = validator.New()

// Default returns the configuration used when no variables are set
func Default() *Config {
	return &Config{
		Backend:             backend.DefaultConfig(),
		PermissionsDocument: rbac.DefaultPermissionsDocument,
		UsersDocument:       rbac.DefaultUsersDocument,
		Audit:               AuditConfig{Path: "rbac.log", MaxFiles: 10},
		Cache:               CacheConfig{Size: 1024, TTL: 30 * time.Second},
		Log:                 LogConfig{Level: "info", Format: observability.FormatText},
		OTel: observability.OTelConfig{
			Endpoint:       "localhost:4317",
			ServiceName:    "permgate",
			ServiceVersion: "dev",
			Insecure:       true,
		},
		Ops:    OpsConfig{Addr: ":9090", ShutdownTimeout: 30 * time.Second},
		Reload: ReloadConfig{Watch: true, Debounce: 200 * time.Millisecond},
	}
}

// LoadConfig loads configuration from PERMGATE_* environment variables and
// validates it
func LoadConfig() (*Config, error) {
	cfg, err := Process()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Process reads the environment without validating, for callers that apply
// overrides first
func Process() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads the given .env files into the environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
