package backend

import (
	"context"
	"errors"
	"fmt"
)

// Backend persists named structured documents.
//
// Load decodes the document stored under name into out. It reports found=false
// with a nil error when nothing has been stored yet, so callers can start from an
// empty document. Save replaces the document atomically: a reader never observes
// a partially written value.
type Backend interface {
	Load(ctx context.Context, name string, out any) (found bool, err error)
	Save(ctx context.Context, name string, v any) error

	// Name identifies the backend in logs
	Name() string
}

// Closer is implemented by backends holding connections
type Closer interface {
	Close() error
}

var (
	// ErrUnknownType is returned by New for an unsupported backend type
	ErrUnknownType = errors.New("backend: unknown type")

	// ErrDecode is wrapped when a stored document cannot be parsed
	ErrDecode = errors.New("backend: malformed document")
)

// Backend types accepted by Config.Type
const (
	TypeFile   = "file"
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeS3     = "s3"
	TypeSQL    = "sql"
)

// Config selects and configures a backend
type Config struct {
	Type string `envconfig:"TYPE" default:"file" validate:"oneof=file memory redis s3 sql"`

	// File backend: document names are paths relative to Root
	Root string `envconfig:"ROOT" default:"."`

	// Redis backend
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisPrefix string `envconfig:"REDIS_PREFIX" default:"permgate:"`

	// S3 backend
	S3Bucket       string `envconfig:"S3_BUCKET" validate:"required_if=Type s3"`
	S3Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3Prefix       string `envconfig:"S3_PREFIX"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey    string `envconfig:"S3_SECRET_KEY"`
	S3UsePathStyle bool   `envconfig:"S3_USE_PATH_STYLE"`

	// SQL backend
	SQLDriver string `envconfig:"SQL_DRIVER" default:"sqlite3" validate:"omitempty,oneof=postgres sqlite3"`
	SQLDSN    string `envconfig:"SQL_DSN" default:"permgate.db"`
}

// DefaultConfig returns a file backend rooted at the working directory
func DefaultConfig() Config {
	return Config{
		Type:        TypeFile,
		Root:        ".",
		RedisURL:    "redis://localhost:6379/0",
		RedisPrefix: "permgate:",
		S3Region:    "us-east-1",
		SQLDriver:   "sqlite3",
		SQLDSN:      "permgate.db",
	}
}

// New builds the backend selected by cfg.Type
func New(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Type {
	case TypeFile, "":
		return NewFileBackend(cfg.Root), nil
	case TypeMemory:
		return NewMemoryBackend(), nil
	case TypeRedis:
		return NewRedisBackend(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case TypeS3:
		return NewS3Backend(ctx, cfg)
	case TypeSQL:
		return OpenSQLBackend(ctx, cfg.SQLDriver, cfg.SQLDSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}

// Close releases backend resources when the backend holds any
func Close(b Backend) error {
	if c, ok := b.(Closer); ok {
		return c.Close()
	}
	return nil
}
