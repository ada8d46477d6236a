// Package storage provides the durable key-value storage used to keep the user's session between runs.
//
// Only two entries are stored: the auth token and the JSON session record. Both are always written
// with a single SetAll call and removed with a single Delete call so a backend never holds one without the other.
package storage

import (
	"context"
	"fmt"
)

// Store is a durable string key-value store. Missing keys are reported by Get as ("", false, nil).
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)

	// SetAll writes all values atomically
	SetAll(ctx context.Context, values map[string]string) error

	// Delete removes the keys, missing keys are ignored
	Delete(ctx context.Context, keys ...string) error

	Close() error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var validBackends = map[string]bool{
	BackendFile:   true,
	BackendSQLite: true,
	BackendRedis:  true,
	BackendMemory: true,
}

// ValidBackend reports whether name is a known backend
func ValidBackend(name string) bool {
	return validBackends[name]
}

// Keys are the namespaced storage keys for the session entries
type Keys struct {
	Token   string
	Session string
}

// DefaultPrefix namespaces the storage keys
const DefaultPrefix = "tukey_"

// KeysWithPrefix returns the session keys namespaced with prefix
func KeysWithPrefix(prefix string) Keys {
	return Keys{
		Token:   prefix + "auth_token",
		Session: prefix + "user",
	}
}

// Options selects and configures a backend
type Options struct {
	Backend  string
	Path     string // file and sqlite backends
	RedisURL string
}

// Open creates the store for the configured backend
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendFile:
		return NewFileStore(opts.Path)
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.Path)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisURL)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
