// Package storage provides the durable key-value store holding the
// persisted session token, user and theme.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Keys persisted by the application. Nothing else is written.
const (
	KeyToken = "token"
	KeyUser  = "user"
	KeyTheme = "theme"
)

// Storage is a durable string key-value store.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key; removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a driver.
type Options struct {
	Driver    string
	Path      string
	RedisURL  string
	Namespace string
}

// Open builds the Storage selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Driver {
	case "memory":
		return NewMemory(), nil
	case "file", "":
		path := opts.Path
		if path == "" {
			var err error
			if path, err = DefaultPath("storage.json"); err != nil {
				return nil, err
			}
		}
		return OpenFile(path)
	case "sqlite":
		path := opts.Path
		if path == "" {
			var err error
			if path, err = DefaultPath("storage.db"); err != nil {
				return nil, err
			}
		}
		return OpenSQLite(path)
	case "redis":
		return OpenRedis(ctx, opts.RedisURL, opts.Namespace)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

// DefaultPath returns name inside ~/.blogdesk.
func DefaultPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".blogdesk", name), nil
}
