package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/JamesPrial/mcp-fleet/pkg/config"
	"github.com/JamesPrial/mcp-fleet/pkg/errors"
)

// NewBackend creates the configured backend for one entity type. dir is the
// storage root of the owning server; table names the sqlite table and
// database file.
func NewBackend[T Entity](cfg *config.StorageSettings, dir, table string, opts ...BackendOption) (Backend[T], error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	switch cfg.Backend {
	case config.StorageJSONFile, config.StorageDirectory, "":
		if err := ensureDir(cfg, dir); err != nil {
			return nil, err
		}
		backend, err := NewJSONFileBackend[T](dir, append(opts, WithBackup(cfg.Backup))...)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.StorageSqlite:
		if err := ensureDir(cfg, dir); err != nil {
			return nil, err
		}
		backend, err := NewSqliteBackend[T](filepath.Join(dir, table+".db"), table, cfg.Sqlite.WALMode, opts...)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.StorageMemory:
		return NewMemoryBackend[T](opts...), nil
	default:
		return nil, errors.Newf(errors.ErrCodeConfiguration, "unsupported storage type: %s", cfg.Backend)
	}
}

// ensureDir requires dir to exist unless directory creation is enabled.
func ensureDir(cfg *config.StorageSettings, dir string) error {
	if dir == "" {
		return errors.New(errors.ErrCodeConfiguration, "storage path is required")
	}
	if cfg.CreateDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, errors.ErrCodeStorageInitialization, "failed to create %s", dir)
		}
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageInitialization, "storage directory %s is not available", dir)
	}
	if !info.IsDir() {
		return errors.Newf(errors.ErrCodeStorageInitialization, "storage path %s is not a directory", dir)
	}
	return nil
}
