package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/mcp-fleet/pkg/config"
	"github.com/JamesPrial/mcp-fleet/pkg/errors"
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name     string
		backend  string
		wantName string
	}{
		{name: "json file", backend: config.StorageJSONFile, wantName: BackendJSONFile},
		{name: "directory alias", backend: config.StorageDirectory, wantName: BackendJSONFile},
		{name: "default", backend: "", wantName: BackendJSONFile},
		{name: "memory", backend: config.StorageMemory, wantName: BackendMemory},
		{name: "sqlite", backend: config.StorageSqlite, wantName: BackendSqlite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "memry")
			cfg := &config.StorageSettings{Backend: tt.backend, CreateDirs: true}

			b, err := NewBackend[note](cfg, dir, "memories", quietLogger())
			require.NoError(t, err)
			defer b.Close()
			assert.Equal(t, tt.wantName, b.Name())
		})
	}
}

func TestNewBackend_SqliteFileLocation(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.StorageSettings{Backend: config.StorageSqlite, CreateDirs: true}

	b, err := NewBackend[note](cfg, dir, "tides", quietLogger())
	require.NoError(t, err)
	defer b.Close()

	_, err = os.Stat(filepath.Join(dir, "tides.db"))
	assert.NoError(t, err)
}

func TestNewBackend_Errors(t *testing.T) {
	_, err := NewBackend[note](nil, t.TempDir(), "notes")
	assert.EqualError(t, err, "configuration cannot be nil")

	_, err = NewBackend[note](&config.StorageSettings{Backend: "mongo"}, t.TempDir(), "notes")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
	assert.Contains(t, err.Error(), "unsupported storage type: mongo")

	_, err = NewBackend[note](&config.StorageSettings{Backend: config.StorageJSONFile, CreateDirs: true}, "", "notes")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfiguration))
}

func TestNewBackend_CreateDirsDisabled(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")
	cfg := &config.StorageSettings{Backend: config.StorageJSONFile, CreateDirs: false}

	_, err := NewBackend[note](cfg, missing, "notes", quietLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeStorageInitialization))
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewBackend[note](cfg, file, "notes", quietLogger())
	require.Error(t, err)

	existing := t.TempDir()
	b, err := NewBackend[note](cfg, existing, "notes", quietLogger())
	require.NoError(t, err)
	assert.Equal(t, BackendJSONFile, b.Name())
}

func TestNewBackend_BackupFromConfig(t *testing.T) {
	cfg := &config.StorageSettings{Backend: config.StorageJSONFile, CreateDirs: true, Backup: true}
	b, err := NewBackend[note](cfg, t.TempDir(), "notes", quietLogger())
	require.NoError(t, err)

	jsonBackend, ok := b.(*JSONFileBackend[note])
	require.True(t, ok)
	assert.True(t, jsonBackend.backup)
}
