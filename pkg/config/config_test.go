package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/mcp-fleet/pkg/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_Success(t *testing.T) {
	configPath := writeConfig(t, `
storage:
  backend: "sqlite"
  path: "/var/data/fleet"
  idStrategy: "uuid"
  sqlite:
    walMode: true
transport:
  type: "http"
  port: 8181
logging:
  level: "debug"
tides:
  storagePath: "/srv/tides"
`)

	cfg, err := Load(configPath)

	require.NoError(t, err)
	assert.Equal(t, StorageSqlite, cfg.Storage.Backend)
	assert.Equal(t, "/var/data/fleet", cfg.Storage.Path)
	assert.Equal(t, IDStrategyUUID, cfg.Storage.IDStrategy)
	assert.True(t, cfg.Storage.Sqlite.WALMode)
	assert.Equal(t, TransportHTTP, cfg.Transport.Type)
	assert.Equal(t, 8181, cfg.Transport.Port)
	assert.Equal(t, logging.LogLevelDebug, cfg.Logging.Level)

	// untouched fields keep their defaults
	assert.True(t, cfg.Storage.CreateDirs)
	assert.Equal(t, "localhost", cfg.Transport.Host)
	assert.Equal(t, logging.LogOutputStderr, cfg.Logging.Output)

	assert.Equal(t, "/srv/tides", cfg.StoragePathFor("tides"))
	assert.Equal(t, filepath.Join("/var/data/fleet", "memry"), cfg.StoragePathFor("memry"))
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StorageJSONFile, cfg.Storage.Backend)
	assert.Equal(t, "./data", cfg.Storage.Path)
	assert.Equal(t, TransportStdio, cfg.Transport.Type)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("non_existent_file.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, `[invalid yaml - unclosed bracket`))
	assert.Error(t, err)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unsupported backend",
			content: "storage:\n  backend: \"mongo\"\n",
			wantErr: "storage.backend must be one of [json_file, directory, memory, sqlite], got 'mongo'",
		},
		{
			name:    "empty path for file backend",
			content: "storage:\n  backend: \"json_file\"\n  path: \"  \"\n",
			wantErr: "storage.path cannot be empty",
		},
		{
			name:    "unknown id strategy",
			content: "storage:\n  idStrategy: \"snowflake\"\n",
			wantErr: "storage.idStrategy must be one of",
		},
		{
			name:    "unsupported transport",
			content: "transport:\n  type: \"websocket\"\n",
			wantErr: "transport.type must be one of [stdio, http]",
		},
		{
			name:    "port too high",
			content: "transport:\n  port: 65536\n",
			wantErr: "transport.port must be between 0 and 65535, got 65536",
		},
		{
			name:    "negative timeout",
			content: "transport:\n  readTimeout: -1\n",
			wantErr: "transport timeouts cannot be negative",
		},
		{
			name:    "admin without address",
			content: "admin:\n  enabled: true\n  addr: \"\"\n",
			wantErr: "admin.addr cannot be empty",
		},
		{
			name:    "invalid log level",
			content: "logging:\n  level: \"loud\"\n",
			wantErr: "logging: invalid log level: loud",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_Normalizes(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "Directory"
	cfg.Storage.IDStrategy = "TIMESTAMP"
	cfg.Transport.Type = "HTTP"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, StorageJSONFile, cfg.Storage.Backend)
	assert.Equal(t, IDStrategyTimestamp, cfg.Storage.IDStrategy)
	assert.Equal(t, TransportHTTP, cfg.Transport.Type)
}

func TestValidate_MemoryBackendNeedsNoPath(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = StorageMemory
	cfg.Storage.Path = ""
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"STORAGE_BACKEND_TYPE": "memory",
		"STORAGE_PATH":         "/tmp/fleet",
		"STORAGE_CREATE_DIRS":  "false",
		"STORAGE_BACKUP":       "yes",
		"STORAGE_ID_STRATEGY":  "uuid",
		"MEMRY_STORAGE_PATH":   "/tmp/memories",
		"TIDES_STORAGE_PATH":   "/tmp/tides",
		"MCP_TRANSPORT":        "http",
		"MCP_HTTP_PORT":        "9000",
		"LOG_LEVEL":            "warn",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/fleet", cfg.Storage.Path)
	assert.False(t, cfg.Storage.CreateDirs)
	assert.True(t, cfg.Storage.Backup)
	assert.Equal(t, IDStrategyUUID, cfg.Storage.IDStrategy)
	assert.Equal(t, "/tmp/memories", cfg.StoragePathFor("memry"))
	assert.Equal(t, "/tmp/tides", cfg.StoragePathFor("tides"))
	assert.Equal(t, TransportHTTP, cfg.Transport.Type)
	assert.Equal(t, 9000, cfg.Transport.Port)
	assert.Equal(t, logging.LogLevelWarn, cfg.Logging.Level)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"STORAGE_CREATE_DIRS": "maybe",
		"STORAGE_BACKUP":      "perhaps",
		"MCP_HTTP_PORT":       "eighty",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyEnv(func(k string) (string, bool) {
				if k == key {
					return value, true
				}
				return "", false
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("STORAGE_PATH", "/from/env")
	cfg, err := Load(writeConfig(t, "storage:\n  path: \"/from/file\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Storage.Path)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FLEET_TEST_DOTENV=loaded\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("FLEET_TEST_DOTENV") })

	require.NoError(t, LoadEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("FLEET_TEST_DOTENV"))

	// existing variables win over the file
	t.Setenv("FLEET_TEST_DOTENV", "preset")
	require.NoError(t, LoadEnv(envFile))
	assert.Equal(t, "preset", os.Getenv("FLEET_TEST_DOTENV"))
}

func TestStoragePathFor_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := Default()
	cfg.Memry.StoragePath = "~/Documents/memry"
	assert.Equal(t, filepath.Join(home, "Documents/memry"), cfg.StoragePathFor("memry"))
}
