package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JamesPrial/mcp-fleet/pkg/logging"
)

// Storage backend names
const (
	StorageJSONFile  = "json_file"
	StorageDirectory = "directory" // alias of json_file
	StorageMemory    = "memory"
	StorageSqlite    = "sqlite"
)

// ID generation strategies
const (
	IDStrategyDefault   = "default"
	IDStrategyTimestamp = "timestamp"
	IDStrategyUUID      = "uuid"
)

// Transport names
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

type Settings struct {
	Storage   StorageSettings   `yaml:"storage"`
	Transport TransportSettings `yaml:"transport"`
	Admin     AdminSettings     `yaml:"admin"`
	Logging   logging.Config    `yaml:"logging"`
	Memry     ServerSettings    `yaml:"memry"`
	Tides     ServerSettings    `yaml:"tides"`
}

type StorageSettings struct {
	Backend    string         `yaml:"backend"`
	Path       string         `yaml:"path"`
	CreateDirs bool           `yaml:"createDirs"`
	Backup     bool           `yaml:"backup"`
	IDStrategy string         `yaml:"idStrategy"`
	Sqlite     SqliteSettings `yaml:"sqlite"`
}

type SqliteSettings struct {
	WALMode bool `yaml:"walMode"`
}

type TransportSettings struct {
	Type         string   `yaml:"type"`
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	ReadTimeout  int      `yaml:"readTimeout"`  // seconds
	WriteTimeout int      `yaml:"writeTimeout"` // seconds
	EnableCORS   bool     `yaml:"enableCors"`
	CORSOrigins  []string `yaml:"corsOrigins"`
	MaxBodyBytes int64    `yaml:"maxBodyBytes"`
}

type AdminSettings struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ServerSettings holds per-server overrides
type ServerSettings struct {
	StoragePath string `yaml:"storagePath"`
}

// Default returns settings with every field at its default
func Default() *Settings {
	return &Settings{
		Storage: StorageSettings{
			Backend:    StorageJSONFile,
			Path:       "./data",
			CreateDirs: true,
			IDStrategy: IDStrategyDefault,
		},
		Transport: TransportSettings{
			Type:         TransportStdio,
			Host:         "localhost",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			MaxBodyBytes: 1 << 20,
		},
		Admin: AdminSettings{
			Addr: "localhost:9090",
		},
		Logging: *logging.DefaultConfig(),
	}
}

// Validate validates the configuration settings
func (s *Settings) Validate() error {
	backend := strings.ToLower(strings.TrimSpace(s.Storage.Backend))
	switch backend {
	case "", StorageJSONFile, StorageDirectory:
		s.Storage.Backend = StorageJSONFile
	case StorageMemory, StorageSqlite:
		s.Storage.Backend = backend
	default:
		return fmt.Errorf("storage.backend must be one of [json_file, directory, memory, sqlite], got '%s'", s.Storage.Backend)
	}

	if s.Storage.Backend != StorageMemory && strings.TrimSpace(s.Storage.Path) == "" {
		return fmt.Errorf("storage.path cannot be empty when storage.backend is %s", s.Storage.Backend)
	}

	strategy := strings.ToLower(strings.TrimSpace(s.Storage.IDStrategy))
	switch strategy {
	case "":
		s.Storage.IDStrategy = IDStrategyDefault
	case IDStrategyDefault, IDStrategyTimestamp, IDStrategyUUID:
		s.Storage.IDStrategy = strategy
	default:
		return fmt.Errorf("storage.idStrategy must be one of [default, timestamp, uuid], got '%s'", s.Storage.IDStrategy)
	}

	transportType := strings.ToLower(strings.TrimSpace(s.Transport.Type))
	switch transportType {
	case "":
		s.Transport.Type = TransportStdio
	case TransportStdio, TransportHTTP:
		s.Transport.Type = transportType
	default:
		return fmt.Errorf("transport.type must be one of [stdio, http], got '%s'", s.Transport.Type)
	}

	if s.Transport.Port < 0 || s.Transport.Port > 65535 {
		return fmt.Errorf("transport.port must be between 0 and 65535, got %d", s.Transport.Port)
	}
	if s.Transport.ReadTimeout < 0 || s.Transport.WriteTimeout < 0 {
		return fmt.Errorf("transport timeouts cannot be negative")
	}

	if s.Admin.Enabled && strings.TrimSpace(s.Admin.Addr) == "" {
		return fmt.Errorf("admin.addr cannot be empty when admin is enabled")
	}

	if err := s.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}

// StoragePathFor returns the storage root of one server. An explicit
// per-server path wins; otherwise servers get a subdirectory of storage.path.
func (s *Settings) StoragePathFor(server string) string {
	var explicit string
	switch server {
	case "memry":
		explicit = s.Memry.StoragePath
	case "tides":
		explicit = s.Tides.StoragePath
	}
	if explicit != "" {
		return expandHome(explicit)
	}
	return filepath.Join(expandHome(s.Storage.Path), server)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (*Settings, error) {
	settings := Default()

	if path != "" {
		bytes, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(bytes, settings); err != nil {
			return nil, err
		}
	}

	if err := settings.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// LoadEnv loads .env style files into the process environment. Missing
// files are ignored; variables already set are never overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides settings from STORAGE_*, MCP_*, LOG_LEVEL and the
// per-server *_STORAGE_PATH variables.
func (s *Settings) ApplyEnv(lookup LookupFunc) error {
	if v, ok := lookup("STORAGE_BACKEND_TYPE"); ok {
		s.Storage.Backend = v
	}
	if v, ok := lookup("STORAGE_PATH"); ok {
		s.Storage.Path = v
	}
	if v, ok := lookup("STORAGE_CREATE_DIRS"); ok {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("STORAGE_CREATE_DIRS: %w", err)
		}
		s.Storage.CreateDirs = b
	}
	if v, ok := lookup("STORAGE_BACKUP"); ok {
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("STORAGE_BACKUP: %w", err)
		}
		s.Storage.Backup = b
	}
	if v, ok := lookup("STORAGE_ID_STRATEGY"); ok {
		s.Storage.IDStrategy = v
	}
	if v, ok := lookup("MEMRY_STORAGE_PATH"); ok {
		s.Memry.StoragePath = v
	}
	if v, ok := lookup("TIDES_STORAGE_PATH"); ok {
		s.Tides.StoragePath = v
	}
	if v, ok := lookup("MCP_TRANSPORT"); ok {
		s.Transport.Type = v
	}
	if v, ok := lookup("MCP_HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MCP_HTTP_PORT: %w", err)
		}
		s.Transport.Port = port
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		s.Logging.Level = logging.LogLevel(v)
	}
	return nil
}

// parseBool accepts the spellings people put in .env files
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", v)
	}
}
