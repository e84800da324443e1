package logging

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		expectErr bool
	}{
		{name: "nil config uses default", config: nil},
		{name: "valid default config", config: DefaultConfig()},
		{name: "invalid config", config: &Config{Level: LogLevel("invalid")}, expectErr: true},
		{
			name: "file output with valid path",
			config: &Config{
				Level:    LogLevelInfo,
				Format:   LogFormatJSON,
				Output:   LogOutputFile,
				FilePath: filepath.Join(t.TempDir(), "fleet.log"),
			},
		},
		{
			name: "file output in missing directory",
			config: &Config{
				Output:   LogOutputFile,
				FilePath: filepath.Join(t.TempDir(), "missing", "dir", "fleet.log"),
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, err := NewFactory(tt.config)
			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, factory)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, factory)
			assert.NoError(t, factory.Close())
		})
	}
}

func TestFactory_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.log")
	factory, err := NewFactory(&Config{Output: LogOutputFile, FilePath: path})
	require.NoError(t, err)

	factory.GetLogger("storage").Info("hello file")
	require.NoError(t, factory.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
	assert.Contains(t, string(data), `"component":"storage"`)
}

func TestFactory_GetLoggerCachesPerComponent(t *testing.T) {
	factory, _, err := CreateTestFactory(nil)
	require.NoError(t, err)

	a := factory.GetLogger("memry")
	b := factory.GetLogger("memry")
	c := factory.GetLogger("tides")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestFactory_ComponentLevels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = false
	cfg.ComponentLevels = map[string]LogLevel{"storage": LogLevelWarn}
	factory, testLogger, err := CreateTestFactory(cfg)
	require.NoError(t, err)

	storageLogger := factory.GetLogger("storage.json_file")
	storageLogger.Info("suppressed")
	storageLogger.Warn("kept")
	factory.GetLogger("memry").Info("memry info")

	testLogger.AssertNotLogged(t, "INFO", "suppressed")
	testLogger.AssertLogged(t, "WARN", "kept")
	testLogger.AssertLogged(t, "INFO", "memry info")

	entries := testLogger.GetEntriesWithComponent("storage.json_file")
	require.Len(t, entries, 1)
}

func TestFactory_UpdateLevelAffectsExistingLoggers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = false
	factory, testLogger, err := CreateTestFactory(cfg)
	require.NoError(t, err)

	logger := factory.GetLogger("tides")
	logger.Debug("before")
	factory.UpdateLevel("tides", LogLevelDebug)
	logger.Debug("after")

	testLogger.AssertNotLogged(t, "DEBUG", "before")
	testLogger.AssertLogged(t, "DEBUG", "after")

	levels := factory.Levels()
	assert.Equal(t, LogLevelDebug, levels["tides"])
	assert.Equal(t, LogLevelInfo, levels["default"])

	factory.UpdateLevel("default", LogLevelError)
	assert.Equal(t, LogLevelError, factory.Levels()["default"])
}

func TestFactory_WithContext(t *testing.T) {
	factory, testLogger, err := CreateTestFactory(nil)
	require.NoError(t, err)

	ctx := WithOperation(WithRequestID(context.Background(), "req-42"), "tools/call")
	factory.WithContext(ctx, nil).Info("with context")

	entries := testLogger.GetEntriesWithMessage("with context")
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].RequestID)
	assert.Equal(t, "tools/call", entries[0].Operation)
	assert.Equal(t, "default", entries[0].Component)
}

func TestGlobalFactory(t *testing.T) {
	t.Cleanup(func() { _ = Shutdown() })

	// Without a factory the default slog logger is used.
	require.NoError(t, Shutdown())
	assert.NotNil(t, GetGlobalLogger("anything"))
	assert.Nil(t, GetGlobalMetricsCollector())
	UpdateGlobalLevel("anything", LogLevelDebug)

	factory, testLogger, err := CreateTestFactory(nil)
	require.NoError(t, err)
	require.NoError(t, SetGlobalFactory(factory))

	assert.Same(t, factory, GetGlobalFactory())
	GetGlobalLogger("server").Info("global hello")
	testLogger.AssertLogged(t, "INFO", "global hello")

	require.NoError(t, Initialize(&Config{Level: LogLevelWarn, Metrics: MetricsConfig{Enabled: true}}))
	assert.NotNil(t, GetGlobalMetricsCollector())
}

func TestGlobalFactory_ConcurrentAccess(t *testing.T) {
	factory, _, err := CreateTestFactory(nil)
	require.NoError(t, err)
	require.NoError(t, SetGlobalFactory(factory))
	t.Cleanup(func() { _ = Shutdown() })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				GetGlobalLogger("storage").Debug("concurrent", "worker", id)
				if j%10 == 0 {
					UpdateGlobalLevel("storage", LogLevelInfo)
				}
			}
		}(i)
	}
	wg.Wait()
}
