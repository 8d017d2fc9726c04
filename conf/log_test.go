package conf

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Run("numeric level", func(t *testing.T) {
		assert.Equal(t, slog.LevelDebug, parseLevel("-4", slog.LevelInfo))
	})
	t.Run("named level", func(t *testing.T) {
		assert.Equal(t, slog.LevelWarn, parseLevel("warn", slog.LevelInfo))
	})
	t.Run("garbage falls back", func(t *testing.T) {
		assert.Equal(t, slog.LevelInfo, parseLevel("loud", slog.LevelInfo))
	})
}

func TestReadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appsettings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ENDPOINT_URL: neo4j://localhost:7687
collection_throughput: 400
SHOULD_CLEANUP_ON_START: true
EMPTY:
`), 0o600))

	settings, err := ReadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "neo4j://localhost:7687", settings["ENDPOINT_URL"])
	assert.Equal(t, "400", settings["COLLECTION_THROUGHPUT"])
	assert.Equal(t, "true", settings["SHOULD_CLEANUP_ON_START"])
	assert.NotContains(t, settings, "EMPTY")

	_, err = ReadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvConf(t *testing.T) {
	cfg := NewEnvConfFrom(map[string]string{
		"COUNT":   "12",
		"BAD":     "twelve",
		"ENABLED": "true",
		"WAIT":    "30s",
	})
	assert.Equal(t, 12, cfg.GetInt("COUNT", 1))
	assert.Equal(t, int64(12), cfg.GetInt64("COUNT", 1))
	assert.Equal(t, 7, cfg.GetInt("BAD", 7))
	assert.Equal(t, 3, cfg.GetInt("MISSING", 3))
	assert.True(t, cfg.GetBool("ENABLED", false))
	assert.Equal(t, 30*time.Second, cfg.GetDuration("WAIT", time.Second))
	assert.Equal(t, "fallback", cfg.GetEnv("MISSING", "fallback"))
}

func TestLoadSettings(t *testing.T) {
	t.Run("missing file yields no settings", func(t *testing.T) {
		settings, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Empty(t, settings)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "appsettings.yaml")
		require.NoError(t, os.WriteFile(path, []byte("SHOULD_CLEANUP_ON_START: false\n\tDATABASE_NAME: imports\n"), 0o600))
		settings, err := LoadSettings(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), path)
		assert.Empty(t, settings)

		cfg := NewEnvConfFromSettings(path)
		assert.Error(t, cfg.Err())
	})

	t.Run("valid file has no error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "appsettings.yaml")
		require.NoError(t, os.WriteFile(path, []byte("GRAPH_BULK_TEST_ONLY_KEY: from-file\n"), 0o600))
		cfg := NewEnvConfFromSettings(path)
		require.NoError(t, cfg.Err())
		assert.Equal(t, "from-file", cfg.GetEnv("GRAPH_BULK_TEST_ONLY_KEY", "fallback"))
	})
}

func TestParseBool(t *testing.T) {
	cfg := NewEnvConfFrom(map[string]string{
		"ON":    "true",
		"OFF":   " false ",
		"TYPO":  "fasle",
		"YAMLY": "no",
	})

	value, err := cfg.ParseBool("ON", false)
	require.NoError(t, err)
	assert.True(t, value)

	value, err = cfg.ParseBool("OFF", true)
	require.NoError(t, err)
	assert.False(t, value)

	value, err = cfg.ParseBool("MISSING", true)
	require.NoError(t, err)
	assert.True(t, value)

	for _, env := range []string{"TYPO", "YAMLY"} {
		_, err = cfg.ParseBool(env, false)
		assert.ErrorContains(t, err, env)
	}
	assert.NoError(t, cfg.Err())
}
