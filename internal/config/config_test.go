package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func newFlagSet(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestConfig_LoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, BackendSQLite, c.StorageBackend)
	assert.Equal(t, 5, c.DispatchAttempts)
	assert.Equal(t, time.Second, c.DispatchDelay)
	assert.Equal(t, 5, c.FillAttempts)
	assert.Equal(t, 3*time.Second, c.StatusTTL)
	assert.Equal(t, 5*time.Second, c.ErrorTTL)
	require.NoError(t, c.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"storage_backend":   "memory",
		"storage_path":      "from-json.db",
		"dispatch_attempts": 7,
		"dispatch_delay":    "250ms",
		"log_level":         "warn",
	})

	t.Setenv("AUTOFILL_STORAGE_PATH", "from-env.db")
	t.Setenv("AUTOFILL_LOG_LEVEL", "debug")

	fs := newFlagSet(t, "-c", path, "--log-level", "error", "--fill-delay", "2s")
	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.StorageBackend, "json over defaults")
	assert.Equal(t, "from-env.db", cfg.StoragePath, "env over json")
	assert.Equal(t, "error", cfg.LogLevel, "flag over env")
	assert.Equal(t, 7, cfg.DispatchAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.DispatchDelay)
	assert.Equal(t, 2*time.Second, cfg.FillDelay)
	assert.Equal(t, 5, cfg.FillAttempts, "untouched default")
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	t.Setenv("AUTOFILL_STORAGE_BACKEND", "postgres")

	cfg, err := Load(newFlagSet(t))
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StorageBackend)
}

func TestLoad_NilFlagSet(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(newFlagSet(t, "-c", filepath.Join(t.TempDir(), "nope.json")))
		require.Error(t, err)
	})

	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		_, err := Load(newFlagSet(t, "-c", path))
		require.Error(t, err)
	})

	t.Run("bad env duration", func(t *testing.T) {
		t.Setenv("AUTOFILL_FILL_DELAY", "later")
		_, err := Load(nil)
		require.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Load(newFlagSet(t, "--storage", "floppy"))
		require.Error(t, err)
	})

	t.Run("zero attempts", func(t *testing.T) {
		_, err := Load(newFlagSet(t, "--dispatch-attempts", "0"))
		require.Error(t, err)
	})
}

func TestLoad_RelayExtensionIDs(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"relay_extension_ids": []string{"json-id"},
	})

	cfg, err := Load(newFlagSet(t, "-c", path))
	require.NoError(t, err)
	assert.Equal(t, []string{"json-id"}, cfg.RelayExtensionIDs)

	t.Setenv("AUTOFILL_RELAY_EXTENSION_IDS", "env-a,env-b")
	cfg, err = Load(newFlagSet(t, "-c", path))
	require.NoError(t, err)
	assert.Equal(t, []string{"env-a", "env-b"}, cfg.RelayExtensionIDs)

	cfg, err = Load(newFlagSet(t, "-c", path, "--relay-extension-id", "flag-id"))
	require.NoError(t, err)
	assert.Equal(t, []string{"flag-id"}, cfg.RelayExtensionIDs)
}
