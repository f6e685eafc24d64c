package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LAMD_TEST_A=fromenv\nLAMD_TEST_B=fromenv\nLAMD_TEST_C=fromenv\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("LAMD_TEST_B=fromlocal\n"), 0o600))
	t.Setenv("LAMD_TEST_C", "preset")
	t.Setenv("LAMD_TEST_A", "")
	t.Setenv("LAMD_TEST_B", "")
	require.NoError(t, os.Unsetenv("LAMD_TEST_A"))
	require.NoError(t, os.Unsetenv("LAMD_TEST_B"))

	loaded, err := LoadEnv(dir)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, "fromenv", os.Getenv("LAMD_TEST_A"))
	assert.Equal(t, "fromlocal", os.Getenv("LAMD_TEST_B"))
	assert.Equal(t, "preset", os.Getenv("LAMD_TEST_C"))
}

func TestLoadEnvWithoutFiles(t *testing.T) {
	loaded, err := LoadEnv(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestServiceFromEnv(t *testing.T) {
	t.Setenv(EnvSocket, "/run/test/lamd.sock")
	t.Setenv(EnvUseServer, "1")
	t.Setenv(EnvIdleTimeout, "30s")

	s, err := ServiceFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/run/test/lamd.sock", s.Socket)
	assert.True(t, s.UseServer)
	assert.Equal(t, 30*time.Second, s.IdleTimeout)
	assert.Equal(t, DefaultClientTimeout, s.ClientTimeout)

	t.Setenv(EnvUseServer, "maybe")
	_, err = ServiceFromEnv()
	assert.Error(t, err)
}

func TestDefaultSocketPath(t *testing.T) {
	t.Setenv(EnvSocket, "")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/lamd/resolver.sock", DefaultSocketPath())

	t.Setenv("XDG_RUNTIME_DIR", "")
	assert.Equal(t, os.TempDir(), filepath.Dir(DefaultSocketPath()))
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"1": true, "true": true, "Yes": true, "on": true, "0": false, "false": false, "no": false, "": false} {
		got, err := ParseBool(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestLogLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	assert.Equal(t, slog.LevelWarn, LogLevel(false))
	assert.Equal(t, slog.LevelDebug, LogLevel(true))
	t.Setenv(EnvLogLevel, "INFO")
	assert.Equal(t, slog.LevelInfo, LogLevel(false))
}
