package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// setArgs swaps os.Args for the duration of the test.
func setArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{old[0]}, args...)
	t.Cleanup(func() { os.Args = old })
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	require.Equal(t, ":8080", cfg.EndpointAddr)
	require.Equal(t, 7*24*time.Hour, cfg.AccessTokenValidity)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTokenValidity)
	require.NotEmpty(t, cfg.DatabaseDSN)
	require.NotEmpty(t, cfg.SecretKey)
	require.Equal(t, "actions.jsonl", cfg.ExportObjectKey)
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	setArgs(t)
	t.Setenv("ADDRESS", ":9090")
	t.Setenv("DATABASE_DSN", "postgres://env/db")
	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("ACCESS_TOKEN_VALIDITY", "48h")

	cfg := LoadConfig()

	require.Equal(t, ":9090", cfg.EndpointAddr)
	require.Equal(t, "postgres://env/db", cfg.DatabaseDSN)
	require.Equal(t, "env-secret", cfg.SecretKey)
	require.Equal(t, 48*time.Hour, cfg.AccessTokenValidity)
	// untouched fields keep their defaults
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTokenValidity)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("ADDRESS", ":9090")
	setArgs(t, "-a", ":7070", "-t", "60")

	cfg := LoadConfig()

	require.Equal(t, ":7070", cfg.EndpointAddr)
	require.Equal(t, time.Hour, cfg.AccessTokenValidity)
}

func TestLoadConfig_UnknownFlagsIgnored(t *testing.T) {
	setArgs(t, "-no-such-flag", "x", "-a", ":6060")

	cfg := LoadConfig()

	require.Equal(t, ":6060", cfg.EndpointAddr)
}
