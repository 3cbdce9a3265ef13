package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_JsonOverlay(t *testing.T) {
	path := writeConfigFile(t, `{
		"endpoint_addr": ":5050",
		"secret_key": "json-secret",
		"access_token_validity": "24h"
	}`)
	setArgs(t, "-c", path)

	cfg := LoadConfig()

	require.Equal(t, ":5050", cfg.EndpointAddr)
	require.Equal(t, "json-secret", cfg.SecretKey)
	require.Equal(t, 24*time.Hour, cfg.AccessTokenValidity)
	// fields absent from the file keep their defaults
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTokenValidity)
}

func TestLoadConfig_FlagsOverrideJson(t *testing.T) {
	path := writeConfigFile(t, `{"endpoint_addr": ":5050"}`)
	setArgs(t, "-c", path, "-a", ":4040")

	cfg := LoadConfig()

	require.Equal(t, ":4040", cfg.EndpointAddr)
}

func TestParseJson_MissingFilePanics(t *testing.T) {
	setArgs(t, "-c", "/no/such/file.json")

	require.Panics(t, func() { LoadConfig() })
}

func TestParseJson_InvalidJsonPanics(t *testing.T) {
	path := writeConfigFile(t, `{not json`)
	setArgs(t, "-c", path)

	require.Panics(t, func() { LoadConfig() })
}
