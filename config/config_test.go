package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags replaces the global flag set so each test can call LoadConfig
// with its own arguments.
func resetFlags(args ...string) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	os.Args = append([]string{"tradedash"}, args...)
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetFlags()
	// Keep the secret out of the key-file generation path.
	t.Setenv("TRADEDASH_JWT_SECRET", "env-secret-for-tests")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.ListenAddress)
	assert.Equal(t, "8080", cfg.ListenPort)
	assert.Equal(t, "env-secret-for-tests", cfg.JwtSecret)
	assert.Equal(t, 12*time.Hour, cfg.TokenLifetime)
	assert.True(t, filepath.IsAbs(cfg.ConfigFilePath))
	assert.True(t, filepath.IsAbs(cfg.ProfilesDir))
}

func TestLoadConfig_EnvVars(t *testing.T) {
	resetFlags()
	tempDir := t.TempDir()
	t.Setenv("TRADEDASH_JWT_SECRET", "env-secret-for-tests")
	t.Setenv("TRADEDASH_LISTEN_ADDRESS", "127.0.0.1")
	t.Setenv("TRADEDASH_LISTEN_PORT", "9090")
	t.Setenv("TRADEDASH_CONFIG_FILE", filepath.Join(tempDir, "conf.json"))
	t.Setenv("TRADEDASH_PROFILES_DIR", filepath.Join(tempDir, "profiles"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.ListenAddress)
	assert.Equal(t, "9090", cfg.ListenPort)
	assert.Equal(t, filepath.Join(tempDir, "conf.json"), cfg.ConfigFilePath)
	assert.Equal(t, filepath.Join(tempDir, "profiles"), cfg.ProfilesDir)
}

func TestLoadConfig_FlagsTakePrecedence(t *testing.T) {
	tempDir := t.TempDir()
	resetFlags(
		"-address", "10.0.0.1",
		"-port", "7070",
		"-config-file", filepath.Join(tempDir, "flag.json"),
		"-profiles-dir", filepath.Join(tempDir, "flagprofiles"),
	)
	t.Setenv("TRADEDASH_JWT_SECRET", "env-secret-for-tests")
	t.Setenv("TRADEDASH_LISTEN_PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.ListenAddress)
	assert.Equal(t, "7070", cfg.ListenPort, "flag must beat env var")
	assert.Equal(t, filepath.Join(tempDir, "flag.json"), cfg.ConfigFilePath)
}

func TestLoadConfig_JwtSecretFromFile(t *testing.T) {
	tempDir := t.TempDir()
	secretFile := filepath.Join(tempDir, "secret.key")
	require.NoError(t, os.WriteFile(secretFile, []byte("  file-secret\n"), 0600))

	resetFlags("-jwt-secret-file", secretFile)
	t.Setenv("TRADEDASH_JWT_SECRET", "env-secret-should-lose")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "file-secret", cfg.JwtSecret, "file beats env var, whitespace trimmed")
}

func TestLoadConfig_ConfigPathIsDirectory(t *testing.T) {
	tempDir := t.TempDir()
	resetFlags("-config-file", tempDir)
	t.Setenv("TRADEDASH_JWT_SECRET", "env-secret-for-tests")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_ProfilesDirIsFile(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "not_a_dir")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0644))

	resetFlags("-profiles-dir", filePath)
	t.Setenv("TRADEDASH_JWT_SECRET", "env-secret-for-tests")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestGenerateRandomKey(t *testing.T) {
	key1, err := generateRandomKey(32)
	require.NoError(t, err)
	assert.Len(t, key1, 64, "hex encoding doubles the byte length")

	key2, err := generateRandomKey(32)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key2)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TRADEDASH_TEST_ONLY_VAR", "value")
	assert.Equal(t, "value", getEnv("TRADEDASH_TEST_ONLY_VAR", "fallback"))
	assert.Equal(t, "fallback", getEnv("TRADEDASH_TEST_ONLY_MISSING", "fallback"))
}
