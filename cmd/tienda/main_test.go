package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baleriiupanki/tienda-val/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func sqliteConfig(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "DATABASE_DRIVER", "JWT_SECRET", "PORT", "ALLOWED_ORIGIN", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := "database:\n" +
		"  driver: sqlite\n" +
		"  url: file:" + filepath.ToSlash(filepath.Join(dir, "tienda.db")) + "\n" +
		"auth:\n" +
		"  jwt_secret: cli-test-secret-0123456789\n" +
		"  hasher:\n" +
		"    algorithm: bcrypt\n" +
		"    bcrypt_cost: 4\n" +
		"logging:\n" +
		"  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMigrateAndCreateUser(t *testing.T) {
	cfgPath := sqliteConfig(t)

	out, err := run(t, "--config", cfgPath, "migrate", "up")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Migrations completed successfully")

	out, err = run(t, "--config", cfgPath, "user", "create", "--username", "val", "--password", "1234")
	require.NoError(t, err, out)
	assert.Contains(t, out, `User "val" created`)

	_, err = run(t, "--config", cfgPath, "user", "create", "--username", "val", "--password", "5678")
	assert.ErrorContains(t, err, "user already exists")

	out, err = run(t, "--config", cfgPath, "migrate", "down")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Rollback completed successfully")
}

func TestUserCreateRequiresFlags(t *testing.T) {
	cfgPath := sqliteConfig(t)
	_, err := run(t, "--config", cfgPath, "user", "create", "--username", "val")
	assert.ErrorContains(t, err, "--username and --password are required")
}

func TestInvalidConfigFails(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  driver: sqlite\n"), 0o600))

	_, err := run(t, "--config", path, "migrate", "up")
	assert.ErrorContains(t, err, "auth.jwt_secret is required")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	logger, err = newLogger(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = newLogger(config.LoggingConfig{Level: "loud", Format: "console"})
	assert.Error(t, err)
}
