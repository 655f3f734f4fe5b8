package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DATABASE", "lxnotes.db")
	t.Setenv("DB_TYPE", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, 10*1024*1024, cfg.MaxUploadBytes)
	assert.Equal(t, 30*time.Second, cfg.PDFTimeout)
	assert.False(t, cfg.AuthEnabled())
	assert.False(t, cfg.StorageEnabled())
	assert.False(t, cfg.ConsoleEnabled())
}

func TestLoad_RequiredFields(t *testing.T) {
	t.Setenv("DB_DATABASE", "")
	_, err := Load()
	assert.ErrorContains(t, err, "DB_DATABASE")

	t.Setenv("DB_DATABASE", "lxnotes")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_USER", "")
	_, err = Load()
	assert.ErrorContains(t, err, "DB_USER")

	t.Setenv("DB_USER", "lx")
	t.Setenv("AUTHZ_URL", "http://authorizer:8080")
	t.Setenv("AUTHZ_CLIENT_ID", "")
	_, err = Load()
	assert.ErrorContains(t, err, "AUTHZ_CLIENT_ID")
}

func TestLoad_TypedValues(t *testing.T) {
	t.Setenv("DB_DATABASE", "lxnotes.db")
	t.Setenv("CHROME_NO_SANDBOX", "true")
	t.Setenv("PDF_TIMEOUT", "45s")
	t.Setenv("CONSOLE_PORT", "not-a-number")
	t.Setenv("CONSOLE_HOST", "10.101.100.101")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.ChromeNoSandbox)
	assert.Equal(t, 45*time.Second, cfg.PDFTimeout)
	assert.Equal(t, 8000, cfg.ConsolePort)
	assert.True(t, cfg.ConsoleEnabled())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("DB_DATABASE=from-file.db\nLOG_LEVEL=debug\n"), 0o600))

	t.Setenv("DB_DATABASE", "")
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("DB_DATABASE")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := LoadFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.DBDatabase)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = LoadFile(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}
