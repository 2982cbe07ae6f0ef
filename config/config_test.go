package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `{
		"app": {"jwt_secret": "s3cret", "port": "9090", "allowed_origins": ["https://a.example", "https://b.example"]},
		"auth": {"email_auth_ttl": "15m"}
	}`)
	t.Setenv("JWT_SECRET", "")

	c, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", c.JWTSecret)
	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, c.EmailAuthTTL)
	assert.Equal(t, time.Hour, c.ViewCountTTL)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, int64(50<<20), c.UploadMaxBytes)
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"app": {"jwt_secret": "from-file", "port": "9090"}}`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ADMIN_USERNAMES", "root@example.com, ops@example.com")
	t.Setenv("VIEW_COUNT_TTL", "5m")

	c, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", c.JWTSecret)
	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, c.AdminUsernames)
	assert.Equal(t, 5*time.Minute, c.ViewCountTTL)
}

func TestLoadFile_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "only-env")
	c, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, "only-env", c.JWTSecret)
	assert.Equal(t, "8080", c.AppPort)
}

func TestLoadFile_RequiresSecret(t *testing.T) {
	path := writeConfig(t, `{"app": {"port": "9090"}}`)
	t.Setenv("JWT_SECRET", "")
	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}
