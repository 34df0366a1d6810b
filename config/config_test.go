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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "database:\n  host: db\n  port: 5432\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 30*time.Minute, cfg.Booking.DraftTTL())
	assert.Equal(t, "sandbox", cfg.Payment.Provider)
	assert.Equal(t, "usd", cfg.Payment.Currency)
	assert.Equal(t, 10*time.Second, cfg.Payment.Timeout())
	assert.Equal(t, 3, cfg.Kafka.PublishRetries)
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	path := writeConfig(t, "payment:\n  provider: stripe\n  secret_key: from-file\n")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_env")
	t.Setenv("DATABASE_PASSWORD", "pw")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "stripe", cfg.Payment.Provider)
	assert.Equal(t, "sk_test_env", cfg.Payment.SecretKey)
	assert.Equal(t, "pw", cfg.Database.Password)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "localhost", Port: 5432, User: "u", Password: "p", Name: "rental", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=u password=p dbname=rental sslmode=disable", d.DSN())
}
