package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("WISHWELL_DB_DSN", "postgres://localhost/wishwell")
	t.Setenv("WISHWELL_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "postgres://localhost/wishwell", cfg.DatabaseDSN)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "@every 10m", cfg.SweepSchedule)
}

func TestLoadMissingRequired(t *testing.T) {
	for _, key := range []string{"WISHWELL_DB_DSN", "WISHWELL_JWT_SECRET"} {
		// Setenv registers the restore, Unsetenv makes the variable truly
		// absent for the required check.
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	_, err := Load()
	assert.Error(t, err)
}
