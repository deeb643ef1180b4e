package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv sets environment variables for the duration of a test
func setEnv(t *testing.T, values map[string]string) {
	for key, value := range values {
		old, had := os.LookupEnv(key)

		err := os.Setenv(key, value)
		require.NoErrorf(t, err, "failed to set \"%s\"", key)

		t.Cleanup(func() {
			if had {
				os.Setenv(key, old)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, StoreDriverMongo, cfg.StoreDriver)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, int64(5), cfg.HighlightsLimit)
	assert.Contains(t, cfg.AllowedImageTypes, "image/webp")
	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.SelfAdminCreateAllowed())
}

func TestPublicURLSchemaValidation(t *testing.T) {
	setEnv(t, map[string]string{"APP_PUBLIC_URL": "cms.example.com"})

	_, err := NewConfig()
	assert.NotNil(t, err, "NewConfig should have responded with an error")

	setEnv(t, map[string]string{"APP_PUBLIC_URL": "https://cms.example.com"})

	_, err = NewConfig()
	assert.Nil(t, err, "NewConfig should have responded with no error")
}

func TestStoreDriverValidation(t *testing.T) {
	setEnv(t, map[string]string{"APP_STORE_DRIVER": "postgres"})

	_, err := NewConfig()
	assert.Error(t, err)

	setEnv(t, map[string]string{"APP_STORE_DRIVER": "sqlite", "APP_SQLITE_PATH": "/tmp/x.db"})

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
}

func TestSelfAdminCreateInProduction(t *testing.T) {
	cfg := Config{Environment: EnvironmentProduction}
	assert.False(t, cfg.SelfAdminCreateAllowed())

	cfg.AllowSelfAdminCreate = true
	assert.True(t, cfg.SelfAdminCreateAllowed())
}

func TestStringRedactsPassword(t *testing.T) {
	cfg := Config{DbPassword: "hunter2"}

	s, err := cfg.String()
	require.NoError(t, err)

	assert.False(t, strings.Contains(s, "hunter2"))
	assert.Contains(t, s, "REDACTED_NOT_EMPTY")
}
