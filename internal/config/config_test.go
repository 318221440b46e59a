package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 8080, c.App.Port)
	assert.Equal(t, 10, c.Upload.MaxSizeMB)
	assert.Equal(t, []string{"image/*", "application/pdf", "video/*"}, c.Upload.AllowedTypes)
	assert.Equal(t, "attachments", c.Storage.Bucket)
	assert.Equal(t, 365*24*time.Hour, c.Storage.SignedURLTTL)
	assert.True(t, c.Wizard.RequireNDAView)
	assert.False(t, c.Database.Enabled())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "intake")
	t.Setenv("UPLOAD_MAX_SIZE_MB", "25")
	t.Setenv("WIZARD_SESSION_TTL", "30m")

	c, err := LoadFrom(viper.New())
	require.NoError(t, err)

	assert.True(t, c.Database.Enabled())
	assert.Equal(t, "db.internal", c.Database.Host)
	assert.Equal(t, 25, c.Upload.MaxSizeMB)
	assert.Equal(t, 30*time.Minute, c.Wizard.SessionTTL)
	assert.Equal(t, "postgres://intake:@db.internal:5432/partnerconnex?sslmode=disable", c.Database.DSN())
}

func TestLoadRejectsNonPositiveUploadLimit(t *testing.T) {
	t.Setenv("UPLOAD_MAX_SIZE_MB", "0")

	_, err := LoadFrom(viper.New())
	require.Error(t, err)
}
