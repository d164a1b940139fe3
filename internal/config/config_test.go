package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sanisidro/fiscal-api/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecretOrEnv(_ context.Context, secretName, _ string) (string, error) {
	if v, ok := f[secretName]; ok {
		return v, nil
	}
	return "", secrets.ErrSecretNotFound
}

type brokenVault struct{}

func (brokenVault) GetSecretOrEnv(context.Context, string, string) (string, error) {
	return "", errors.New("403 Forbidden")
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Storage.Mode)
	assert.Equal(t, "sql", cfg.Directory.Mode)
	assert.Equal(t, "fiscal.app", cfg.Import.EmailDomain)
	assert.Equal(t, "fiscales", cfg.Import.Collection)
	assert.False(t, cfg.Import.UpdateExisting)
	assert.Equal(t, []string{"image/jpeg", "image/png", "image/gif", "image/webp"}, cfg.Upload.AllowedImageTypes)
	assert.Equal(t, []string{"GET", "OPTIONS", "PATCH", "DELETE", "POST", "PUT"}, cfg.CORS.AllowedMethods)
	assert.Contains(t, cfg.CORS.AllowedHeaders, "X-CSRF-Token")
	assert.True(t, cfg.CORS.AllowCredentials)
	assert.Equal(t, 15*time.Minute, cfg.Storage.SignedURLTTLDuration())
	assert.Equal(t, time.Hour, cfg.Upload.TokenTTLDuration())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_MODE", "s3")
	t.Setenv("IMPORT_EMAILDOMAIN", "example.org")
	t.Setenv("ADMIN_API_KEY", "key-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.Storage.Mode)
	assert.Equal(t, "example.org", cfg.Import.EmailDomain)
	assert.Equal(t, "key-123", cfg.ApiKey.Value)
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{}
	cfg.Storage.CloudConnectionString = "from-env"
	cfg.Database.User = "env-user"

	err := applySecrets(context.Background(), cfg, fakeSecrets{
		"storage-connection-string": "from-vault",
		"admin-api-key":             "vault-key",
	})
	require.NoError(t, err)

	assert.Equal(t, "from-vault", cfg.Storage.CloudConnectionString)
	assert.Equal(t, "vault-key", cfg.ApiKey.Value)
	// missing secrets leave the existing value alone
	assert.Equal(t, "env-user", cfg.Database.User)
}

func TestApplySecrets_VaultFailure(t *testing.T) {
	cfg := &Config{}

	err := applySecrets(context.Background(), cfg, brokenVault{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403 Forbidden")
}

func TestAppConfig_IsDevelopment(t *testing.T) {
	for env, want := range map[string]bool{
		"":            true,
		"development": true,
		"local":       true,
		"staging":     false,
		"production":  false,
	} {
		a := AppConfig{Environment: env}
		assert.Equal(t, want, a.IsDevelopment(), env)
	}
}
