package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("AUTH_JWT_PUBLIC_KEY", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "authenticated", cfg.AuthzUnmappedPolicy)
	assert.Equal(t, "off", cfg.AuthzCache)
	assert.Equal(t, 30*time.Second, cfg.AuthzCacheTTL)
	assert.Equal(t, "X-Workspace-Id", cfg.TenantHeader)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"cache ttl above revocation window": {"AUTHZ_CACHE_TTL": "6m"},
		"unknown unmapped policy":           {"AUTHZ_UNMAPPED_POLICY": "allow"},
		"unknown cache mode":                {"AUTHZ_CACHE": "disk"},
		"template without placeholder":      {"TENANT_DSN_TEMPLATE": "postgres://localhost/radius"},
		"no workspace source":               {"TENANT_HEADER": "", "TENANT_CLAIM": ""},
		"both jwt keys":                     {"AUTH_JWT_PUBLIC_KEY": "-----BEGIN PUBLIC KEY-----"},
		"redis cache without address":       {"AUTHZ_CACHE": "redis", "REDIS_ADDR": ""},
		"bad log level":                     {"LOG_LEVEL": "trace"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigRequiresOneJWTKey(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_JWT_PUBLIC_KEY", "")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "exactly one of AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY")
}

func TestTestModeFlag(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
