package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerforge/ledgerd/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		DatabaseURL:      "postgres://localhost/ledgerd",
		JWTSecret:        "01234567890123456789012345678901",
		RetryMaxAttempts: 5,
		Env:              "development",
	}
}

func TestConfig_Validate_RequiresDatabaseURL(t *testing.T) {
	c := validConfig()
	c.DatabaseURL = ""
	require.Error(t, c.Validate())
}

func TestConfig_Validate_RequiresLongJWTSecret(t *testing.T) {
	c := validConfig()
	c.JWTSecret = "too-short"
	require.Error(t, c.Validate())
}

func TestConfig_Validate_RejectsDeletionEscapeHatchInProduction(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.AllowPostedTransactionDeletion = true
	require.Error(t, c.Validate())
}

func TestConfig_Validate_AcceptsWellFormedConfig(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
}

func TestConfig_IsDevelopmentIsProduction(t *testing.T) {
	dev := validConfig()
	assert.True(t, dev.IsDevelopment())
	assert.False(t, dev.IsProduction())

	prod := validConfig()
	prod.Env = "production"
	assert.True(t, prod.IsProduction())
}
