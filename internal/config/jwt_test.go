package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJWTConfig_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     JWTConfig
		wantErr string
	}{
		{
			name: "valid",
			cfg:  JWTConfig{Secret: testSecret, ExpirationHours: 24},
		},
		{
			name:    "empty secret",
			cfg:     JWTConfig{ExpirationHours: 24},
			wantErr: "JWT_SECRET cannot be empty",
		},
		{
			name:    "short secret",
			cfg:     JWTConfig{Secret: "too-short", ExpirationHours: 24},
			wantErr: "at least 32 characters",
		},
		{
			name:    "negative expiration",
			cfg:     JWTConfig{Secret: testSecret, ExpirationHours: -1},
			wantErr: "at least 1 hour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.normalize()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_JWTFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_EXPIRATION_HOURS", "48")
	t.Setenv("JWT_ISSUER", "ats-test")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, testSecret, cfg.JWT.Secret)
	assert.Equal(t, 48, cfg.JWT.ExpirationHours)
	assert.Equal(t, "ats-test", cfg.JWT.Issuer)
}

func TestLoad_InvalidJWTExpiration(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_EXPIRATION_HOURS", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadJWT()
	assert.NoError(t, err)
	assert.Equal(t, "talent-pipeline", cfg.Issuer)

	t.Setenv("JWT_SECRET", "short")
	_, err = LoadJWT()
	assert.ErrorContains(t, err, "at least 32 characters")
}
