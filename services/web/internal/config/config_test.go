package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"DB_DSN":          "postgres://localhost/volunteerverse",
		"JWT_SIGNING_KEY": testKey,
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "volunteer-verse-auth", cfg.CookieName)
	assert.False(t, cfg.CookieHTTPOnly)
	assert.True(t, cfg.GateFailOpen)
	assert.Equal(t, 10, cfg.LoginRateLimit)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadValidation(t *testing.T) {
	base := func() map[string]string {
		return map[string]string{
			"DB_DSN":          "postgres://localhost/volunteerverse",
			"JWT_SIGNING_KEY": testKey,
		}
	}

	tests := []struct {
		name    string
		mutate  func(env map[string]string)
		wantErr bool
	}{
		{name: "valid", mutate: func(map[string]string) {}},
		{name: "missing dsn", mutate: func(env map[string]string) { delete(env, "DB_DSN") }, wantErr: true},
		{name: "short key", mutate: func(env map[string]string) { env["JWT_SIGNING_KEY"] = "short" }, wantErr: true},
		{name: "access outlives session", mutate: func(env map[string]string) { env["ACCESS_TOKEN_TTL"] = "200h" }, wantErr: true},
		{name: "fail closed", mutate: func(env map[string]string) { env["GATE_FAIL_OPEN"] = "false" }},
		{name: "bad log level", mutate: func(env map[string]string) { env["LOG_LEVEL"] = "loud" }, wantErr: true},
		{name: "bad log format", mutate: func(env map[string]string) { env["LOG_FORMAT"] = "xml" }, wantErr: true},
		{name: "zero rate limit", mutate: func(env map[string]string) { env["LOGIN_RATE_LIMIT"] = "0" }, wantErr: true},
		{name: "origins list", mutate: func(env map[string]string) { env["CORS_ALLOWED_ORIGINS"] = "https://a.test,https://b.test" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := base()
			tt.mutate(env)
			_, err := load(context.Background(), envconfig.MapLookuper(env))
			if (err != nil) != tt.wantErr {
				t.Fatalf("load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadExport(t *testing.T) {
	_, err := loadExport(context.Background(), envconfig.MapLookuper(map[string]string{}))
	assert.Error(t, err)

	cfg, err := loadExport(context.Background(), envconfig.MapLookuper(map[string]string{
		"EXPORT_PUBLIC_KEY": "cHVibGlj",
	}))
	require.NoError(t, err)
	assert.Equal(t, "cHVibGlj", cfg.ExportPublicKey)
	assert.Empty(t, cfg.ExportSigningKey)
}
