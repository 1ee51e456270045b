package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) LookupFunc {
	return func(k string) (string, bool) { v, ok := m[k]; return v, ok }
}

func TestLoad_DefaultsNeedSecret(t *testing.T) {
	t.Parallel()

	_, err := Load(nil, envOf(nil))
	require.ErrorContains(t, err, "jwt secret is required")

	cfg, err := Load(nil, envOf(map[string]string{"SECRET_KEY": "s"}))
	require.NoError(t, err)
	want := Default()
	want.JWTSecret = "s"
	require.Equal(t, want, cfg)
}

func TestLoad_Precedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"CRYPTACHAT_JWT_SECRET=from-file\n"+
			"CRYPTACHAT_HTTP_ADDR=:7000\n"+
			"CRYPTACHAT_GRPC_ADDR=:7443\n"+
			"CRYPTACHAT_LOGIN_WINDOW=2h\n"), 0o600))

	env := envOf(map[string]string{
		"CRYPTACHAT_HTTP_ADDR":       ":6000",
		"CRYPTACHAT_LOGIN_MAX_FAILS": "3",
		"CRYPTACHAT_DEV":             "true",
	})
	cfg, err := Load([]string{"-env", envPath, "-grpc-addr", ":9443", "-login-block-for", "1m"}, env)
	require.NoError(t, err)

	require.Equal(t, "from-file", cfg.JWTSecret)
	require.Equal(t, ":6000", cfg.HTTPAddr, "environment beats file")
	require.Equal(t, ":9443", cfg.GRPCAddr, "flag beats file")
	require.Equal(t, 2*time.Hour, cfg.LoginWindow)
	require.Equal(t, 3, cfg.LoginMaxFails)
	require.Equal(t, time.Minute, cfg.LoginBlockFor)
	require.True(t, cfg.Dev)
}

func TestLoad_ComposedDSN(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"SECRET_KEY":        "s",
		"DB_HOST":           "db",
		"DB_PORT":           "5432",
		"POSTGRES_USER":     "chat",
		"POSTGRES_PASSWORD": "p@ss word",
		"POSTGRES_DB":       "relay",
	}
	cfg, err := Load(nil, envOf(env))
	require.NoError(t, err)
	require.Equal(t, "postgresql://chat:p%40ss%20word@db:5432/relay", cfg.DatabaseDSN)

	env["CRYPTACHAT_DATABASE_DSN"] = "postgres://explicit/db"
	cfg, err = Load(nil, envOf(env))
	require.NoError(t, err)
	require.Equal(t, "postgres://explicit/db", cfg.DatabaseDSN)

	cfg, err = Load([]string{"-dsn", "postgres://flag/db"}, envOf(env))
	require.NoError(t, err)
	require.Equal(t, "postgres://flag/db", cfg.DatabaseDSN)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	base := map[string]string{"SECRET_KEY": "s"}
	with := func(k, v string) LookupFunc {
		m := map[string]string{k: v}
		for bk, bv := range base {
			m[bk] = bv
		}
		return envOf(m)
	}

	tests := []struct {
		name string
		args []string
		env  LookupFunc
		want string
	}{
		{"bad duration", nil, with("CRYPTACHAT_LOGIN_WINDOW", "soon"), "CRYPTACHAT_LOGIN_WINDOW"},
		{"bad max fails", nil, with("CRYPTACHAT_LOGIN_MAX_FAILS", "many"), "CRYPTACHAT_LOGIN_MAX_FAILS"},
		{"bad bool", nil, with("CRYPTACHAT_DEV", "maybe"), "CRYPTACHAT_DEV"},
		{"unknown hash", []string{"-password-hash", "md5"}, envOf(base), "unknown password hash"},
		{"half tls", []string{"-tls-cert", "c.pem"}, envOf(base), "tls cert and key"},
		{"no token ttl flag", []string{"-token-ttl", "1h"}, envOf(base), "token-ttl"},
		{"unknown flag", []string{"-nope"}, envOf(base), "nope"},
		{"missing env file", []string{"-env", filepath.Join(t.TempDir(), "absent.env")}, envOf(base), "read env file"},
	}
	for _, tc := range tests {
		_, err := Load(tc.args, tc.env)
		require.ErrorContains(t, err, tc.want, tc.name)
	}
}

func TestLoad_TokenTTLNotConfigurable(t *testing.T) {
	t.Parallel()

	cfg, err := Load(nil, envOf(map[string]string{"SECRET_KEY": "s", "CRYPTACHAT_TOKEN_TTL": "1h"}))
	require.NoError(t, err)
	want := Default()
	want.JWTSecret = "s"
	require.Equal(t, want, cfg)
}

func TestDatabaseDSN(t *testing.T) {
	t.Parallel()

	require.Equal(t, Default().DatabaseDSN, DatabaseDSN(envOf(nil)))
	require.Equal(t, "postgresql://db/relay", DatabaseDSN(envOf(map[string]string{"DB_HOST": "db", "POSTGRES_DB": "relay"})))
	require.Equal(t, "postgres://x/y", DatabaseDSN(envOf(map[string]string{
		"DB_HOST": "db", "POSTGRES_DB": "relay", "CRYPTACHAT_DATABASE_DSN": "postgres://x/y",
	})))
}
