package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chaves = []string{
	"PORT", "DB_DSN", "DB_MAX_CONNS", "REDIS_URL", "JWT_SECRET", "JWT_ACCESS_TTL", "JWT_REFRESH_TTL",
	"ALLOW_ORIGINS", "AUTH_REQUIRED", "TIMEZONE", "EMPRESTIMO_PRAZO_DIAS", "EMPRESTIMO_MAX_RENOVACOES",
	"OVERDUE_SWEEP_INTERVAL", "SLACK_WEBHOOK_URL", "AMQP_URL", "STORAGE_PROVIDER", "STATIC_DIR",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	"MINIO_PUBLIC_URL", "UPLOAD_MAX_BYTES", "OTEL_EXPORTER_OTLP_ENDPOINT", "LOG_LEVEL", "LOG_FORMAT",
}

// ambienteMinimo limpa as variáveis conhecidas e define só as obrigatórias.
func ambienteMinimo(t *testing.T) {
	t.Helper()
	for _, k := range chaves {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("DB_DSN", "postgres://biblioteca@localhost/biblioteca")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	ambienteMinimo(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.EqualValues(t, 10, cfg.DBMaxConns)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTTL)
	assert.Equal(t, 720*time.Hour, cfg.JWTRefreshTTL)
	assert.False(t, cfg.AuthRequired)
	assert.Equal(t, "America/Sao_Paulo", cfg.Timezone)
	assert.Equal(t, 14, cfg.PrazoEmprestimoDias)
	assert.Equal(t, 3, cfg.MaxRenovacoes)
	assert.Zero(t, cfg.OverdueSweepInterval)
	assert.Equal(t, "local", cfg.Storage.Provider)
	assert.Equal(t, "./static", cfg.Storage.StaticDir)
	assert.EqualValues(t, 5<<20, cfg.UploadMaxBytes)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Empty(t, cfg.AllowOrigins)
}

func TestLoadOverrides(t *testing.T) {
	ambienteMinimo(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOW_ORIGINS", "http://localhost:5173, https://biblioteca.test ,")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("EMPRESTIMO_PRAZO_DIAS", "21")
	t.Setenv("EMPRESTIMO_MAX_RENOVACOES", "0")
	t.Setenv("OVERDUE_SWEEP_INTERVAL", "1h")
	t.Setenv("STORAGE_PROVIDER", "MINIO")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_BUCKET", "capas")
	t.Setenv("MINIO_USE_SSL", "false")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173", "https://biblioteca.test"}, cfg.AllowOrigins)
	assert.True(t, cfg.AuthRequired)
	assert.Equal(t, 21, cfg.PrazoEmprestimoDias)
	assert.Equal(t, 0, cfg.MaxRenovacoes)
	assert.Equal(t, time.Hour, cfg.OverdueSweepInterval)
	assert.Equal(t, "minio", cfg.Storage.Provider)
	assert.False(t, cfg.Storage.MinioUseSSL)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadInvalido(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		msg   string
	}{
		{"porta", "PORT", "abc", "PORT inválida"},
		{"dsn", "DB_DSN", "", "DB_DSN obrigatório"},
		{"redis", "REDIS_URL", "", "REDIS_URL obrigatório"},
		{"segredo curto", "JWT_SECRET", "curto", "JWT_SECRET deve ter pelo menos 32 caracteres"},
		{"ttl", "JWT_ACCESS_TTL", "quinze", "JWT_ACCESS_TTL inválido"},
		{"fuso", "TIMEZONE", "Lua/Crateras", "TIMEZONE inválido"},
		{"prazo", "EMPRESTIMO_PRAZO_DIAS", "0", "EMPRESTIMO_PRAZO_DIAS inválido"},
		{"renovacoes", "EMPRESTIMO_MAX_RENOVACOES", "-1", "EMPRESTIMO_MAX_RENOVACOES inválido"},
		{"auth", "AUTH_REQUIRED", "talvez", "AUTH_REQUIRED inválido"},
		{"storage", "STORAGE_PROVIDER", "s3", "STORAGE_PROVIDER deve ser local ou minio"},
		{"minio sem bucket", "STORAGE_PROVIDER", "minio", "MINIO_ENDPOINT e MINIO_BUCKET obrigatórios"},
		{"log", "LOG_FORMAT", "xml", "LOG_FORMAT deve ser console ou json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ambienteMinimo(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}
