package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port          int
	DBDSN         string
	DBMaxConns    int32
	RedisURL      string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration
	JWTSecret     string
	AllowOrigins  []string
	AuthRequired  bool
	Timezone      string

	PrazoEmprestimoDias  int
	MaxRenovacoes        int
	OverdueSweepInterval time.Duration
	SlackWebhookURL      string
	AMQPURL              string

	Storage        StorageConfig
	UploadMaxBytes int64

	OTLPEndpoint string
	LogLevel     string
	LogFormat    string

	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
}

// StorageConfig escolhe onde as capas das obras são gravadas.
type StorageConfig struct {
	Provider       string
	StaticDir      string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	maxConns, err := parseIntEnv("DB_MAX_CONNS", 10)
	if err != nil || maxConns <= 0 {
		return nil, errors.New("DB_MAX_CONNS inválido")
	}
	cfg.DBMaxConns = int32(maxConns)

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	refreshTTL, err := parseDurationEnv("JWT_REFRESH_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.JWTRefreshTTL = refreshTTL

	cfg.AllowOrigins = splitList(getEnv("ALLOW_ORIGINS", ""))

	cfg.AuthRequired, err = parseBoolEnv("AUTH_REQUIRED", false)
	if err != nil {
		return nil, err
	}

	cfg.Timezone = strings.TrimSpace(getEnv("TIMEZONE", "America/Sao_Paulo"))
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, errors.New("TIMEZONE inválido")
	}

	cfg.PrazoEmprestimoDias, err = parseIntEnv("EMPRESTIMO_PRAZO_DIAS", 14)
	if err != nil || cfg.PrazoEmprestimoDias <= 0 {
		return nil, errors.New("EMPRESTIMO_PRAZO_DIAS inválido")
	}

	cfg.MaxRenovacoes, err = parseIntEnv("EMPRESTIMO_MAX_RENOVACOES", 3)
	if err != nil || cfg.MaxRenovacoes < 0 {
		return nil, errors.New("EMPRESTIMO_MAX_RENOVACOES inválido")
	}

	cfg.OverdueSweepInterval, err = parseDurationEnv("OVERDUE_SWEEP_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	if cfg.OverdueSweepInterval < 0 {
		return nil, errors.New("OVERDUE_SWEEP_INTERVAL inválido")
	}

	cfg.SlackWebhookURL = strings.TrimSpace(getEnv("SLACK_WEBHOOK_URL", ""))
	cfg.AMQPURL = strings.TrimSpace(getEnv("AMQP_URL", ""))

	cfg.Storage, err = loadStorage()
	if err != nil {
		return nil, err
	}

	maxBytes, err := parseIntEnv("UPLOAD_MAX_BYTES", 5<<20)
	if err != nil || maxBytes <= 0 {
		return nil, errors.New("UPLOAD_MAX_BYTES inválido")
	}
	cfg.UploadMaxBytes = int64(maxBytes)

	cfg.OTLPEndpoint = strings.TrimSpace(getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info")))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", "console")))
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return nil, errors.New("LOG_FORMAT deve ser console ou json")
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	return cfg, nil
}

func loadStorage() (StorageConfig, error) {
	sc := StorageConfig{
		Provider:       strings.ToLower(strings.TrimSpace(getEnv("STORAGE_PROVIDER", "local"))),
		StaticDir:      strings.TrimSpace(getEnv("STATIC_DIR", "./static")),
		MinioEndpoint:  strings.TrimSpace(getEnv("MINIO_ENDPOINT", "")),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    strings.TrimSpace(getEnv("MINIO_BUCKET", "")),
		MinioPublicURL: strings.TrimSpace(getEnv("MINIO_PUBLIC_URL", "")),
	}

	useSSL, err := parseBoolEnv("MINIO_USE_SSL", true)
	if err != nil {
		return StorageConfig{}, err
	}
	sc.MinioUseSSL = useSSL

	switch sc.Provider {
	case "local":
		if sc.StaticDir == "" {
			return StorageConfig{}, errors.New("STATIC_DIR obrigatório")
		}
	case "minio":
		if sc.MinioEndpoint == "" || sc.MinioBucket == "" {
			return StorageConfig{}, errors.New("MINIO_ENDPOINT e MINIO_BUCKET obrigatórios")
		}
	default:
		return StorageConfig{}, errors.New("STORAGE_PROVIDER deve ser local ou minio")
	}
	return sc, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseIntEnv(key string, def int) (int, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.New(key + " inválido")
	}
	return b, nil
}
