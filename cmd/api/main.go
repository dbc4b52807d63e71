package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/veridian/biblioteca/internal/acervo"
	"github.com/veridian/biblioteca/internal/auth"
	"github.com/veridian/biblioteca/internal/config"
	"github.com/veridian/biblioteca/internal/db"
	"github.com/veridian/biblioteca/internal/events"
	internalhttp "github.com/veridian/biblioteca/internal/http"
	"github.com/veridian/biblioteca/internal/monitor"
	"github.com/veridian/biblioteca/internal/service"
	"github.com/veridian/biblioteca/internal/storage"
	"github.com/veridian/biblioteca/internal/telemetry"
	"github.com/veridian/biblioteca/internal/util"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := setupLogger(cfg); err != nil {
		return err
	}

	loc, err := util.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "biblioteca-api", version)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("falha ao descarregar spans")
		}
	}()

	pool, err := db.NewPool(ctx, cfg.DBDSN, db.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	publisher, closePublisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		return err
	}

	acervoService := acervo.NewService(acervo.NewRepository(pool), acervo.Config{
		PrazoEmprestimoDias: cfg.PrazoEmprestimoDias,
		MaxRenovacoes:       cfg.MaxRenovacoes,
		Location:            loc,
	},
		acervo.WithCache(redisClient),
		acervo.WithPublisher(publisher),
		acervo.WithLogger(log.With().Str("component", "acervo").Logger()),
	)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	sessions := auth.NewSessionStore(redisClient, cfg.JWTRefreshTTL)
	authService := service.NewAuthService(acervoService, sessions, jwtManager)

	monitorService := monitor.NewService(
		acervoService,
		monitor.Config{Interval: cfg.OverdueSweepInterval},
		log.With().Str("component", "monitor").Logger(),
		monitor.NewSlackNotifier(cfg.SlackWebhookURL),
	)

	handler := internalhttp.NewRouter(internalhttp.Deps{
		Config:   cfg,
		DB:       pool,
		Redis:    redisClient,
		Auth:     authService,
		Acervo:   acervoService,
		Uploader: uploader,
		Monitor:  monitorService,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return monitorService.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("encerrando...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setupLogger(cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("LOG_LEVEL inválido: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return nil
}

func newPublisher(cfg *config.Config) (events.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		return events.NoopPublisher{}, func() {}, nil
	}
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, log.With().Str("component", "events").Logger())
	if err != nil {
		return nil, nil, fmt.Errorf("amqp: %w", err)
	}
	return p, func() { _ = p.Close() }, nil
}

func newUploader(ctx context.Context, cfg *config.Config) (storage.Uploader, error) {
	switch cfg.Storage.Provider {
	case "minio":
		u, err := storage.NewMinioUploader(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.MinioEndpoint,
			AccessKey: cfg.Storage.MinioAccessKey,
			SecretKey: cfg.Storage.MinioSecretKey,
			Bucket:    cfg.Storage.MinioBucket,
			UseSSL:    cfg.Storage.MinioUseSSL,
			PublicURL: cfg.Storage.MinioPublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		return u, nil
	default:
		u, err := storage.NewLocalUploader(cfg.Storage.StaticDir, "/static")
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		return u, nil
	}
}
