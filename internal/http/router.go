package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/veridian/biblioteca/internal/acervo"
	"github.com/veridian/biblioteca/internal/config"
	httpmiddleware "github.com/veridian/biblioteca/internal/http/middleware"
	"github.com/veridian/biblioteca/internal/monitor"
	"github.com/veridian/biblioteca/internal/service"
	"github.com/veridian/biblioteca/internal/storage"
)

// Pinger é satisfeito pelo pool do pgx.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps reúne o que o roteador precisa; main monta tudo.
type Deps struct {
	Config   *config.Config
	DB       Pinger
	Redis    *redis.Client
	Auth     *service.AuthService
	Acervo   *acervo.Service
	Uploader storage.Uploader
	Monitor  *monitor.Service
}

type Handler struct {
	cfg           *config.Config
	db            Pinger
	redis         *redis.Client
	authService   *service.AuthService
	monitor       *monitor.Service
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter devolve roteador configurado.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	h := &Handler{
		cfg:           cfg,
		db:            deps.DB,
		redis:         deps.Redis,
		authService:   deps.Auth,
		monitor:       deps.Monitor,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	handlerOpts := []acervo.HandlerOption{acervo.WithUploader(deps.Uploader, cfg.UploadMaxBytes)}
	if cfg.AuthRequired {
		handlerOpts = append(handlerOpts, acervo.WithWriteGuard(httpmiddleware.RequireRoles(string(acervo.RoleAdmin))))
	}
	acervoHandler := acervo.NewHandler(deps.Acervo, handlerOpts...)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		if cfg.Storage.Provider == "local" {
			fs := http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.Storage.StaticDir)))
			public.Handle("/static/*", fs)
		}

		public.Post("/auth/login", h.Login)
		public.Post("/auth/refresh", h.Refresh)
		public.Post("/auth/logout", h.Logout)

		if !cfg.AuthRequired {
			acervo.Mount(public, acervoHandler)
		}
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(h.authService.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/auth/me", h.Me)

		if h.monitor != nil {
			private.Route("/monitor", func(m chi.Router) {
				m.Use(httpmiddleware.RequireRolesForWrites(string(acervo.RoleAdmin)))
				m.Get("/varredura", h.MonitorResumo)
				m.Post("/varredura", h.MonitorRun)
			})
		}

		if cfg.AuthRequired {
			acervo.Mount(private, acervoHandler)
		}
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.db.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// MonitorResumo devolve o estado da última varredura de atrasados.
func (h *Handler) MonitorResumo(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.monitor.Resumo())
}

// MonitorRun força uma varredura fora do intervalo.
func (h *Handler) MonitorRun(w http.ResponseWriter, r *http.Request) {
	n, err := h.monitor.RunOnce(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "falha na varredura", nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int64{"atualizados": n})
}
