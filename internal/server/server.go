// Package server собирает gin-маршрутизатор приложения и запускает HTTP-сервер
// с graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/sessions/memstore"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"shapeshift3d/internal/config"
	"shapeshift3d/internal/handlers"
	"shapeshift3d/internal/logger"
	"shapeshift3d/internal/metrics"
	"shapeshift3d/internal/middleware"
	"shapeshift3d/internal/services"
	"shapeshift3d/internal/storage"
	"shapeshift3d/web"
)

const (
	sessionCookieName = "shapeshift_session"
	shutdownTimeout   = 10 * time.Second
)

// Deps - внешние зависимости маршрутизатора. Redis необязателен.
type Deps struct {
	Store   storage.Store
	Redis   *redis.Client
	Metrics *metrics.Metrics
}

// NewRouter создает gin engine со всеми middleware и маршрутами.
func NewRouter(cfg *config.Config, deps Deps) (*gin.Engine, error) {
	if deps.Store == nil {
		return nil, errors.New("не задано хранилище записей")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	users := services.NewUserDirectory(deps.Store, cfg.BcryptCost)
	catalog := services.NewModelCatalog(deps.Store)
	intake := services.NewIntake(cfg.UploadPath, cfg.AllowedExtensions, catalog)
	h := handlers.New(users, catalog, intake, deps.Metrics, cfg.MaxUploadSize)

	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("ошибка установки доверенных прокси: %w", err)
	}
	router.MaxMultipartMemory = handlers.MultipartMemory

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора шаблонов: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	router.Use(
		gin.Recovery(),
		middleware.AccessLog(logger.L),
		deps.Metrics.Middleware(),
		sessions.Sessions(sessionCookieName, newSessionStore(cfg)),
		middleware.BodyLimit(cfg.MaxUploadSize),
	)

	router.StaticFS("/static", http.FS(web.Static()))
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	router.GET("/healthz", h.Healthz)

	loginLimit := middleware.RateLimit(deps.Redis, cfg.LoginRateLimit, cfg.LoginRateWindow)

	public := router.Group("/")
	{
		public.GET("/", h.ShowHomePage)
		public.GET("/login", h.ShowLoginPage)
		public.POST("/login", loginLimit, h.HandleLogin)
		public.GET("/register", h.ShowRegisterPage)
		public.POST("/register", loginLimit, h.HandleRegister)
		public.GET("/logout", h.HandleLogout)

		public.GET("/features", h.ShowFeaturesPage)
		public.GET("/about", h.ShowAboutPage)
		public.GET("/demo", h.ShowDemoPage)
		public.GET("/contact", h.ShowContactPage)
		public.POST("/contact", h.HandleContact)
	}

	protected := router.Group("/")
	protected.Use(middleware.AuthRequired())
	{
		protected.GET("/dashboard", h.ShowDashboard)
		protected.GET("/upload", h.ShowUploadPage)
		protected.POST("/upload", h.HandleUpload)
		protected.GET("/draw", h.ShowDrawPage)
		protected.POST("/draw", h.HandleDraw)
		protected.GET("/models", h.ShowModels)
	}

	return router, nil
}

func newSessionStore(cfg *config.Config) sessions.Store {
	var store sessions.Store
	if cfg.SessionStore == config.SessionStoreMemory {
		store = memstore.NewStore([]byte(cfg.SessionSecret))
	} else {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// Server - HTTP-сервер приложения.
type Server struct {
	httpServer *http.Server
}

// New создает HTTP-сервер на порту LISTEN_PORT.
func New(cfg *config.Config, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.ListenPort,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Run запускает сервер и ждет SIGINT или SIGTERM, после чего завершает его.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		logger.L.Info().Str("addr", s.httpServer.Addr).Msg("HTTP-сервер запущен")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.L.Info().Str("signal", sig.String()).Msg("получен сигнал завершения")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}
	logger.L.Info().Msg("HTTP-сервер остановлен")
	return nil
}
