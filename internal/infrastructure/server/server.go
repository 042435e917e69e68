package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/GriffinCanCode/AgentOS/windowing/internal/api/http"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/api/middleware"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/blueprint"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/engine"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/providers/configstore"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/providers/language"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/providers/permissions"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/providers/script"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/reload"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/router"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	engine  *engine.Engine
	router  *router.Router
	hub     *ws.Hub
	scripts *script.Runner
	watcher *reload.Watcher
	handler *gin.Engine
	seeded  *blueprint.SeedResult
}

// New builds the engine and its transports from cfg and loads the menu
// blueprints.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewDefault()
	}
	logger.Info("Initializing windowing server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("blueprints", cfg.Storage.BlueprintDir),
	)

	metrics := monitoring.NewMetrics()

	langStore, err := configstore.Open(cfg.Storage.LanguageFile)
	if err != nil {
		return nil, fmt.Errorf("open language file: %w", err)
	}
	permStore, err := configstore.Open(cfg.Storage.PermissionsFile)
	if err != nil {
		return nil, fmt.Errorf("open permissions file: %w", err)
	}

	hubOpts := []ws.Option{ws.WithLogger(logger.Logger), ws.WithMetrics(metrics)}
	if cfg.RateLimit.Enabled {
		hubOpts = append(hubOpts, ws.WithRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	hub := ws.NewHub(hubOpts...)

	eng, err := engine.New(engine.Options{
		Host:        hub,
		Localizer:   language.New(langStore),
		Permissions: permissions.New(permStore),
		RenderDelay: cfg.Render.Delay,
		Logger:      logger.Component("engine"),
		Metrics:     metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	guardLog := logger.Component("guard")
	guard := resilience.NewGuard(resilience.Settings{
		MaxFailures: cfg.Guard.MaxFailures,
		Cooldown:    cfg.Guard.Cooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			guardLog.Warn("button breaker changed state",
				zap.String("button", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})
	rt := router.New(eng,
		router.WithGuard(guard),
		router.WithLogger(logger.Component("router")),
		router.WithMetrics(metrics),
	)
	hub.Attach(eng, rt)

	s := &Server{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		engine:  eng,
		router:  rt,
		hub:     hub,
	}

	var compiler blueprint.ScriptCompiler
	if cfg.Script.Enabled {
		s.scripts = script.NewRunner(script.Config{
			Timeout:  cfg.Script.Timeout,
			PoolSize: cfg.Script.PoolSize,
		}, logger.Logger)
		compiler = s.scripts.CompileButton
	}
	seeder := blueprint.NewSeeder(blueprint.NewBuilder(eng, compiler), cfg.Storage.BlueprintDir, logger.Logger)
	s.seeded, err = seeder.Seed(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load blueprints: %w", err)
	}

	if cfg.Storage.Watch {
		s.watcher = reload.New(reload.WithLogger(logger.Logger), reload.WithMetrics(metrics))
		if err := s.watcher.Watch("language", cfg.Storage.LanguageFile, langStore.Load); err != nil {
			s.Close()
			return nil, err
		}
		if err := s.watcher.Watch("permissions", cfg.Storage.PermissionsFile, permStore.Load); err != nil {
			s.Close()
			return nil, err
		}
		s.watcher.OnReload(eng.ResetAll)
	}

	s.handler = s.routes()
	logger.Info("Server initialized successfully",
		zap.Int("clusters", eng.Stats().Clusters),
		zap.Int("blueprints_failed", len(s.seeded.Failed)),
	)
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	log := s.logger.Logger
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(monitoring.Middleware(s.metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: s.config.RateLimit.RequestsPerSecond,
			Burst:             s.config.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(s.engine, s.hub, s.metrics, s.logger.Logger)
	apihttp.RegisterRoutes(r, handlers, s.hub.HandleConnection, gin.WrapH(s.metrics.Handler()))
	return r
}

// Handler returns the HTTP handler serving the admin API and the stream.
func (s *Server) Handler() http.Handler { return s.handler }

// Engine returns the engine.
func (s *Server) Engine() *engine.Engine { return s.engine }

// Seeded reports which blueprints were loaded at startup.
func (s *Server) Seeded() *blueprint.SeedResult { return s.seeded }

// Run serves until ctx is done or the listener fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Server.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.watcher != nil {
		if err := s.watcher.Start(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			s.watcher.Wait()
			return nil
		})
	}
	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.hub.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases the engine and script runtimes.
func (s *Server) Close() {
	s.engine.Close()
	if s.scripts != nil {
		s.scripts.Close()
	}
	_ = s.logger.Sync()
}
