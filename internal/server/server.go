package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/mediscan/internal/analysis"
	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/config"
	"github.com/jackzampolin/mediscan/internal/home"
	"github.com/jackzampolin/mediscan/internal/metrics"
	"github.com/jackzampolin/mediscan/internal/prompts"
	promptset "github.com/jackzampolin/mediscan/internal/prompts/analysis"
	"github.com/jackzampolin/mediscan/internal/providers"
	"github.com/jackzampolin/mediscan/internal/render"
	"github.com/jackzampolin/mediscan/internal/report"
	"github.com/jackzampolin/mediscan/internal/server/endpoints"
	"github.com/jackzampolin/mediscan/internal/svcctx"
)

// sweepInterval is how often expired sessions are dropped.
const sweepInterval = time.Minute

// Server is the MediScan HTTP server.
type Server struct {
	httpServer *http.Server
	registry   *providers.Registry
	pipeline   *analysis.Pipeline
	sessions   *analysis.SessionStore
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	running  bool
	listener net.Listener
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host from config)
	Host string
	// Port is the port to listen on (default: server.port from config).
	// "0" picks a free port; Addr reports it once started.
	Port string
	// ConfigManager provides configuration with hot-reload support.
	// When nil, DefaultConfig is used.
	ConfigManager *config.Manager
	// Registry overrides the registry built from config.
	Registry *providers.Registry
	// Home is the MediScan home directory. Prompt overrides live in its
	// prompts directory unless prompts_dir is configured.
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	conf := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		conf = cfg.ConfigManager.Get()
	}
	if cfg.Host == "" {
		cfg.Host = conf.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = conf.Server.Port
	}

	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		registry.Reload(conf.ToProviderRegistryConfig())

		if cfg.ConfigManager != nil {
			cfg.ConfigManager.OnChange(func(c *config.Config) {
				registry.Reload(c.ToProviderRegistryConfig())
				cfg.Logger.Info("provider registry reloaded from config")
			})
		}
	}

	comps, err := Assemble(conf, registry, cfg.Home, cfg.Logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		registry:  registry,
		pipeline:  comps.Pipeline,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
		sessions:  analysis.NewSessionStore(conf.SessionTTL()),
	}

	s.services = &svcctx.Services{
		Registry:       registry,
		Pipeline:       s.pipeline,
		Sessions:       s.sessions,
		PromptResolver: comps.Resolver,
		Metrics:        comps.Metrics,
		Extract:        comps.Extract,
		DefaultFormat:  comps.Format,
		MaxUploadBytes: conf.MaxUploadBytes(),
		Logger:         cfg.Logger,
		Home:           cfg.Home,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{AnalysisProvider: conf.Defaults.AnalysisProvider}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	// WriteTimeout covers a full analysis, provider calls included.
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Components are the parts of the analysis stack built from config.
type Components struct {
	Resolver *prompts.Resolver
	Pipeline *analysis.Pipeline
	Metrics  *metrics.Recorder
	Extract  report.ExtractOptions
	Format   render.Format
}

// Assemble builds the prompt resolver, analyzer and pipeline described by
// conf on top of registry. Prompt overrides are read from prompts_dir, or
// from the home prompts directory when h is not nil.
func Assemble(conf *config.Config, registry *providers.Registry, h *home.Dir, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	format, err := conf.ReportFormat()
	if err != nil {
		return nil, err
	}

	var store *prompts.Store
	switch {
	case conf.PromptsDir != "":
		store = prompts.NewStore(conf.PromptsDir)
	case h != nil:
		store = prompts.NewStore(h.PromptsPath())
	}
	resolver := prompts.NewResolver(store, logger)
	promptset.RegisterPrompts(resolver)

	extract := conf.ExtractOptions()
	recorder := metrics.NewRecorder(metrics.DefaultCapacity)
	analyzer, err := analysis.NewAnalyzer(analysis.AnalyzerConfig{
		Registry:            registry,
		AnalysisProvider:    conf.Defaults.AnalysisProvider,
		InteractionProvider: conf.Defaults.InteractionProvider,
		Resolver:            resolver,
		Metrics:             recorder,
		Extract:             extract,
		Logger:              logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	return &Components{
		Resolver: resolver,
		Metrics:  recorder,
		Extract:  extract,
		Format:   format,
		Pipeline: analysis.NewPipeline(analysis.PipelineConfig{
			Analyzer:       analyzer,
			Synthesizer:    render.NewSynthesizer(conf.ReportStyle(), logger),
			Extract:        extract,
			FilenamePrefix: conf.Report.FilenamePrefix,
			Logger:         logger,
		}),
	}, nil
}

// Start starts the server. It blocks until the context is cancelled or an
// error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go s.sessions.RunSweeper(sweepCtx, sweepInterval, s.logger)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.mu.Lock()
	s.running = false
	s.listener = nil
	s.mu.Unlock()
	s.logger.Info("server stopped")
	return nil
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address. Once started it is the bound
// address, which resolves port "0".
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Pipeline returns the analysis pipeline.
func (s *Server) Pipeline() *analysis.Pipeline {
	return s.pipeline
}

// Sessions returns the result store.
func (s *Server) Sessions() *analysis.SessionStore {
	return s.sessions
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that returns 503 until the pipeline and
// session store exist.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services == nil || s.services.Pipeline == nil || s.services.Sessions == nil {
			api.WriteError(w, http.StatusServiceUnavailable, "server not fully initialized")
			return
		}
		next(w, r)
	}
}
