package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"melodex/internal/core"
	"melodex/internal/flood"
	"melodex/internal/i18n"
	"melodex/pkg/musiclink"
)

const serviceName = "melodex"

// Importer is the import pipeline behind the API.
type Importer interface {
	Resolve(ctx context.Context, provider musiclink.Provider, url string) (*musiclink.Playlist, error)
	Detect(url string) (musiclink.Provider, bool)
}

// Dependencies are the collaborators the server routes requests to.
type Dependencies struct {
	Importer  Importer
	Floodgate *flood.Floodgate
	Metrics   *Metrics
	// Language is the fallback response language.
	Language string
}

type Server struct {
	config    *core.ServerConfig
	logger    *zap.Logger
	server    *http.Server
	metrics   *Metrics
	importer  Importer
	floodgate *flood.Floodgate
	language  string
}

func NewServer(config *core.ServerConfig, logger *zap.Logger, deps Dependencies) *Server {
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	if !i18n.IsSupported(deps.Language) {
		deps.Language = i18n.DefaultLanguage
	}

	s := &Server{
		config:    config,
		logger:    logger,
		metrics:   deps.Metrics,
		importer:  deps.Importer,
		floodgate: deps.Floodgate,
		language:  deps.Language,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(secureHeaders)
	r.Use(s.cors)
	r.Use(s.localize)

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
	})
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/", s.handleHome)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Get("/resolve", s.handleDetectAndResolve)
		r.Get("/{provider}/resolve", s.handleResolve)
		r.Get("/users/{username}/playlists/{kind}", s.handleYandexOwnerPlaylist)
	})

	return r
}

// Handler returns the root handler, used by tests to serve requests without listening.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr),
		zap.String("corsOrigin", s.config.CORSOrigin))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), core.DefaultShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}
