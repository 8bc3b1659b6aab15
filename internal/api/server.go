package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"intrusion-worker-go/internal/api/handlers"
	"intrusion-worker-go/internal/config"
	"intrusion-worker-go/internal/services"
)

type Server struct {
	config   *config.Config
	router   *gin.Engine
	server   *http.Server
	services *services.ServiceContainer
	registry prometheus.Gatherer

	healthHandler   *handlers.HealthHandler
	cameraHandler   *handlers.CameraHandler
	galleryHandler  *handlers.GalleryHandler
	logsHandler     *handlers.IntrusionLogHandler
	settingsHandler *handlers.SettingsHandler
}

// Dependencies are the services the HTTP API is built on. The interfaces let tests supply fakes.
type Dependencies struct {
	Cameras    handlers.CameraService
	Stats      handlers.CameraStats
	Detector   handlers.DetectorHealth
	Matcher    handlers.GallerySize
	Gallery    handlers.GalleryStore
	Reloader   handlers.GalleryReloader
	Logs       handlers.LogPager
	Dispatcher handlers.AlertDispatcher
	Settings   handlers.AlertSettings
	Registry   prometheus.Gatherer
}

// NewServer creates the worker's services and the HTTP server in front of them.
func NewServer(cfg *config.Config) (*Server, error) {
	sc, err := services.NewServiceContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	s := NewServerWith(cfg, Dependencies{
		Cameras:    sc.CameraManager,
		Stats:      sc.CameraManager,
		Detector:   sc.DetectionSvc,
		Matcher:    sc.CameraManager,
		Gallery:    sc.Gallery,
		Reloader:   sc.CameraManager,
		Logs:       sc.Logs,
		Dispatcher: sc.Dispatcher,
		Settings:   sc.Settings,
		Registry:   sc.Registry,
	})
	s.services = sc
	return s, nil
}

// NewServerWith builds the router over already constructed dependencies.
func NewServerWith(cfg *config.Config, deps Dependencies) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:          cfg,
		router:          gin.New(),
		registry:        deps.Registry,
		healthHandler:   handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, deps.Stats, deps.Detector, deps.Matcher),
		cameraHandler:   handlers.NewCameraHandler(deps.Cameras),
		galleryHandler:  handlers.NewGalleryHandler(deps.Gallery, deps.Reloader, cfg.PreviewMaxSize),
		logsHandler:     handlers.NewIntrusionLogHandler(deps.Logs, deps.Dispatcher),
		settingsHandler: handlers.NewSettingsHandler(deps.Settings),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("🚀 Starting intrusion worker API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then stops the camera loops and the services.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("🛑 Stopping intrusion worker API")

	var errs []error
	if err := s.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	if s.services != nil {
		if err := s.services.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
