package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/frameforge/frameforge-agent/internal/batch"
	"github.com/frameforge/frameforge-agent/internal/export"
	"github.com/frameforge/frameforge-agent/internal/playback"
	"github.com/frameforge/frameforge-agent/internal/provider"
	"github.com/frameforge/frameforge-agent/internal/render"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

// AssetGenerator renders character and scene assets on request.
type AssetGenerator interface {
	CharacterAvatar(ctx context.Context, characterID string, progress provider.ProgressFunc) error
	CharacterAppearance(ctx context.Context, characterID string, progress provider.ProgressFunc) error
	CharacterThreeView(ctx context.Context, characterID string, progress provider.ProgressFunc) error
	SceneImage(ctx context.Context, sceneID string, progress provider.ProgressFunc) error
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port        int
	Version     string
	Repository  studio.Repository
	Studio      studio.StudioService
	Queue       *render.Queue
	Batch       *batch.Service
	Generator   AssetGenerator
	Credentials *studio.CredentialStore
	Exporter    *export.Exporter
	Playback    *playback.Server
	Events      http.Handler
	Logger      *slog.Logger
	StartTime   time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:        fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:     router,
			ReadTimeout: 15 * time.Second,
			// Synchronous generation and websocket streams outlive any fixed
			// write deadline.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
