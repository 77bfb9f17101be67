package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frameforge/frameforge-agent/internal/api"
	"github.com/frameforge/frameforge-agent/internal/batch"
	"github.com/frameforge/frameforge-agent/internal/config"
	"github.com/frameforge/frameforge-agent/internal/db"
	"github.com/frameforge/frameforge-agent/internal/events"
	"github.com/frameforge/frameforge-agent/internal/export"
	"github.com/frameforge/frameforge-agent/internal/fetch"
	"github.com/frameforge/frameforge-agent/internal/generate"
	"github.com/frameforge/frameforge-agent/internal/logging"
	"github.com/frameforge/frameforge-agent/internal/playback"
	"github.com/frameforge/frameforge-agent/internal/provider"
	"github.com/frameforge/frameforge-agent/internal/render"
	"github.com/frameforge/frameforge-agent/internal/storage"
	"github.com/frameforge/frameforge-agent/internal/studio"
	"github.com/frameforge/frameforge-agent/internal/ui"
)

const redisPingTimeout = 3 * time.Second

func serve() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if headless {
		cfg.SetHeadless(true)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.AssetsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create assets dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting frameforge agent", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := studio.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Printf("║                 FRAMEFORGE AGENT v%-23s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Renders:    %-45d ║\n", cfg.MaxConcurrent())
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := fetch.New(fetch.WithLogger(logging.WithComponent(logger, "fetch")))
	local := storage.NewLocalStore(cfg.AssetsDir(), fetcher)
	store, err := newStore(ctx, cfg, local, fetcher, logger)
	if err != nil {
		return err
	}

	studioSvc := studio.NewService(repo, logger)
	creds := studio.NewCredentialStore(repo, cfg)
	registry := provider.NewRegistry(creds, fetcher, logging.WithComponent(logger, "provider"))
	gen := generate.New(repo, registry, store, fetcher, logger)

	hub := events.NewHub(logging.WithComponent(logger, "events"))
	go hub.Run(ctx)
	emitter := events.Multi{hub}

	if rc := cfg.Redis(); rc.Enabled() {
		rdb := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		defer rdb.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, redisPingTimeout)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, progress mirroring may lag", "addr", rc.Addr, "error", err)
		}
		pingCancel()

		pub := events.NewRedisPublisher(rdb, logging.WithComponent(logger, "redis"))
		go pub.Run(ctx)
		emitter = append(emitter, pub)
		logger.Info("redis progress mirroring enabled", "addr", rc.Addr)
	}

	queue := render.New(repo, gen, emitter, cfg.MaxConcurrent(), logger)
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start render queue: %w", err)
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:        cfg.Port(),
		Version:     config.Version,
		Repository:  repo,
		Studio:      studioSvc,
		Queue:       queue,
		Batch:       batch.NewService(repo, gen, emitter, logger),
		Generator:   gen,
		Credentials: creds,
		Exporter:    export.NewExporter(repo, cfg.AssetsDir(), logger),
		Playback:    playback.NewServer(local, logger),
		Events:      hub,
		Logger:      logger,
		StartTime:   startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})
	quit := onceCloser(quitCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			quit()
		case <-quitCh:
		}
	}()

	var tray *ui.Tray
	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray = ui.NewTray(ui.TrayConfig{
			Queue:  queue,
			Logger: logger,
			OnQuit: quit,
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}
	queue.Wait()

	logger.Info("shutdown complete")
	return nil
}

// newStore picks where generated assets live. Playback and exports always
// read from the local assets dir.
func newStore(ctx context.Context, cfg config.Config, local *storage.LocalStore, d storage.Downloader, logger *slog.Logger) (storage.Store, error) {
	sc := cfg.Storage()
	if sc.Backend != config.StorageS3 {
		return local, nil
	}
	s3, err := storage.NewS3Store(ctx, sc, d)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
	}
	logger.Info("storing assets in s3", "bucket", sc.Bucket)
	return s3, nil
}

// onceCloser returns a func that closes ch on its first call only. Both a
// signal and the tray can request shutdown.
func onceCloser(ch chan struct{}) func() {
	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

func ensureAuthToken(repo studio.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
