// Command api runs the clipforge editing service
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clipforge/clipforge/pkg/api"
	"github.com/clipforge/clipforge/pkg/assistant"
	"github.com/clipforge/clipforge/pkg/auth"
	"github.com/clipforge/clipforge/pkg/config"
	"github.com/clipforge/clipforge/pkg/logging"
	"github.com/clipforge/clipforge/pkg/media"
	"github.com/clipforge/clipforge/pkg/render"
	"github.com/clipforge/clipforge/pkg/storage"
	"github.com/clipforge/clipforge/pkg/store"
	"github.com/clipforge/clipforge/pkg/subtitles"
)

var configPath = flag.String("config", "", "Path to YAML config file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(cfg.Verbose)
	logger := log.Logger

	uploadDir := filepath.Join(cfg.TempDir, "uploads")
	exportDir := filepath.Join(cfg.TempDir, "exports")
	for _, dir := range []string{uploadDir, exportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal().Err(err).Str("dir", dir).Msg("failed to create working directory")
		}
	}

	var runtimeOpts []media.RuntimeOption
	if cfg.FFmpegPath != "" {
		runtimeOpts = append(runtimeOpts, media.WithFFmpegPath(cfg.FFmpegPath))
	}
	if cfg.FFprobePath != "" {
		runtimeOpts = append(runtimeOpts, media.WithFFprobePath(cfg.FFprobePath))
	}
	runtime := media.NewRuntime(runtimeOpts...)

	s := store.NewMemoryStore()

	fetcherOpts := []storage.FetcherOption{storage.WithMaxBytes(cfg.MaxUploadSize)}
	if s3Backend, err := storage.NewS3Store(context.Background()); err == nil {
		fetcherOpts = append(fetcherOpts, storage.WithS3(s3Backend))
	} else {
		logger.Debug().Err(err).Msg("s3 ingest disabled")
	}

	bridge := assistant.NewBridge(
		assistant.NewOllamaClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel),
		logging.WithComponent("assistant"),
	)

	transcriber := subtitles.NewWhisperCLI(
		cfg.WhisperPath,
		filepath.Join(cfg.WhisperModels, cfg.WhisperModel),
	)

	server := api.NewServer(api.Options{
		Store:          s,
		Bridge:         bridge,
		Prober:         runtime,
		Fetcher:        storage.NewFetcher(fetcherOpts...),
		Exporter:       render.NewExporter(render.NewFilterGraph(runtime, logging.WithComponent("render")), exportDir, logging.WithComponent("render")),
		Subtitles:      subtitles.NewGenerator(runtime, transcriber, logging.WithComponent("subtitles")),
		UploadDir:      uploadDir,
		MaxUploadSize:  cfg.MaxUploadSize,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logging.WithComponent("api"),
	})
	defer server.Close()

	var handler http.Handler = server.Router()
	if cfg.AuthSecret != "" {
		authMiddleware := auth.NewAuthMiddleware(
			auth.NewJWTManager(cfg.AuthSecret, 24*time.Hour),
			auth.NewAPIKeyManager(),
			false,
		)
		mux := http.NewServeMux()
		mux.Handle("/api/", authMiddleware.Handler(handler))
		mux.Handle("/", handler)
		handler = mux
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go purgeStaleJobs(shutdownCtx, s, time.Duration(cfg.JobTTLSeconds)*time.Second)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Minute, // uploads and remote fetches are slow
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server stopped")
}

// purgeStaleJobs removes finished export jobs and their artifacts once
// they outlive the TTL
func purgeStaleJobs(ctx context.Context, s store.Store, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := s.PurgeExpired(ctx, time.Now().Add(-ttl))
			if err != nil {
				log.Warn().Err(err).Msg("job purge failed")
				continue
			}
			for _, job := range purged {
				if job.OutputPath != "" {
					if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
						log.Warn().Err(err).Str("path", job.OutputPath).Msg("failed to remove artifact")
					}
				}
			}
			if len(purged) > 0 {
				log.Info().Int("count", len(purged)).Msg("purged stale export jobs")
			}
		}
	}
}
