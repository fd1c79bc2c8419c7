package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/pdf2llm/internal/api"
	"github.com/dgallion1/pdf2llm/internal/config"
	"github.com/dgallion1/pdf2llm/internal/embed"
	"github.com/dgallion1/pdf2llm/internal/ocr"
	"github.com/dgallion1/pdf2llm/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	var rec ocr.Recognizer
	engine, err := ocr.New(ocr.Options{Language: cfg.OCRLanguage})
	if err != nil {
		log.Warn("ocr unavailable, scanned pages fall back to their text layer", "error", err)
	} else {
		rec = engine
	}

	stats := embed.NewStats(time.Hour)
	embedCfg := cfg.EmbedConfig()
	embedCfg.Stats = stats
	embedCfg.Logger = log
	emb, closeEmb, err := embed.New(ctx, embedCfg)
	if err != nil {
		log.Error("failed to create embedder", "provider", cfg.EmbeddingProvider, "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, rec, emb, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, emb, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if err := closeEmb(); err != nil {
			log.Warn("embedder close failed", "error", err)
		}
		engine.Close()
	}()

	log.Info("starting pdf2llm", "port", cfg.Port, "embedding", emb.Model(), "ocr", rec != nil)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
