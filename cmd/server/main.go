package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/dgallion1/noteloop/internal/api"
	"github.com/dgallion1/noteloop/internal/classify"
	"github.com/dgallion1/noteloop/internal/config"
	"github.com/dgallion1/noteloop/internal/notes"
	"github.com/dgallion1/noteloop/internal/rewrite"
	"github.com/dgallion1/noteloop/internal/session"
	"github.com/dgallion1/noteloop/internal/synth"
	"github.com/dgallion1/noteloop/internal/transcribe"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	embed := chromem.NewEmbeddingFuncOllama(cfg.EmbedModel, cfg.OllamaURL)
	classifier := classify.New(embed, cfg.SimilarityConfident, cfg.SimilarityFloor, log)

	var synthesizer synth.Synthesizer
	var claude *synth.ClaudeClient
	if cfg.AnthropicAPIKey != "" {
		claude = synth.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.SynthTimeout)
		synthesizer = claude
	} else {
		log.Warn("ANTHROPIC_API_KEY not set, using deterministic fallback synthesis")
		synthesizer = synth.Fallback{}
	}

	store := notes.NewStore(cfg.DataDir)
	rewriter := rewrite.New(synthesizer, log)
	registry := session.NewRegistry(store, classifier, rewriter, log)

	results := session.NewResultStore(cfg.ResultTTL, cfg.MaxResults)
	processor := session.NewProcessor(registry, results, cfg.MaxQueueSize, log)
	processor.Start(ctx)

	var transcriber transcribe.Transcriber
	var whisper *transcribe.WhisperClient
	if cfg.GroqAPIKey != "" {
		whisper = transcribe.NewWhisperClient(cfg.GroqAPIKey, cfg.WhisperModel, cfg.TranscribeTimeout)
		transcriber = whisper
	} else {
		log.Warn("GROQ_API_KEY not set, audio uploads disabled")
	}

	srv := api.NewServer(registry, processor, transcriber, log, cfg)

	httpServer := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     srv,
		ReadTimeout: 30 * time.Second,
		// No write timeout: the SSE stream stays open indefinitely.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		processor.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if claude != nil {
			claude.Close()
		}
		if whisper != nil {
			whisper.Close()
		}
	}()

	log.Info("starting noteloop", "port", cfg.Port, "data_dir", cfg.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
