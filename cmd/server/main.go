package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"privacy-chatter/internal/analytics"
	"privacy-chatter/internal/chat"
	"privacy-chatter/internal/config"
	"privacy-chatter/internal/gate"
	"privacy-chatter/internal/history"
	"privacy-chatter/internal/httpapi"
	"privacy-chatter/internal/llm"
	"privacy-chatter/internal/logger"
	"privacy-chatter/internal/scheduler"
	"privacy-chatter/internal/storage"
	"privacy-chatter/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run wires the service and blocks until SIGINT/SIGTERM or a server failure.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lg, closeLog, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer closeLog()
	slog.SetDefault(lg)

	client, err := llm.NewClient(cfg, lg)
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}
	lg.Info("llm client ready", "provider", cfg.LLMProvider, "model", cfg.OpenAIModel,
		"gate_model", cfg.GateModelOrDefault(), "api_key_len", len(cfg.OpenAIAPIKey))

	store := history.NewManager(readSystemPrompt(cfg.SystemPromptPath, lg))

	var rec storage.Recorder = storage.NewMemoryRecorder()
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			lg.Warn("failed to init interaction log, keeping events in memory", "path", cfg.LogFilePath, "error", err)
		} else {
			rec = fr
		}
	}

	topicGate := gate.New(client, gate.Options{
		Model:     cfg.GateModelOrDefault(),
		Threshold: cfg.GateThreshold,
		Logger:    lg.With("component", "gate"),
	})
	svc := chat.New(store, client, topicGate, chat.Options{
		Model:    cfg.OpenAIModel,
		Recorder: rec,
		Logger:   lg.With("component", "chat"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ReportCron != "" {
		sched := scheduler.New(cfg.ReportCron, lg.With("component", "scheduler"))
		sched.SetReportFunction(func(context.Context) error {
			stats, err := analytics.LoadDailyStats(rec, time.Now().UTC())
			if err != nil {
				return err
			}
			lg.Info("daily report", "date", stats.Date, "messages", stats.TotalMessages,
				"users", stats.UniqueUsers, "summary", stats.GenerateReportSummary())
			return nil
		})
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	botDone := make(chan struct{})
	if cfg.TelegramBotToken != "" {
		bot, err := telegram.New(cfg.TelegramBotToken, svc, lg.With("component", "telegram"))
		if err != nil {
			lg.Error("telegram channel disabled", "error", err)
			close(botDone)
		} else {
			go func() {
				defer close(botDone)
				bot.Start(ctx)
			}()
		}
	} else {
		close(botDone)
	}

	srv := httpapi.New(svc, client, httpapi.Options{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.AllowedOrigins,
		WriteTimeout:   2*cfg.UpstreamTimeout + 5*time.Second,
		Recorder:       rec,
		Conversations:  store.Len,
		BreakerState:   client.State,
		Logger:         lg.With("component", "http"),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var serveErr error
	select {
	case serveErr = <-errCh:
		if serveErr != nil {
			serveErr = fmt.Errorf("http server failed: %w", serveErr)
		}
		stop()
	case <-ctx.Done():
		lg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("http shutdown failed", "error", err)
		}
	}
	<-botDone
	return serveErr
}

// readSystemPrompt returns the persona override, or "" to use the built-in one.
func readSystemPrompt(path string, lg *slog.Logger) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		lg.Warn("system prompt file not found or unreadable, using default persona", "path", path, "error", err)
		return ""
	}
	return strings.TrimSpace(string(data))
}
