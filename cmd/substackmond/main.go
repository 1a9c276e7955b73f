package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"substackmon/internal/config"
	"substackmon/internal/daemon"
	"substackmon/internal/keepalive"
	"substackmon/internal/logging"
	"substackmon/internal/marker"
	"substackmon/internal/monitor"
	"substackmon/internal/postmark"
	"substackmon/internal/substack"
	"substackmon/internal/summarizer"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, ""); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := marker.Open(cfg)
	if err != nil {
		return fmt.Errorf("open marker store: %w", err)
	}

	source := substack.NewClient(cfg.Substack.URL,
		substack.WithTimeout(time.Duration(cfg.Substack.RequestTimeout)*time.Second))
	gemini := summarizer.NewClient(summarizer.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.Model,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})
	mailer := postmark.NewClient(postmark.Config{
		ServerToken:    cfg.Postmark.ServerToken,
		Sender:         cfg.Postmark.Sender,
		Recipients:     cfg.Postmark.Recipients,
		MessageStream:  cfg.Postmark.MessageStream,
		RequestTimeout: cfg.Postmark.RequestTimeout,
	})

	mon := monitor.New(source, gemini, mailer, store, logger,
		monitor.WithPollInterval(time.Duration(cfg.Monitor.CheckInterval)*time.Second),
		monitor.WithSubject(monitor.SubjectFor(cfg.Substack.URL)))

	pingTarget := cfg.Keepalive.BaseURL
	if pingTarget == "" {
		pingTarget = "http://" + cfg.Paths.APIBind
	}
	pinger := keepalive.New(pingTarget, logger,
		keepalive.WithInterval(time.Duration(cfg.Keepalive.Interval)*time.Second))

	d, err := daemon.New(cfg, store, mon, pinger, logger)
	if err != nil {
		store.Close() //nolint:errcheck
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close() //nolint:errcheck

	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-ctx.Done()
	logger.Info("substackmond shutting down")
	return nil
}
