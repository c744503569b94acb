package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"vidfetch/internal/history"
	"vidfetch/internal/httpapi"
	"vidfetch/internal/logging"
	"vidfetch/internal/transform"
	"vidfetch/internal/uploads"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), ctx, strings.TrimSpace(bind))
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides [server] bind)")
	return cmd
}

func runServer(cmdCtx context.Context, ctx *commandContext, bindOverride string) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kit, err := ctx.toolkit()
	if err != nil {
		return err
	}
	cfg, logger := kit.cfg, kit.logger

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another vidfetch server holds %s", cfg.LockPath())
	}
	defer func() { _ = lock.Unlock() }()

	kit.cache.Start(signalCtx)
	defer kit.cache.Close()

	var recorder transform.Recorder
	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = store
		logger.Info("job history enabled", logging.String("path", store.Path()))
	}

	pipeline, err := kit.pipeline(recorder)
	if err != nil {
		return err
	}
	pipeline.SweepStale(signalCtx)
	defer pipeline.CancelAll()

	uploadStore, err := uploads.NewManager(uploads.Options{
		Dir:           cfg.Uploads.Dir,
		MaxBytes:      cfg.Uploads.MaxBytes,
		Retention:     cfg.UploadRetention(),
		SweepInterval: cfg.UploadSweepInterval(),
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	if err := uploadStore.Start(signalCtx); err != nil {
		return err
	}
	defer uploadStore.Close()

	chain := kit.captions()
	if ok, _ := chain.SpeechAvailable(signalCtx); !ok {
		logging.WarnWithContext(logger, "speech fallback unavailable", "speech_engine_missing",
			logging.String(logging.FieldImpact, "uploads without embedded captions cannot be transcribed"),
			logging.String(logging.FieldErrorHint, "install openai-whisper or set [binaries] whisper"),
		)
	}

	handler := httpapi.NewHandler(httpapi.Options{
		Info:     kit.extractor,
		Pipeline: pipeline,
		Uploads:  uploadStore,
		Captions: chain,
		Logger:   logger,
		Started:  time.Now(),
	})
	bind := cfg.Server.Bind
	if bindOverride != "" {
		bind = bindOverride
	}
	server, err := httpapi.NewServer(handler.Router(), httpapi.ServerOptions{
		Bind:              bind,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeoutSeconds) * time.Second,
		ShutdownTimeout:   time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
		Logger:            logger,
	})
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-signalCtx.Done():
		logger.Info("vidfetch shutting down")
	case err, ok := <-server.Errors():
		if ok && err != nil {
			serveErr = fmt.Errorf("http serve: %w", err)
		}
	}
	// Streaming handlers only return once their job ends.
	pipeline.CancelAll()
	if err := server.Shutdown(cmdCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return serveErr
}
