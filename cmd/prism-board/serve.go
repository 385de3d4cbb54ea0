package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"prism-board/api"
	"prism-board/board"
	"prism-board/config"
	"prism-board/events"
	"prism-board/storage"
)

func serveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Log)

	store, err := storage.New(cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	var exporters []board.ActivityExporter
	if cfg.Export.QueueConnectionString != "" {
		exporter, err := storage.NewQueueExporter(cfg.Export.QueueConnectionString, cfg.Export.QueueName)
		if err != nil {
			return err
		}
		exporters = append(exporters, exporter)
	}
	recorder := board.NewRecorder(store, logger, exporters...)

	broker := api.NewBroker()
	var (
		reads     api.Storage = store
		deduper   api.Deduper
		notifiers []board.ChangeNotifier
	)
	if cfg.Redis.URL != "" {
		rc := newRedisClient(cfg.Redis.URL)
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			return err
		}
		cache := storage.NewCache(store, rc, cfg.Redis.CacheTTL)
		reads = cache
		deduper = api.NewRedisDeduper(rc, cfg.Redis.DedupeTTL)
		notifiers = append(notifiers, cache, events.NewPublisher(rc, cfg.Redis.UpdatesChannel, logger))
		go broker.Run(ctx, logger, rc, cfg.Redis.UpdatesChannel)
	} else {
		logger.Warn("redis not configured; running without cache, idempotency keys or cross-instance updates")
		notifiers = append(notifiers, broker)
	}

	svc := board.NewService(store, recorder, logger, notifiers...)

	auth, err := newAuth(cfg.Auth)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.SonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(api.DecompressRequests())
	e.Use(api.ObserveRequests(logger))

	api.Register(e, svc, reads, auth, deduper, logger)
	api.RegisterStream(e, reads, auth, broker)

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTP.Addr).Info("http.listening")
		if err := e.Start(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("http.shutdown")
	return e.Shutdown(shutdownCtx)
}

func newAuth(cfg config.AuthConfig) (*api.Auth, error) {
	if cfg.Mode == "hs256" {
		return api.NewAuth(cfg, nil)
	}
	jwks, err := keyfunc.Get(api.JWKSURL(cfg.Domain), keyfunc.Options{
		RefreshInterval: time.Hour,
		RefreshErrorHandler: func(err error) {
			log.WithError(err).Warn("jwks.refresh_failed")
		},
	})
	if err != nil {
		return nil, err
	}
	return api.NewAuth(cfg, jwks)
}
