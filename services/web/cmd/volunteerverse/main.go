package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gormlogger "gorm.io/gorm/logger"

	"volunteerverse/pkg/bus"
	"volunteerverse/pkg/db"
	"volunteerverse/pkg/render"
	gos3 "volunteerverse/pkg/s3"
	"volunteerverse/pkg/telemetry"
	"volunteerverse/services/web/internal/activity"
	"volunteerverse/services/web/internal/auth"
	"volunteerverse/services/web/internal/config"
	"volunteerverse/services/web/internal/gate"
	"volunteerverse/services/web/internal/handlers"
	"volunteerverse/services/web/internal/profile"
	"volunteerverse/services/web/internal/ratelimit"
	"volunteerverse/services/web/internal/session"
	"volunteerverse/services/web/internal/store"
)

const serviceName = "volunteerverse"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logger := cfg.Logger()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("volunteerverse exited")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	pool, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}

	orm, err := db.OpenORM(pool, gormlogger.Warn)
	if err != nil {
		return err
	}
	st, err := store.New(pool, orm)
	if err != nil {
		return err
	}

	limiter, err := ratelimit.NewFromURL(cfg.RedisURL, "volunteerverse:login:", int64(cfg.LoginRateLimit), cfg.LoginRateWindow)
	if err != nil {
		return err
	}
	defer limiter.Close()

	authSvc, err := auth.NewService(st, limiter, auth.Config{
		SigningKey: []byte(cfg.JWTSigningKey),
		AccessTTL:  cfg.AccessTokenTTL,
		SessionTTL: cfg.SessionTTL,
	}, logger)
	if err != nil {
		return err
	}

	sessions, err := session.NewManager(authSvc, session.CookieOptions{
		Name:     cfg.CookieName,
		Domain:   cfg.CookieDomain,
		MaxAge:   cfg.SessionTTL,
		Secure:   cfg.CookieSecure,
		HTTPOnly: cfg.CookieHTTPOnly,
	})
	if err != nil {
		return err
	}

	profiles, err := profile.NewResolver(st, logger)
	if err != nil {
		return err
	}

	routes, err := gate.LoadRoutes(cfg.RoutesFile)
	if err != nil {
		return err
	}
	g, err := gate.New(sessions, profiles, gate.Options{
		Routes:   routes,
		FailOpen: cfg.GateFailOpen,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	renderer, err := render.New()
	if err != nil {
		return err
	}

	deps := handlers.Deps{
		Store:    st,
		Auth:     authSvc,
		Sessions: sessions,
		Profiles: profiles,
		Gate:     g,
		Renderer: renderer,
		Logger:   logger,
	}

	var publisher activity.Publisher
	if cfg.NATSURL != "" {
		b, err := bus.New(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer b.Close()

		if err := b.EnsureStream(activity.StreamName, activity.Subjects(), activity.StreamMaxAge); err != nil {
			return err
		}
		ingestor, err := activity.NewIngestor(b, st, logger)
		if err != nil {
			return err
		}
		if err := ingestor.Start(ctx); err != nil {
			return err
		}
		defer ingestor.Close()

		publisher = b
		deps.Bus = b
	} else {
		logger.Info().Msg("NATS_URL not set; writing activity to the audit log inline")
	}

	deps.Activity, err = activity.NewRecorder(publisher, st, logger)
	if err != nil {
		return err
	}

	media, err := gos3.NewClientFromEnv(ctx)
	switch {
	case errors.Is(err, gos3.ErrNotConfigured):
		logger.Info().Msg("S3_ENDPOINT not set; media uploads disabled")
	case err != nil:
		return err
	default:
		deps.Media = media
	}

	api, err := handlers.New(deps, handlers.Config{
		AllowedOrigins:   cfg.AllowedOrigins,
		RequestRateLimit: cfg.RequestRateLimit,
		MediaBucket:      cfg.S3Bucket,
		MediaUploadTTL:   cfg.MediaUploadTTL,
	})
	if err != nil {
		return err
	}
	router, err := api.Routes()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           gzhttp.GzipHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("starting volunteerverse")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown server")
	}
	return nil
}
