package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebridge/telehealth-booking/internal/api"
	"github.com/carebridge/telehealth-booking/internal/appointment"
	"github.com/carebridge/telehealth-booking/internal/booking"
	"github.com/carebridge/telehealth-booking/internal/config"
	"github.com/carebridge/telehealth-booking/internal/db"
	"github.com/carebridge/telehealth-booking/internal/directory"
	"github.com/carebridge/telehealth-booking/internal/events"
	"github.com/carebridge/telehealth-booking/internal/query"
	redisclient "github.com/carebridge/telehealth-booking/internal/redis"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := newLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	schemaCtx, cancelSchema := context.WithTimeout(rootCtx, 30*time.Second)
	err = db.EnsureSchema(schemaCtx, pgPool)
	cancelSchema()
	if err != nil {
		log.Fatal().Err(err).Msg("schema ensure error")
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	apptStore := appointment.NewPgStore(pgPool)
	slotStore := slot.NewPgStore(pgPool)
	ledger := slot.NewLedger(slotStore, log)
	doctors := directory.NewPgDoctorDirectory(pgPool)
	patients := directory.NewPgPatientDirectory(pgPool)
	sink := events.NewPgSink(pgPool)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)

	bookingSvc := booking.NewService(apptStore, ledger, doctors, locker, sink, log, booking.Options{
		RetryMax:       cfg.BookingRetryMax,
		RetryBase:      cfg.BookingRetryBase,
		SlotAutoCreate: cfg.SlotAutoCreate,
	})
	querySvc := query.NewService(apptStore, doctors, patients, log)

	router := api.NewRouter(api.RouterConfig{
		Booking: bookingSvc,
		Query:   querySvc,
		Ledger:  ledger,
		Doctors: doctors,
		Health:  api.NewHealthHandler(pgPool, rdb, cfg.Env, version),
		Log:     log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("api-server stopped")
}

func newLogger(env string) zerolog.Logger {
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
