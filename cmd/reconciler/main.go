package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebridge/telehealth-booking/internal/appointment"
	"github.com/carebridge/telehealth-booking/internal/booking"
	"github.com/carebridge/telehealth-booking/internal/config"
	"github.com/carebridge/telehealth-booking/internal/db"
	"github.com/carebridge/telehealth-booking/internal/slot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "reconciler").Logger()
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.ReconcileInterval).Msg("reconciler starting up")

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

	apptStore := appointment.NewPgStore(pgPool)
	ledger := slot.NewLedger(slot.NewPgStore(pgPool), log)
	rec := booking.NewReconciler(apptStore, ledger, log)

	// Run once at startup
	runOnce(rootCtx, rec, log)

	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping reconciler")
			return
		case <-ticker.C:
			runOnce(rootCtx, rec, log)
		}
	}
}

func runOnce(ctx context.Context, rec *booking.Reconciler, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	repaired, err := rec.Run(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("reconcile run error")
		return
	}
	log.Info().Int("repaired", repaired).Dur("took", time.Since(start)).Msg("reconcile run complete")
}
