package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	router "github.com/dkeye/Callwire/internal/adapters/http"
	sig "github.com/dkeye/Callwire/internal/adapters/signal"
	"github.com/dkeye/Callwire/internal/app"
	"github.com/dkeye/Callwire/internal/app/orch"
	"github.com/dkeye/Callwire/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "release" {
		// JSON lines in production, console output stays for debug.
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	iceServers, err := cfg.ICEServers()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ice servers")
	}

	o := orch.New(orch.Options{
		RingTimeout: cfg.RingTimeout,
		Scope:       orch.PresenceScope(cfg.PresenceScope),
		Policy:      app.PolicyByName(cfg.Backpressure),
		ICEServers:  iceServers,
	})

	ctrl := sig.NewSignalWSController(o, sig.Options{
		RequireIdentity: cfg.RequireIdentity,
		AllowedOrigins:  cfg.AllowedOrigins,
		AdmitLimit:      cfg.AdmitLimit,
		AdmitWindow:     cfg.AdmitWindow,
		EventRate:       rate.Limit(cfg.EventRate),
		EventBurst:      cfg.EventBurst,
		SendBuffer:      cfg.SendBuffer,
		ReadLimit:       cfg.ReadLimit,
		PingPeriod:      cfg.PingPeriod,
		PongWait:        cfg.PongWait,
		WriteWait:       cfg.WriteWait,
	})
	go ctrl.Limiter().Run(ctx)

	r := router.SetupRouter(ctx, cfg, o, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Callwire server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
