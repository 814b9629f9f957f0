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

	router "github.com/QinjianZheng/who-is-my-friend/internal/adapters/http"
	"github.com/QinjianZheng/who-is-my-friend/internal/app"
	"github.com/QinjianZheng/who-is-my-friend/internal/catalog"
	"github.com/QinjianZheng/who-is-my-friend/internal/config"
	"github.com/QinjianZheng/who-is-my-friend/internal/core"
	"github.com/QinjianZheng/who-is-my-friend/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	cat, err := catalog.Load(cfg.GamesDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load game catalog")
	}

	lookup := core.GameLookup(func(id domain.GameID) *domain.GameDefinition {
		g, _ := cat.Get(id)
		return g
	})

	orch := &app.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(lookup),
		Grace:    cfg.DisconnectGrace,
	}

	r := router.SetupRouter(ctx, cfg, cat, orch)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("party server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
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
