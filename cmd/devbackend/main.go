// cmd/devbackend/main.go
//
// Runs the local stand-in backend: the same REST row-query dialect, remote
// procedures, and token endpoints the hosted backend serves, over a SQLite
// file. Point the server's backend.url at it for local development.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/clubpadel/courtside/internal/devbackend"
)

func main() {
	var (
		port    = flag.Int("port", 9080, "listen port")
		dbPath  = flag.String("db", "devbackend.db", "path to SQLite database")
		apiKey  = flag.String("api-key", "dev-anon-key", "API key clients must present")
		secret  = flag.String("jwt-secret", "dev-jwt-secret", "token signing secret")
		seed    = flag.Bool("seed", true, "seed demo courts and members")
		verbose = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	store, err := devbackend.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer store.Close()

	if *seed {
		if err := store.SeedDefaults(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed database")
		}
		log.Info().Msg("Seeded demo club data")
	}

	sweeper, err := store.StartTokenSweeper()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start token sweeper")
	}
	defer sweeper.Shutdown()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      devbackend.NewServer(store, *apiKey, *secret),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", *port).Str("db", *dbPath).Msg("Starting dev backend")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		log.Info().Msg("Shutting down dev backend")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Dev backend terminated with error")
		os.Exit(1)
	}
}
