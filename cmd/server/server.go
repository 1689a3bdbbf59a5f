// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/clubpadel/courtside/internal/api"
	"github.com/clubpadel/courtside/internal/api/auth"
	"github.com/clubpadel/courtside/internal/api/blocks"
	"github.com/clubpadel/courtside/internal/api/booking"
	"github.com/clubpadel/courtside/internal/api/members"
	"github.com/clubpadel/courtside/internal/api/myreservations"
	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/config"
)

func newServer(cfg *config.Config) *http.Server {
	client, err := backend.NewRest(backend.Config{
		BaseURL: cfg.Backend.URL,
		APIKey:  cfg.Backend.APIKey,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build backend client")
	}

	auth.InitHandlers(client, client, cfg.App.SecretKey, cfg.App.Environment)
	booking.InitHandlers(client)
	myreservations.InitHandlers(client)
	members.InitHandlers(client)
	blocks.InitHandlers(client)

	router := http.NewServeMux()
	registerRoutes(router, cfg)

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging,
		api.WithMetrics,
		api.WithRecovery,
		api.WithAuth,
		api.WithRequestID,
		api.WithContentType,
	)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.Features.EnableMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	// Session routes
	mux.HandleFunc("POST /api/v1/auth/login", auth.HandleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", auth.HandleLogout)
	mux.HandleFunc("GET /api/v1/session", auth.HandleSession)

	// Availability and reservation actions
	mux.HandleFunc("GET /api/v1/availability", booking.HandleAvailability)
	mux.HandleFunc("POST /api/v1/reservations", booking.HandleCreateReservation)
	mux.HandleFunc("POST /api/v1/reservations/{id}/join", booking.HandleJoin)
	mux.HandleFunc("POST /api/v1/reservations/{id}/leave", booking.HandleLeave)

	// Member-facing listings
	mux.HandleFunc("GET /api/v1/my/reservations", myreservations.HandleList)
	mux.HandleFunc("GET /api/v1/members/search", members.HandleSearch)

	// Admin block screen
	mux.HandleFunc("GET /api/v1/admin/blocks", blocks.HandleList)
	mux.HandleFunc("POST /api/v1/admin/blocks/toggle", blocks.HandleToggle)
}
