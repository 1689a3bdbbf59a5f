// Package myreservations serves the member's own upcoming reservations.
package myreservations

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clubpadel/courtside/internal/api/apiutil"
	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/catalog"
)

var (
	store     backend.Store
	storeOnce sync.Once
)

const queryTimeout = 10 * time.Second

func InitHandlers(s backend.Store) {
	if s == nil {
		return
	}
	storeOnce.Do(func() {
		store = s
	})
}

type entry struct {
	ReservationID string `json:"reservation_id"`
	Date          string `json:"date"`
	SlotStart     string `json:"slot_start"`
	SlotEnd       string `json:"slot_end"`
	CourtID       int64  `json:"court_id"`
	CourtName     string `json:"court_name"`
}

type listResponse struct {
	Reservations []entry `json:"reservations"`
}

// GET /api/v1/my/reservations
func HandleList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Reservation handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess, ok := apiutil.RequireSession(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	seats, err := store.SeatRowsByMember(ctx, sess.UserID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load member seats")
		apiutil.WriteError(w, r, err)
		return
	}
	if len(seats) == 0 {
		_ = apiutil.WriteJSON(w, http.StatusOK, listResponse{Reservations: []entry{}})
		return
	}

	ids := make([]string, 0, len(seats))
	seen := map[string]bool{}
	for _, s := range seats {
		if !seen[s.ReservationID] {
			seen[s.ReservationID] = true
			ids = append(ids, s.ReservationID)
		}
	}

	today := time.Now().Format("2006-01-02")
	reservations, err := store.ReservationsByIDs(ctx, ids, today)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load reservations")
		apiutil.WriteError(w, r, err)
		return
	}

	courts, err := store.Courts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load courts")
		apiutil.WriteError(w, r, err)
		return
	}
	courtNames := make(map[int64]string, len(courts))
	for _, c := range courts {
		courtNames[c.ID] = c.Name
	}

	entries := make([]entry, 0, len(reservations))
	for _, res := range reservations {
		entries = append(entries, entry{
			ReservationID: res.ID,
			Date:          res.Date,
			SlotStart:     catalog.NormalizeTime(res.SlotStart),
			SlotEnd:       catalog.NormalizeTime(res.SlotEnd),
			CourtID:       res.CourtID,
			CourtName:     courtNames[res.CourtID],
		})
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, listResponse{Reservations: entries})
}
