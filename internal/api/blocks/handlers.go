// Package blocks serves the admin block screen.
package blocks

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clubpadel/courtside/internal/api/apiutil"
	"github.com/clubpadel/courtside/internal/api/authz"
	"github.com/clubpadel/courtside/internal/api/htmx"
	"github.com/clubpadel/courtside/internal/availability"
	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/catalog"
	"github.com/clubpadel/courtside/internal/gateway"
)

var (
	store    backend.Store
	actions  *gateway.Gateway
	initOnce sync.Once
)

const queryTimeout = 10 * time.Second

func InitHandlers(s backend.Store) {
	if s == nil {
		return
	}
	initOnce.Do(func() {
		store = s
		actions = gateway.New(s)
	})
}

type toggleRequest struct {
	Date      string `json:"date"`
	SlotStart string `json:"slot_start"`
	CourtID   int64  `json:"court_id"`
	Reason    string `json:"reason"`
}

type toggleResponse struct {
	Blocked bool                  `json:"blocked"`
	Day     *availability.DayView `json:"day,omitempty"`
}

type listResponse struct {
	Blocks []backend.Block `json:"blocks"`
}

// requireAdmin resolves the session and checks the admin profile gate.
func requireAdmin(w http.ResponseWriter, r *http.Request) (authz.Session, bool) {
	sess, ok := apiutil.RequireSession(w, r)
	if !ok {
		return authz.Session{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	profile, err := store.MemberProfile(ctx, sess.UserID)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to load member profile")
		apiutil.WriteError(w, r, err)
		return authz.Session{}, false
	}
	if err := authz.RequireAdmin(profile); err != nil {
		log.Ctx(r.Context()).Warn().Str("user_id", sess.UserID).Err(err).Msg("Admin access denied")
		apiutil.WriteError(w, r, err)
		return authz.Session{}, false
	}
	return sess, true
}

// GET /api/v1/admin/blocks?date=YYYY-MM-DD
func HandleList(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Block handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	date, err := apiutil.DateFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	found, err := store.BlocksByDate(ctx, date)
	if err != nil {
		logger.Error().Err(err).Str("date", date).Msg("Failed to load blocks")
		apiutil.WriteError(w, r, err)
		return
	}
	if found == nil {
		found = []backend.Block{}
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, listResponse{Blocks: found})
}

// POST /api/v1/admin/blocks/toggle
func HandleToggle(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req toggleRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}

	date, err := apiutil.ParseDateField(req.Date, "date")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	slotStart, err := apiutil.ParseTimeField(req.SlotStart, "slot_start")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	if req.CourtID <= 0 {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "court_id", Reason: "must be a positive integer"})
		return
	}

	slot, ok := catalog.FindSlot(date, slotStart)
	if !ok {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "slot_start", Reason: "is not a slot on this date"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	blocked, err := actions.ToggleBlock(ctx, date, slot, req.CourtID, req.Reason)
	if err != nil {
		logger.Warn().Err(err).Str("date", date).Int64("court_id", req.CourtID).Msg("Block toggle rejected")
		apiutil.WriteError(w, r, err)
		return
	}

	day, err := availability.LoadDay(ctx, store, date, sess.UserID)
	if err != nil {
		logger.Error().Err(err).Str("date", date).Msg("Failed to reload availability after toggle")
		htmx.Trigger(w, htmx.EventRefreshAvailability)
		_ = apiutil.WriteJSON(w, http.StatusOK, toggleResponse{Blocked: blocked})
		return
	}

	htmx.Trigger(w, htmx.EventRefreshAvailability)
	_ = apiutil.WriteJSON(w, http.StatusOK, toggleResponse{Blocked: blocked, Day: &day})
}
