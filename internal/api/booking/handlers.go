// Package booking serves the availability grid and the reservation actions.
package booking

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clubpadel/courtside/internal/api/apiutil"
	"github.com/clubpadel/courtside/internal/api/htmx"
	"github.com/clubpadel/courtside/internal/availability"
	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/catalog"
	"github.com/clubpadel/courtside/internal/gateway"
)

var (
	store     backend.Store
	actions   *gateway.Gateway
	storeOnce sync.Once
)

const bookingQueryTimeout = 10 * time.Second

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s backend.Store) {
	if s == nil {
		return
	}
	storeOnce.Do(func() {
		store = s
		actions = gateway.New(s)
	})
}

type createRequest struct {
	Date      string `json:"date"`
	SlotStart string `json:"slot_start"`
	CourtID   int64  `json:"court_id"`
}

type joinRequest struct {
	// MemberUserID names the member to seat, typically picked from the
	// member search. Empty means the caller joins themselves.
	MemberUserID string `json:"member_user_id"`
}

type leaveRequest struct {
	Confirm bool `json:"confirm"`
}

type actionResponse struct {
	ReservationID string                `json:"reservation_id,omitempty"`
	Day           *availability.DayView `json:"day,omitempty"`
}

// GET /api/v1/availability?date=YYYY-MM-DD
func HandleAvailability(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Booking handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess, ok := apiutil.RequireSession(w, r)
	if !ok {
		return
	}

	date, err := apiutil.DateFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	day, err := availability.LoadDay(ctx, store, date, sess.UserID)
	if err != nil {
		logger.Error().Err(err).Str("date", date).Msg("Failed to load availability")
		apiutil.WriteError(w, r, err)
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, day)
}

// POST /api/v1/reservations
func HandleCreateReservation(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Booking handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess, ok := apiutil.RequireSession(w, r)
	if !ok {
		return
	}

	var req createRequest
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
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "slot_start", Reason: "is not a bookable slot on this date"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	res, err := actions.CreateOrJoin(ctx, sess.UserID, date, slot, req.CourtID)
	if err != nil {
		if errors.Is(err, gateway.ErrReservationVanished) {
			apiutil.WriteError(w, r, apiutil.HandlerError{
				Status:  http.StatusConflict,
				Message: "the reservation changed underneath you, reload and retry",
				Err:     err,
			})
			return
		}
		logger.Warn().Err(err).Str("date", date).Int64("court_id", req.CourtID).Msg("Reservation action rejected")
		apiutil.WriteError(w, r, err)
		return
	}

	writeActionResult(w, r, res.ID, date, sess.UserID, http.StatusCreated)
}

// POST /api/v1/reservations/{id}/join
func HandleJoin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Booking handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess, ok := apiutil.RequireSession(w, r)
	if !ok {
		return
	}

	reservationID, err := apiutil.RequiredIDField(r.PathValue("id"), "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	date, err := apiutil.DateFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	// Seated members may seat someone else, picked from the member search.
	var req joinRequest
	if err := apiutil.DecodeOptionalJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}
	memberID := strings.TrimSpace(req.MemberUserID)
	if memberID == "" {
		memberID = sess.UserID
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	if err := actions.Join(ctx, reservationID, memberID); err != nil {
		logger.Warn().Err(err).Str("reservation_id", reservationID).Str("member_user_id", memberID).Msg("Join rejected")
		apiutil.WriteError(w, r, err)
		return
	}

	writeActionResult(w, r, reservationID, date, sess.UserID, http.StatusOK)
}

// POST /api/v1/reservations/{id}/leave
func HandleLeave(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Booking handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess, ok := apiutil.RequireSession(w, r)
	if !ok {
		return
	}

	reservationID, err := apiutil.RequiredIDField(r.PathValue("id"), "id")
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}
	date, err := apiutil.DateFromQuery(r)
	if err != nil {
		apiutil.WriteError(w, r, err)
		return
	}

	var req leaveRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "invalid request body", Err: err})
		return
	}
	// Leaving drops the seat immediately, so the client must say it asked.
	if !req.Confirm {
		apiutil.WriteError(w, r, apiutil.FieldError{Field: "confirm", Reason: "must be true to leave a reservation"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	if err := actions.Leave(ctx, reservationID, sess.UserID); err != nil {
		logger.Warn().Err(err).Str("reservation_id", reservationID).Msg("Leave rejected")
		apiutil.WriteError(w, r, err)
		return
	}

	writeActionResult(w, r, reservationID, date, sess.UserID, http.StatusOK)
}

// writeActionResult responds with a fresh snapshot of the day so the grid
// can re-render without a second round trip.
func writeActionResult(w http.ResponseWriter, r *http.Request, reservationID, date, viewerID string, status int) {
	ctx, cancel := context.WithTimeout(r.Context(), bookingQueryTimeout)
	defer cancel()

	day, err := availability.LoadDay(ctx, store, date, viewerID)
	if err != nil {
		// The action itself succeeded. Report it and let the client refresh.
		log.Ctx(r.Context()).Error().Err(err).Str("date", date).Msg("Failed to reload availability after action")
		htmx.Trigger(w, htmx.EventRefreshAvailability)
		_ = apiutil.WriteJSON(w, status, actionResponse{ReservationID: reservationID})
		return
	}

	htmx.Trigger(w, htmx.EventRefreshAvailability)
	_ = apiutil.WriteJSON(w, status, actionResponse{ReservationID: reservationID, Day: &day})
}
