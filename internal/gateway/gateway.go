// Package gateway wraps the backend's reservation mutations. The heavy
// lifting (atomic seat assignment, the 4-seat ceiling, reservation
// uniqueness) belongs to the backend's remote procedures; this layer only
// sequences the calls, converts the expected create/create race into a join,
// and reports outcomes.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/catalog"
	"github.com/clubpadel/courtside/internal/metrics"
)

const defaultBlockReason = "Blocked"

// ErrReservationVanished is returned when a create hits the uniqueness
// conflict but the winning reservation cannot be loaded afterwards. The user
// should reload the date and retry.
var ErrReservationVanished = fmt.Errorf("the match already exists but could not be loaded; reload and try again")

// Gateway issues reservation and block mutations against the backend.
type Gateway struct {
	store backend.Store
}

// New creates a Gateway over the given store.
func New(store backend.Store) *Gateway {
	return &Gateway{store: store}
}

// CreateOrJoin creates a reservation for the (date, slot, court) triple with
// the acting member as creator and joins them to it. When the backend reports
// the uniqueness conflict, meaning someone else created it first, the
// existing reservation is looked up and joined instead; the race is an
// expected outcome, not an error. Any other failure is surfaced verbatim.
// It returns the reservation the member ended up in.
func (g *Gateway) CreateOrJoin(ctx context.Context, memberID, date string, slot catalog.Slot, courtID int64) (backend.Reservation, error) {
	created, err := g.store.InsertReservation(ctx, backend.NewReservation{
		Date:         date,
		SlotStart:    slot.Start,
		SlotEnd:      slot.End,
		CourtID:      courtID,
		MemberUserID: memberID,
		Status:       "active",
	})
	if err != nil {
		if !backend.IsConflict(err) {
			return backend.Reservation{}, err
		}

		log.Ctx(ctx).Info().
			Str("date", date).
			Str("slot_start", slot.Start).
			Int64("court_id", courtID).
			Msg("Reservation already exists, joining instead")

		existing, lookupErr := g.store.ReservationByTriple(ctx, date, slot.Start, courtID)
		if lookupErr != nil {
			return backend.Reservation{}, lookupErr
		}
		if existing == nil {
			return backend.Reservation{}, ErrReservationVanished
		}
		if joinErr := g.Join(ctx, existing.ID, memberID); joinErr != nil {
			return backend.Reservation{}, joinErr
		}
		return *existing, nil
	}

	metrics.RecordReservationCreated()
	if err := g.Join(ctx, created.ID, memberID); err != nil {
		return backend.Reservation{}, err
	}
	return created, nil
}

// Join requests a seat for the member on the reservation. Seat choice and the
// full check are the backend's responsibility; its error message is surfaced
// as-is.
func (g *Gateway) Join(ctx context.Context, reservationID, memberID string) error {
	if err := g.store.JoinReservation(ctx, reservationID, memberID); err != nil {
		return err
	}
	metrics.RecordReservationJoin()
	return nil
}

// Leave removes the member's seat from the reservation.
func (g *Gateway) Leave(ctx context.Context, reservationID, memberID string) error {
	if err := g.store.LeaveReservation(ctx, reservationID, memberID); err != nil {
		return err
	}
	metrics.RecordReservationLeave()
	return nil
}

// ToggleBlock removes the block on the (date, slot, court) triple if one
// exists, otherwise inserts one with the given reason (default "Blocked").
// No concurrency guarantee beyond the backend's: last writer wins. It
// reports whether the triple is blocked after the call.
func (g *Gateway) ToggleBlock(ctx context.Context, date string, slot catalog.Slot, courtID int64, reason string) (bool, error) {
	blocks, err := g.store.BlocksByDate(ctx, date)
	if err != nil {
		return false, err
	}

	for _, b := range blocks {
		if b.CourtID == courtID && catalog.NormalizeTime(b.SlotStart) == catalog.NormalizeTime(slot.Start) {
			if err := g.store.DeleteBlock(ctx, b.ID); err != nil {
				return true, err
			}
			metrics.RecordBlockToggle("removed")
			return false, nil
		}
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultBlockReason
	}
	if err := g.store.InsertBlock(ctx, backend.NewBlock{
		Date:      date,
		SlotStart: slot.Start,
		SlotEnd:   slot.End,
		CourtID:   courtID,
		Reason:    reason,
	}); err != nil {
		return false, err
	}
	metrics.RecordBlockToggle("added")
	return true, nil
}
