// Package availability derives the display-ready day view from raw backend
// rows: for every (slot, court) pair on a date, exactly one of blocked, open,
// or reservation.
package availability

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/catalog"
)

// Status classifies one (slot, court) cell.
type Status string

const (
	StatusBlocked     Status = "blocked"
	StatusOpen        Status = "open"
	StatusReservation Status = "reservation"
)

// SeatCount is the number of seats in a reservation.
const SeatCount = 4

// fallbackSeatName is shown when the member directory lookup misses.
const fallbackSeatName = "Member"

// CourtCell is the resolved status of one court within one slot.
type CourtCell struct {
	CourtID   int64  `json:"court_id"`
	CourtName string `json:"court_name"`
	Status    Status `json:"status"`

	// Blocked cells carry the admin's reason.
	Reason string `json:"reason,omitempty"`

	// Reservation cells carry the occupancy view. Seats is always length 4,
	// index i holding seat i+1's short display name or null when unfilled.
	ReservationID string    `json:"reservation_id,omitempty"`
	Seats         []*string `json:"seats,omitempty"`
	Filled        int       `json:"filled,omitempty"`
	ViewerSeated  bool      `json:"viewer_seated,omitempty"`
}

// SlotRow is one catalog slot with a cell per court.
type SlotRow struct {
	Start  string      `json:"start"`
	End    string      `json:"end"`
	Courts []CourtCell `json:"courts"`
}

// DayView is the resolved grid for one date. A closed day (Sunday) is an
// explicit state, distinct from an open day that happens to have no courts.
type DayView struct {
	Date   string    `json:"date"`
	Closed bool      `json:"closed"`
	Slots  []SlotRow `json:"slots"`
}

// ResolveInput carries one date's raw rows into Resolve.
type ResolveInput struct {
	Date         string
	Slots        []catalog.Slot
	Courts       []backend.Court
	Blocks       []backend.Block
	Reservations []backend.Reservation
	Seats        []backend.SeatRow
	// Names maps member user id to full name.
	Names map[string]string
	// ViewerID marks the signed-in member's own seats; empty means no viewer.
	ViewerID string
}

// Resolve combines the raw rows into the day view. Pure: no I/O, no
// side effects. Keys compare on the normalized "HH:MM" prefix because stored
// times may carry seconds.
func Resolve(in ResolveInput) DayView {
	view := DayView{Date: in.Date}
	if len(in.Slots) == 0 {
		view.Closed = true
		return view
	}

	blockByKey := make(map[string]string, len(in.Blocks))
	for _, b := range in.Blocks {
		blockByKey[cellKey(b.SlotStart, b.CourtID)] = b.Reason
	}

	resByKey := make(map[string]backend.Reservation, len(in.Reservations))
	for _, r := range in.Reservations {
		resByKey[cellKey(r.SlotStart, r.CourtID)] = r
	}

	seatsByReservation := make(map[string][]backend.SeatRow)
	for _, s := range in.Seats {
		seatsByReservation[s.ReservationID] = append(seatsByReservation[s.ReservationID], s)
	}

	view.Slots = make([]SlotRow, 0, len(in.Slots))
	for _, slot := range in.Slots {
		row := SlotRow{
			Start:  slot.Start,
			End:    slot.End,
			Courts: make([]CourtCell, 0, len(in.Courts)),
		}
		for _, court := range in.Courts {
			row.Courts = append(row.Courts, resolveCell(in, court, slot, blockByKey, resByKey, seatsByReservation))
		}
		view.Slots = append(view.Slots, row)
	}
	return view
}

func resolveCell(
	in ResolveInput,
	court backend.Court,
	slot catalog.Slot,
	blockByKey map[string]string,
	resByKey map[string]backend.Reservation,
	seatsByReservation map[string][]backend.SeatRow,
) CourtCell {
	cell := CourtCell{CourtID: court.ID, CourtName: court.Name}
	key := cellKey(slot.Start, court.ID)

	if reason, ok := blockByKey[key]; ok {
		cell.Status = StatusBlocked
		cell.Reason = reason
		return cell
	}

	res, ok := resByKey[key]
	if !ok {
		cell.Status = StatusOpen
		return cell
	}

	// A reservation with no seat rows yet still occupies the triple; it is
	// not open.
	cell.Status = StatusReservation
	cell.ReservationID = res.ID
	cell.Seats = make([]*string, SeatCount)

	rows := append([]backend.SeatRow(nil), seatsByReservation[res.ID]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Seat < rows[j].Seat })
	for _, seatRow := range rows {
		if seatRow.Seat < 1 || seatRow.Seat > SeatCount {
			continue
		}
		name := ShortName(in.Names[seatRow.MemberUserID])
		cell.Seats[seatRow.Seat-1] = &name
		cell.Filled++
		if in.ViewerID != "" && seatRow.MemberUserID == in.ViewerID {
			cell.ViewerSeated = true
		}
	}
	return cell
}

// ShortName reduces a full name to its first two whitespace-separated tokens
// for seat labels. An empty or unresolvable name falls back to "Member".
func ShortName(fullName string) string {
	parts := strings.Fields(fullName)
	switch {
	case len(parts) >= 2:
		return parts[0] + " " + parts[1]
	case len(parts) == 1:
		return parts[0]
	default:
		return fallbackSeatName
	}
}

func cellKey(slotStart string, courtID int64) string {
	return fmt.Sprintf("%s-%d", catalog.NormalizeTime(slotStart), courtID)
}
