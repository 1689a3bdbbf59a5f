// Package backendtest provides an in-memory Store for tests.
package backendtest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/catalog"
)

// Fake is an in-memory backend.Store. It mirrors the managed backend's
// observable behavior closely enough for unit tests: unique (date, slot,
// court) reservations reported as typed conflicts, seat assignment through
// the join/leave procedures, and a member directory. Any method can be
// overridden with an error via Fail to exercise failure paths.
type Fake struct {
	mu sync.Mutex

	CourtRows   []backend.Court
	BlockRows   []backend.Block
	Rows        []backend.Reservation
	Seats       []backend.SeatRow
	Members     []backend.MemberPublic
	Profiles    map[string]backend.MemberProfile
	MaxSeats    int
	// Fail maps a method name (e.g. "Courts") to the error it should return.
	Fail map[string]error

	// Calls records method names in invocation order.
	Calls []string
}

// New returns a Fake with three courts and an empty day.
func New() *Fake {
	return &Fake{
		CourtRows: []backend.Court{
			{ID: 1, Name: "Pista 1"},
			{ID: 2, Name: "Pista 2"},
			{ID: 3, Name: "Pista 3"},
		},
		Profiles: map[string]backend.MemberProfile{},
		MaxSeats: 4,
		Fail:     map[string]error{},
	}
}

func (f *Fake) fail(method string) error {
	f.Calls = append(f.Calls, method)
	if err, ok := f.Fail[method]; ok {
		return err
	}
	return nil
}

func (f *Fake) Courts(ctx context.Context) ([]backend.Court, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Courts"); err != nil {
		return nil, err
	}
	return append([]backend.Court(nil), f.CourtRows...), nil
}

func (f *Fake) BlocksByDate(ctx context.Context, date string) ([]backend.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("BlocksByDate"); err != nil {
		return nil, err
	}
	var out []backend.Block
	for _, b := range f.BlockRows {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *Fake) ReservationsByDate(ctx context.Context, date string) ([]backend.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ReservationsByDate"); err != nil {
		return nil, err
	}
	var out []backend.Reservation
	for _, r := range f.Rows {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fake) ReservationByTriple(ctx context.Context, date, slotStart string, courtID int64) (*backend.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ReservationByTriple"); err != nil {
		return nil, err
	}
	if r := f.findTriple(date, slotStart, courtID); r != nil {
		res := *r
		return &res, nil
	}
	return nil, nil
}

func (f *Fake) ReservationsByIDs(ctx context.Context, ids []string, fromDate string) ([]backend.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ReservationsByIDs"); err != nil {
		return nil, err
	}
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var out []backend.Reservation
	for _, r := range f.Rows {
		if !wanted[r.ID] {
			continue
		}
		if fromDate != "" && r.Date < fromDate {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].SlotStart < out[j].SlotStart
	})
	return out, nil
}

func (f *Fake) SeatRows(ctx context.Context, reservationIDs []string) ([]backend.SeatRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SeatRows"); err != nil {
		return nil, err
	}
	wanted := map[string]bool{}
	for _, id := range reservationIDs {
		wanted[id] = true
	}
	var out []backend.SeatRow
	for _, s := range f.Seats {
		if wanted[s.ReservationID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *Fake) SeatRowsByMember(ctx context.Context, memberID string) ([]backend.SeatRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SeatRowsByMember"); err != nil {
		return nil, err
	}
	var out []backend.SeatRow
	for _, s := range f.Seats {
		if s.MemberUserID == memberID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *Fake) MembersByIDs(ctx context.Context, userIDs []string) ([]backend.MemberPublic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("MembersByIDs"); err != nil {
		return nil, err
	}
	wanted := map[string]bool{}
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []backend.MemberPublic
	for _, m := range f.Members {
		if wanted[m.UserID] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *Fake) SearchMembers(ctx context.Context, query string, limit int) ([]backend.MemberPublic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SearchMembers"); err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	var out []backend.MemberPublic
	for _, m := range f.Members {
		if strings.Contains(strings.ToLower(m.FullName), query) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Fake) MemberProfile(ctx context.Context, userID string) (*backend.MemberProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("MemberProfile"); err != nil {
		return nil, err
	}
	profile, ok := f.Profiles[userID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func (f *Fake) InsertReservation(ctx context.Context, res backend.NewReservation) (backend.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("InsertReservation"); err != nil {
		return backend.Reservation{}, err
	}
	if f.findTriple(res.Date, res.SlotStart, res.CourtID) != nil {
		return backend.Reservation{}, &backend.Error{
			Status:  http.StatusConflict,
			Code:    "23505",
			Message: `duplicate key value violates unique constraint "uq_reservation_unique"`,
		}
	}
	created := backend.Reservation{
		ID:        uuid.NewString(),
		Date:      res.Date,
		SlotStart: res.SlotStart,
		SlotEnd:   res.SlotEnd,
		CourtID:   res.CourtID,
	}
	f.Rows = append(f.Rows, created)
	return created, nil
}

func (f *Fake) InsertBlock(ctx context.Context, block backend.NewBlock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("InsertBlock"); err != nil {
		return err
	}
	for _, b := range f.BlockRows {
		if b.Date == block.Date && catalog.NormalizeTime(b.SlotStart) == catalog.NormalizeTime(block.SlotStart) && b.CourtID == block.CourtID {
			return &backend.Error{
				Status:  http.StatusConflict,
				Code:    "23505",
				Message: `duplicate key value violates unique constraint "uq_block_unique"`,
			}
		}
	}
	f.BlockRows = append(f.BlockRows, backend.Block{
		ID:        uuid.NewString(),
		Date:      block.Date,
		SlotStart: block.SlotStart,
		SlotEnd:   block.SlotEnd,
		CourtID:   block.CourtID,
		Reason:    block.Reason,
	})
	return nil
}

func (f *Fake) DeleteBlock(ctx context.Context, blockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteBlock"); err != nil {
		return err
	}
	for i, b := range f.BlockRows {
		if b.ID == blockID {
			f.BlockRows = append(f.BlockRows[:i], f.BlockRows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *Fake) JoinReservation(ctx context.Context, reservationID, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("JoinReservation"); err != nil {
		return err
	}
	taken := map[int]bool{}
	for _, s := range f.Seats {
		if s.ReservationID != reservationID {
			continue
		}
		if s.MemberUserID == memberID {
			return &backend.Error{Status: http.StatusBadRequest, Message: "member already holds a seat in this reservation"}
		}
		taken[s.Seat] = true
	}
	for seat := 1; seat <= f.MaxSeats; seat++ {
		if !taken[seat] {
			f.Seats = append(f.Seats, backend.SeatRow{
				ReservationID: reservationID,
				Seat:          seat,
				MemberUserID:  memberID,
			})
			return nil
		}
	}
	return &backend.Error{Status: http.StatusBadRequest, Message: "reservation is full"}
}

func (f *Fake) LeaveReservation(ctx context.Context, reservationID, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("LeaveReservation"); err != nil {
		return err
	}
	for i, s := range f.Seats {
		if s.ReservationID == reservationID && s.MemberUserID == memberID {
			f.Seats = append(f.Seats[:i], f.Seats[i+1:]...)
			return nil
		}
	}
	return &backend.Error{Status: http.StatusBadRequest, Message: "member has no seat in this reservation"}
}

// AddMember registers a member in both the directory and the profile table.
func (f *Fake) AddMember(userID, fullName, role string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Members = append(f.Members, backend.MemberPublic{UserID: userID, FullName: fullName})
	f.Profiles[userID] = backend.MemberProfile{
		UserID:   userID,
		Role:     role,
		IsActive: active,
		FullName: fullName,
	}
}

// SeatCount returns the number of occupied seats for a reservation.
func (f *Fake) SeatCount(reservationID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, s := range f.Seats {
		if s.ReservationID == reservationID {
			count++
		}
	}
	return count
}

func (f *Fake) findTriple(date, slotStart string, courtID int64) *backend.Reservation {
	for i, r := range f.Rows {
		if r.Date == date && catalog.NormalizeTime(r.SlotStart) == catalog.NormalizeTime(slotStart) && r.CourtID == courtID {
			return &f.Rows[i]
		}
	}
	return nil
}

var _ backend.Store = (*Fake)(nil)

// CallCount returns how many times a method was invoked.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, name := range f.Calls {
		if name == method {
			count++
		}
	}
	return count
}

// ErrFor builds a backend error with the given message, for Fail entries.
func ErrFor(message string) error {
	return &backend.Error{Status: http.StatusInternalServerError, Message: message}
}

// String implements fmt.Stringer for debug output in failing tests.
func (f *Fake) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("fake backend: %d reservations, %d seats, %d blocks", len(f.Rows), len(f.Seats), len(f.BlockRows))
}
