// Package backend is the typed client for the club's managed data backend.
// All durable state (members, courts, reservations, seats, blocks) lives
// there; this service only issues row queries and remote procedure calls and
// holds request-scoped snapshots of the results.
package backend

import "context"

// Court is one playing court. Immutable within a session.
type Court struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Block is an admin-imposed unavailability for one (date, slot, court) triple.
type Block struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	SlotStart string `json:"slot_start"`
	SlotEnd   string `json:"slot_end"`
	CourtID   int64  `json:"court_id"`
	Reason    string `json:"reason"`
}

// Reservation is one match attempt on a (date, slot, court) triple, as
// exposed by the backend's public read view.
type Reservation struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	SlotStart string `json:"slot_start"`
	SlotEnd   string `json:"slot_end"`
	CourtID   int64  `json:"court_id"`
}

// SeatRow binds one of a reservation's four seats to a member.
type SeatRow struct {
	ReservationID string `json:"reservation_id"`
	Seat          int    `json:"seat"`
	MemberUserID  string `json:"member_user_id"`
}

// MemberPublic is the directory view of a member: id and display name only.
type MemberPublic struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
}

// MemberProfile is the member's own row, used for the routing guards.
type MemberProfile struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
	FullName string `json:"full_name"`
}

// NewReservation is the insert payload for a reservation row.
type NewReservation struct {
	Date         string `json:"date"`
	SlotStart    string `json:"slot_start"`
	SlotEnd      string `json:"slot_end"`
	CourtID      int64  `json:"court_id"`
	MemberUserID string `json:"member_user_id"`
	Status       string `json:"status"`
}

// NewBlock is the insert payload for a block row.
type NewBlock struct {
	Date      string `json:"date"`
	SlotStart string `json:"slot_start"`
	SlotEnd   string `json:"slot_end"`
	CourtID   int64  `json:"court_id"`
	Reason    string `json:"reason"`
}

// Session is an authenticated backend session.
type Session struct {
	AccessToken string
	UserID      string
	ExpiresIn   int64
}

// Store is the row-query and remote-procedure surface this service consumes.
// Implementations must honor the request context on every call; the seat
// invariants (4-seat ceiling, seat uniqueness, atomic assignment) are owned by
// the backend's remote procedures, never checked here.
type Store interface {
	Courts(ctx context.Context) ([]Court, error)
	BlocksByDate(ctx context.Context, date string) ([]Block, error)
	ReservationsByDate(ctx context.Context, date string) ([]Reservation, error)
	ReservationByTriple(ctx context.Context, date, slotStart string, courtID int64) (*Reservation, error)
	ReservationsByIDs(ctx context.Context, ids []string, fromDate string) ([]Reservation, error)
	SeatRows(ctx context.Context, reservationIDs []string) ([]SeatRow, error)
	SeatRowsByMember(ctx context.Context, memberID string) ([]SeatRow, error)
	MembersByIDs(ctx context.Context, userIDs []string) ([]MemberPublic, error)
	SearchMembers(ctx context.Context, query string, limit int) ([]MemberPublic, error)
	MemberProfile(ctx context.Context, userID string) (*MemberProfile, error)

	InsertReservation(ctx context.Context, res NewReservation) (Reservation, error)
	InsertBlock(ctx context.Context, block NewBlock) error
	DeleteBlock(ctx context.Context, blockID string) error

	JoinReservation(ctx context.Context, reservationID, memberID string) error
	LeaveReservation(ctx context.Context, reservationID, memberID string) error
}

// Authenticator is the backend's credential and session surface.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	User(ctx context.Context, accessToken string) (string, error)
	SignOut(ctx context.Context, accessToken string) error
}

type tokenContextKey struct{}

// ContextWithToken attaches a member's backend access token to the context.
// The REST client sends it as the bearer credential so the backend's own
// row-level authorization applies; requests without a token use the API key
// alone.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the access token attached to ctx, if any.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}
