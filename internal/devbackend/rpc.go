package devbackend

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
)

const maxSeats = 4

type rpcRequest struct {
	ReservationID string `json:"p_reservation_id"`
	Member        string `json:"p_member"`
}

func decodeRPC(r *http.Request) (rpcRequest, error) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	if req.ReservationID == "" || req.Member == "" {
		return req, errors.New("p_reservation_id and p_member are required")
	}
	return req, nil
}

// handleJoin assigns the lowest free seat atomically. Seat checks run in the
// same transaction as the insert so concurrent joins cannot both take the
// last seat.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRPC(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}

	err = s.store.RunInTx(r.Context(), func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.Get(&exists, `SELECT COUNT(*) FROM reservations WHERE id = ?`, req.ReservationID); err != nil {
			return err
		}
		if exists == 0 {
			return &rpcError{status: http.StatusNotFound, message: "reservation not found"}
		}

		var seats []int
		if err := tx.Select(&seats,
			`SELECT seat FROM reservation_players
			  WHERE reservation_id = ? ORDER BY seat`, req.ReservationID); err != nil {
			return err
		}

		var member int
		if err := tx.Get(&member,
			`SELECT COUNT(*) FROM reservation_players
			  WHERE reservation_id = ? AND member_user_id = ?`, req.ReservationID, req.Member); err != nil {
			return err
		}
		if member > 0 {
			return &rpcError{status: http.StatusBadRequest, message: "member already holds a seat in this reservation"}
		}
		if len(seats) >= maxSeats {
			return &rpcError{status: http.StatusBadRequest, message: "reservation is full"}
		}

		seat := 1
		taken := map[int]bool{}
		for _, n := range seats {
			taken[n] = true
		}
		for taken[seat] {
			seat++
		}

		_, err := tx.Exec(
			`INSERT INTO reservation_players (reservation_id, seat, member_user_id) VALUES (?, ?, ?)`,
			req.ReservationID, seat, req.Member)
		return err
	})
	if err != nil {
		s.writeRPCError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLeave releases the member's seat and removes the reservation when it
// empties out.
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRPC(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}

	err = s.store.RunInTx(r.Context(), func(tx *sqlx.Tx) error {
		res, err := tx.Exec(
			`DELETE FROM reservation_players WHERE reservation_id = ? AND member_user_id = ?`,
			req.ReservationID, req.Member)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &rpcError{status: http.StatusBadRequest, message: "member has no seat in this reservation"}
		}

		var remaining int
		if err := tx.Get(&remaining,
			`SELECT COUNT(*) FROM reservation_players WHERE reservation_id = ?`, req.ReservationID); err != nil {
			return err
		}
		if remaining == 0 {
			_, err = tx.Exec(`DELETE FROM reservations WHERE id = ?`, req.ReservationID)
			return err
		}
		return nil
	})
	if err != nil {
		s.writeRPCError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rpcError struct {
	status  int
	message string
}

func (e *rpcError) Error() string {
	return e.message
}

func (s *Server) writeRPCError(w http.ResponseWriter, err error) {
	var rpcErr *rpcError
	if errors.As(err, &rpcErr) {
		s.writeError(w, rpcErr.status, "P0001", rpcErr.message)
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		s.writeError(w, http.StatusNotFound, "", "not found")
		return
	}
	s.writeDBError(w, err)
}
