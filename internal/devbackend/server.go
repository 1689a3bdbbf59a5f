package devbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Server exposes the backend dialect over HTTP: /rest/v1/<table> row
// queries, /rest/v1/rpc/<fn> procedures, and the /auth/v1 token endpoints.
type Server struct {
	store      *Store
	apiKey     string
	signingKey []byte
	mux        *http.ServeMux
}

func NewServer(store *Store, apiKey, signingSecret string) *Server {
	s := &Server{
		store:      store,
		apiKey:     apiKey,
		signingKey: []byte(signingSecret),
		mux:        http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /rest/v1/courts", s.handleCourts)
	s.mux.HandleFunc("GET /rest/v1/blocks", s.handleBlocksQuery)
	s.mux.HandleFunc("POST /rest/v1/blocks", s.handleBlockInsert)
	s.mux.HandleFunc("DELETE /rest/v1/blocks", s.handleBlockDelete)
	s.mux.HandleFunc("GET /rest/v1/reservations_public", s.handleReservationsQuery)
	s.mux.HandleFunc("POST /rest/v1/reservations", s.handleReservationInsert)
	s.mux.HandleFunc("GET /rest/v1/reservation_players", s.handleSeatQuery)
	s.mux.HandleFunc("GET /rest/v1/members_public", s.handleMembersPublicQuery)
	s.mux.HandleFunc("GET /rest/v1/members", s.handleMembersQuery)
	s.mux.HandleFunc("POST /rest/v1/rpc/join_reservation", s.handleJoin)
	s.mux.HandleFunc("POST /rest/v1/rpc/leave_reservation", s.handleLeave)
	s.mux.HandleFunc("POST /auth/v1/token", s.handleToken)
	s.mux.HandleFunc("GET /auth/v1/user", s.handleUser)
	s.mux.HandleFunc("POST /auth/v1/logout", s.handleLogout)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.apiKey != "" && r.Header.Get("apikey") != s.apiKey {
		s.writeError(w, http.StatusUnauthorized, "", "No API key found in request")
		return
	}
	s.mux.ServeHTTP(w, r)
}

type restError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(restError{Code: code, Message: message})
}

func (s *Server) writeRows(w http.ResponseWriter, status int, rows any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(rows)
}

// writeDBError translates driver errors, keeping unique violations on the
// wire as code 23505 the way the hosted backend reports them.
func (s *Server) writeDBError(w http.ResponseWriter, err error) {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		s.writeError(w, http.StatusConflict, "23505",
			fmt.Sprintf("duplicate key value violates unique constraint (%s)", sqliteErr.Error()))
		return
	}
	log.Error().Err(err).Msg("devbackend query failed")
	s.writeError(w, http.StatusInternalServerError, "", err.Error())
}

// eqParam extracts the value of a PostgREST-style "<col>=eq.<value>" filter.
func eqParam(r *http.Request, column string) (string, bool) {
	raw := r.URL.Query().Get(column)
	if value, ok := strings.CutPrefix(raw, "eq."); ok {
		return value, true
	}
	return "", false
}

// inParam extracts "<col>=in.(a,b,c)" filter values.
func inParam(r *http.Request, column string) ([]string, bool) {
	raw := r.URL.Query().Get(column)
	inner, ok := strings.CutPrefix(raw, "in.(")
	if !ok || !strings.HasSuffix(inner, ")") {
		return nil, false
	}
	inner = strings.TrimSuffix(inner, ")")
	if inner == "" {
		return []string{}, true
	}
	return strings.Split(inner, ","), true
}

func limitParam(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		return n
	}
	return 0
}

type courtRow struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

func (s *Server) handleCourts(w http.ResponseWriter, r *http.Request) {
	rows := []courtRow{}
	err := s.store.db.SelectContext(r.Context(), &rows,
		`SELECT id, name FROM courts ORDER BY id ASC`)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	s.writeRows(w, http.StatusOK, rows)
}

type blockRow struct {
	ID        string `db:"id" json:"id"`
	Date      string `db:"date" json:"date"`
	SlotStart string `db:"slot_start" json:"slot_start"`
	SlotEnd   string `db:"slot_end" json:"slot_end"`
	CourtID   int64  `db:"court_id" json:"court_id"`
	Reason    string `db:"reason" json:"reason"`
}

func (s *Server) handleBlocksQuery(w http.ResponseWriter, r *http.Request) {
	date, ok := eqParam(r, "date")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "", "date filter is required")
		return
	}
	rows := []blockRow{}
	err := s.store.db.SelectContext(r.Context(), &rows,
		`SELECT id, date, slot_start, slot_end, court_id, reason
		   FROM blocks WHERE date = ?
		  ORDER BY slot_start ASC, court_id ASC`, date)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	s.writeRows(w, http.StatusOK, rows)
}

func (s *Server) handleBlockInsert(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Date      string `json:"date"`
		SlotStart string `json:"slot_start"`
		SlotEnd   string `json:"slot_end"`
		CourtID   int64  `json:"court_id"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "", "invalid body")
		return
	}

	_, err := s.store.db.ExecContext(r.Context(),
		`INSERT INTO blocks (id, date, slot_start, slot_end, court_id, reason)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), payload.Date, payload.SlotStart, payload.SlotEnd, payload.CourtID, payload.Reason)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleBlockDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := eqParam(r, "id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "", "id filter is required")
		return
	}
	if _, err := s.store.db.ExecContext(r.Context(), `DELETE FROM blocks WHERE id = ?`, id); err != nil {
		s.writeDBError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reservationRow struct {
	ID        string `db:"id" json:"id"`
	Date      string `db:"date" json:"date"`
	SlotStart string `db:"slot_start" json:"slot_start"`
	SlotEnd   string `db:"slot_end" json:"slot_end"`
	CourtID   int64  `db:"court_id" json:"court_id"`
}

func (s *Server) handleReservationsQuery(w http.ResponseWriter, r *http.Request) {
	clauses := []string{"1=1"}
	args := []any{}

	if date, ok := eqParam(r, "date"); ok {
		clauses = append(clauses, "date = ?")
		args = append(args, date)
	} else if from, ok := strings.CutPrefix(r.URL.Query().Get("date"), "gte."); ok && from != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, from)
	}
	if slotStart, ok := eqParam(r, "slot_start"); ok {
		clauses = append(clauses, "slot_start = ?")
		args = append(args, slotStart)
	}
	if courtID, ok := eqParam(r, "court_id"); ok {
		clauses = append(clauses, "court_id = ?")
		args = append(args, courtID)
	}
	if ids, ok := inParam(r, "id"); ok {
		query, inArgs, err := bindIn("id", ids)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "", err.Error())
			return
		}
		clauses = append(clauses, query)
		args = append(args, inArgs...)
	}

	sqlText := `SELECT id, date, slot_start, slot_end, court_id FROM reservations WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY date ASC, slot_start ASC`
	if limit := limitParam(r); limit > 0 {
		sqlText += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows := []reservationRow{}
	if err := s.store.db.SelectContext(r.Context(), &rows, sqlText, args...); err != nil {
		s.writeDBError(w, err)
		return
	}
	s.writeRows(w, http.StatusOK, rows)
}

func (s *Server) handleReservationInsert(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Date         string `json:"date"`
		SlotStart    string `json:"slot_start"`
		SlotEnd      string `json:"slot_end"`
		CourtID      int64  `json:"court_id"`
		MemberUserID string `json:"member_user_id"`
		Status       string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "", "invalid body")
		return
	}
	if payload.Status == "" {
		payload.Status = "active"
	}

	id := uuid.NewString()
	_, err := s.store.db.ExecContext(r.Context(),
		`INSERT INTO reservations (id, date, slot_start, slot_end, court_id, member_user_id, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, payload.Date, payload.SlotStart, payload.SlotEnd, payload.CourtID, payload.MemberUserID, payload.Status)
	if err != nil {
		s.writeDBError(w, err)
		return
	}

	if strings.Contains(r.Header.Get("Prefer"), "return=representation") {
		s.writeRows(w, http.StatusCreated, []reservationRow{{
			ID:        id,
			Date:      payload.Date,
			SlotStart: payload.SlotStart,
			SlotEnd:   payload.SlotEnd,
			CourtID:   payload.CourtID,
		}})
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type seatRow struct {
	ReservationID string `db:"reservation_id" json:"reservation_id"`
	Seat          int    `db:"seat" json:"seat"`
	MemberUserID  string `db:"member_user_id" json:"member_user_id"`
}

func (s *Server) handleSeatQuery(w http.ResponseWriter, r *http.Request) {
	rows := []seatRow{}

	if member, ok := eqParam(r, "member_user_id"); ok {
		err := s.store.db.SelectContext(r.Context(), &rows,
			`SELECT reservation_id, seat, member_user_id
			   FROM reservation_players WHERE member_user_id = ?`, member)
		if err != nil {
			s.writeDBError(w, err)
			return
		}
		s.writeRows(w, http.StatusOK, rows)
		return
	}

	ids, ok := inParam(r, "reservation_id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "", "reservation_id filter is required")
		return
	}
	query, args, err := bindIn("reservation_id", ids)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}
	err = s.store.db.SelectContext(r.Context(), &rows,
		`SELECT reservation_id, seat, member_user_id FROM reservation_players WHERE `+query+
			` ORDER BY reservation_id, seat`, args...)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	s.writeRows(w, http.StatusOK, rows)
}

type memberPublicRow struct {
	UserID   string `db:"user_id" json:"user_id"`
	FullName string `db:"full_name" json:"full_name"`
}

func (s *Server) handleMembersPublicQuery(w http.ResponseWriter, r *http.Request) {
	rows := []memberPublicRow{}

	if ids, ok := inParam(r, "user_id"); ok {
		query, args, err := bindIn("user_id", ids)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "", err.Error())
			return
		}
		err = s.store.db.SelectContext(r.Context(), &rows,
			`SELECT user_id, full_name FROM members WHERE `+query, args...)
		if err != nil {
			s.writeDBError(w, err)
			return
		}
		s.writeRows(w, http.StatusOK, rows)
		return
	}

	pattern, ok := strings.CutPrefix(r.URL.Query().Get("full_name"), "ilike.")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "", "user_id or full_name filter is required")
		return
	}
	pattern = strings.ReplaceAll(pattern, "*", "%")

	sqlText := `SELECT user_id, full_name FROM members
	             WHERE is_active = 1 AND full_name LIKE ? COLLATE NOCASE
	             ORDER BY full_name ASC`
	if limit := limitParam(r); limit > 0 {
		sqlText += fmt.Sprintf(" LIMIT %d", limit)
	}
	if err := s.store.db.SelectContext(r.Context(), &rows, sqlText, pattern); err != nil {
		s.writeDBError(w, err)
		return
	}
	s.writeRows(w, http.StatusOK, rows)
}

type memberRow struct {
	UserID   string `db:"user_id" json:"user_id"`
	Role     string `db:"role" json:"role"`
	IsActive bool   `db:"is_active" json:"is_active"`
	FullName string `db:"full_name" json:"full_name"`
}

func (s *Server) handleMembersQuery(w http.ResponseWriter, r *http.Request) {
	userID, ok := eqParam(r, "user_id")
	if !ok {
		s.writeError(w, http.StatusBadRequest, "", "user_id filter is required")
		return
	}
	rows := []memberRow{}
	err := s.store.db.SelectContext(r.Context(), &rows,
		`SELECT user_id, role, is_active, full_name FROM members WHERE user_id = ?`, userID)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	s.writeRows(w, http.StatusOK, rows)
}

// bindIn builds a "col IN (?,?,...)" clause.
func bindIn(column string, values []string) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, fmt.Errorf("empty in filter for %s", column)
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return column + " IN (?" + strings.Repeat(",?", len(values)-1) + ")", args, nil
}
