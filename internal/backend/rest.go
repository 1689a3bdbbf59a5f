package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// Config holds the connection settings for the managed backend.
type Config struct {
	// BaseURL is the backend's root URL; row queries go to
	// {BaseURL}/rest/v1/<table>, remote procedures to
	// {BaseURL}/rest/v1/rpc/<fn>, auth to {BaseURL}/auth/v1.
	BaseURL string
	// APIKey is the project API key, sent on every request.
	APIKey string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Rest talks to the backend's REST row API and remote-procedure endpoints.
// It implements Store and Authenticator.
type Rest struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var (
	_ Store         = (*Rest)(nil)
	_ Authenticator = (*Rest)(nil)
)

// NewRest creates a backend client from cfg.
func NewRest(cfg Config) (*Rest, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &Rest{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

func (c *Rest) Courts(ctx context.Context) ([]Court, error) {
	query := url.Values{}
	query.Set("select", "id,name")
	query.Set("order", "id.asc")

	var courts []Court
	if err := c.getRows(ctx, "courts", query, &courts); err != nil {
		return nil, err
	}
	return courts, nil
}

func (c *Rest) BlocksByDate(ctx context.Context, date string) ([]Block, error) {
	query := url.Values{}
	query.Set("select", "id,date,slot_start,slot_end,court_id,reason")
	query.Set("date", "eq."+date)
	query.Set("order", "slot_start.asc,court_id.asc")

	var blocks []Block
	if err := c.getRows(ctx, "blocks", query, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (c *Rest) ReservationsByDate(ctx context.Context, date string) ([]Reservation, error) {
	query := url.Values{}
	query.Set("select", "id,date,slot_start,slot_end,court_id")
	query.Set("date", "eq."+date)

	var reservations []Reservation
	if err := c.getRows(ctx, "reservations_public", query, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (c *Rest) ReservationByTriple(ctx context.Context, date, slotStart string, courtID int64) (*Reservation, error) {
	query := url.Values{}
	query.Set("select", "id,date,slot_start,slot_end,court_id")
	query.Set("date", "eq."+date)
	query.Set("slot_start", "eq."+slotStart)
	query.Set("court_id", fmt.Sprintf("eq.%d", courtID))
	query.Set("limit", "1")

	var reservations []Reservation
	if err := c.getRows(ctx, "reservations_public", query, &reservations); err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return nil, nil
	}
	return &reservations[0], nil
}

func (c *Rest) ReservationsByIDs(ctx context.Context, ids []string, fromDate string) ([]Reservation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("select", "id,date,slot_start,slot_end,court_id")
	query.Set("id", inFilter(ids))
	if fromDate != "" {
		query.Set("date", "gte."+fromDate)
	}
	query.Set("order", "date.asc,slot_start.asc")

	var reservations []Reservation
	if err := c.getRows(ctx, "reservations_public", query, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (c *Rest) SeatRows(ctx context.Context, reservationIDs []string) ([]SeatRow, error) {
	if len(reservationIDs) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("select", "reservation_id,seat,member_user_id")
	query.Set("reservation_id", inFilter(reservationIDs))

	var rows []SeatRow
	if err := c.getRows(ctx, "reservation_players", query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Rest) SeatRowsByMember(ctx context.Context, memberID string) ([]SeatRow, error) {
	query := url.Values{}
	query.Set("select", "reservation_id,seat,member_user_id")
	query.Set("member_user_id", "eq."+memberID)

	var rows []SeatRow
	if err := c.getRows(ctx, "reservation_players", query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Rest) MembersByIDs(ctx context.Context, userIDs []string) ([]MemberPublic, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("select", "user_id,full_name")
	query.Set("user_id", inFilter(userIDs))

	var members []MemberPublic
	if err := c.getRows(ctx, "members_public", query, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Rest) SearchMembers(ctx context.Context, queryText string, limit int) ([]MemberPublic, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query := url.Values{}
	query.Set("select", "user_id,full_name")
	query.Set("full_name", "ilike.*"+queryText+"*")
	query.Set("order", "full_name.asc")
	query.Set("limit", fmt.Sprintf("%d", limit))

	var members []MemberPublic
	if err := c.getRows(ctx, "members_public", query, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *Rest) MemberProfile(ctx context.Context, userID string) (*MemberProfile, error) {
	query := url.Values{}
	query.Set("select", "user_id,role,is_active,full_name")
	query.Set("user_id", "eq."+userID)
	query.Set("limit", "1")

	var members []MemberProfile
	if err := c.getRows(ctx, "members", query, &members); err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	return &members[0], nil
}

func (c *Rest) InsertReservation(ctx context.Context, res NewReservation) (Reservation, error) {
	var created []Reservation
	if err := c.insert(ctx, "reservations", res, &created); err != nil {
		return Reservation{}, err
	}
	if len(created) == 0 {
		return Reservation{}, &Error{Status: http.StatusInternalServerError, Message: "backend returned no row for created reservation"}
	}
	return created[0], nil
}

func (c *Rest) InsertBlock(ctx context.Context, block NewBlock) error {
	return c.insert(ctx, "blocks", block, nil)
}

func (c *Rest) DeleteBlock(ctx context.Context, blockID string) error {
	query := url.Values{}
	query.Set("id", "eq."+blockID)

	req, err := c.newRequest(ctx, http.MethodDelete, c.restURL("blocks", query), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Rest) JoinReservation(ctx context.Context, reservationID, memberID string) error {
	return c.rpc(ctx, "join_reservation", map[string]string{
		"p_reservation_id": reservationID,
		"p_member":         memberID,
	})
}

func (c *Rest) LeaveReservation(ctx context.Context, reservationID, memberID string) error {
	return c.rpc(ctx, "leave_reservation", map[string]string{
		"p_reservation_id": reservationID,
		"p_member":         memberID,
	})
}

func (c *Rest) getRows(ctx context.Context, table string, query url.Values, into any) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.restURL(table, query), nil)
	if err != nil {
		return err
	}
	return c.do(req, into)
}

func (c *Rest) insert(ctx context.Context, table string, payload, into any) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.restURL(table, nil), payload)
	if err != nil {
		return err
	}
	if into != nil {
		req.Header.Set("Prefer", "return=representation")
	}
	return c.do(req, into)
}

func (c *Rest) rpc(ctx context.Context, name string, payload any) error {
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/rest/v1/rpc/"+name, payload)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Rest) restURL(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Rest) newRequest(ctx context.Context, method, rawURL string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode backend request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeaders(req)
	return req, nil
}

func (c *Rest) setAuthHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	// A member token from the request context takes precedence so the
	// backend applies that member's row-level permissions.
	token := TokenFromContext(req.Context())
	if token == "" {
		token = c.apiKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Rest) do(req *http.Request, into any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, body)
	}

	if into == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("decode backend response: %w", err)
	}
	return nil
}

// decodeError maps a non-2xx response to an Error. The backend reports
// failures as a JSON object with code/message/details/hint fields; anything
// else is carried as the raw body text.
func decodeError(status int, body []byte) error {
	berr := &Error{Status: status}
	if err := json.Unmarshal(body, berr); err != nil || berr.Message == "" {
		berr.Message = strings.TrimSpace(string(body))
		if berr.Message == "" {
			berr.Message = http.StatusText(status)
		}
	}
	return berr
}

// inFilter renders an "in" filter value: in.(a,b,c).
func inFilter(values []string) string {
	return "in.(" + strings.Join(values, ",") + ")"
}
