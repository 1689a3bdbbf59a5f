package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Body   map[string]any
}

// newTestClient returns a Rest client pointed at a stub that records the
// request and replies with status and body.
func newTestClient(t *testing.T, status int, body string, record *recordedRequest) *Rest {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if record != nil {
			record.Method = r.Method
			record.Path = r.URL.Path
			record.Query = map[string]string{}
			for key := range r.URL.Query() {
				record.Query[key] = r.URL.Query().Get(key)
			}
			record.Header = r.Header.Clone()
			if r.Body != nil {
				var decoded map[string]any
				if err := json.NewDecoder(r.Body).Decode(&decoded); err == nil {
					record.Body = decoded
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := NewRest(Config{BaseURL: server.URL, APIKey: "anon-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRestRequiresBaseURL(t *testing.T) {
	if _, err := NewRest(Config{}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}

func TestCourtsRequestShape(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK, `[{"id":1,"name":"Pista 1"}]`, &rec)

	courts, err := client.Courts(context.Background())
	if err != nil {
		t.Fatalf("courts: %v", err)
	}
	if len(courts) != 1 || courts[0].Name != "Pista 1" {
		t.Fatalf("unexpected courts: %+v", courts)
	}
	if rec.Path != "/rest/v1/courts" {
		t.Fatalf("unexpected path %s", rec.Path)
	}
	if rec.Query["order"] != "id.asc" {
		t.Fatalf("unexpected order param %q", rec.Query["order"])
	}
	if rec.Header.Get("apikey") != "anon-key" {
		t.Fatal("expected apikey header")
	}
	if rec.Header.Get("Authorization") != "Bearer anon-key" {
		t.Fatalf("expected api key as bearer fallback, got %q", rec.Header.Get("Authorization"))
	}
}

func TestTokenPrecedence(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK, `[]`, &rec)

	ctx := ContextWithToken(context.Background(), "member-token")
	if _, err := client.Courts(ctx); err != nil {
		t.Fatalf("courts: %v", err)
	}
	if rec.Header.Get("Authorization") != "Bearer member-token" {
		t.Fatalf("member token must win, got %q", rec.Header.Get("Authorization"))
	}
	if rec.Header.Get("apikey") != "anon-key" {
		t.Fatal("apikey header must still be present")
	}
}

func TestReservationByTripleFilters(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK, `[]`, &rec)

	res, err := client.ReservationByTriple(context.Background(), "2026-09-02", "17:00", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res != nil {
		t.Fatal("expected nil for empty result")
	}
	if rec.Path != "/rest/v1/reservations_public" {
		t.Fatalf("unexpected path %s", rec.Path)
	}
	if rec.Query["date"] != "eq.2026-09-02" || rec.Query["slot_start"] != "eq.17:00" || rec.Query["court_id"] != "eq.2" {
		t.Fatalf("unexpected filters: %v", rec.Query)
	}
	if rec.Query["limit"] != "1" {
		t.Fatal("expected limit=1")
	}
}

func TestReservationsByIDsInFilter(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK, `[]`, &rec)

	_, err := client.ReservationsByIDs(context.Background(), []string{"a", "b"}, "2026-09-01")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if rec.Query["id"] != "in.(a,b)" {
		t.Fatalf("unexpected in filter %q", rec.Query["id"])
	}
	if rec.Query["date"] != "gte.2026-09-01" {
		t.Fatalf("unexpected date filter %q", rec.Query["date"])
	}
}

func TestReservationsByIDsEmptySkipsRequest(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK, `[]`, &rec)

	rows, err := client.ReservationsByIDs(context.Background(), nil, "")
	if err != nil || rows != nil {
		t.Fatalf("expected no-op, got %v %v", rows, err)
	}
	if rec.Method != "" {
		t.Fatal("empty id list must not hit the backend")
	}
}

func TestSearchMembersPattern(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK, `[]`, &rec)

	if _, err := client.SearchMembers(context.Background(), " ana ", 10); err != nil {
		t.Fatalf("search: %v", err)
	}
	if rec.Query["full_name"] != "ilike.*ana*" {
		t.Fatalf("unexpected pattern %q", rec.Query["full_name"])
	}
	if rec.Query["limit"] != "10" {
		t.Fatalf("unexpected limit %q", rec.Query["limit"])
	}
}

func TestInsertReservationReturnsRepresentation(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusCreated,
		`[{"id":"r-1","date":"2026-09-02","slot_start":"17:00","slot_end":"18:30","court_id":1}]`, &rec)

	created, err := client.InsertReservation(context.Background(), NewReservation{
		Date:         "2026-09-02",
		SlotStart:    "17:00",
		SlotEnd:      "18:30",
		CourtID:      1,
		MemberUserID: "u-ana",
		Status:       "active",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created.ID != "r-1" {
		t.Fatalf("unexpected reservation: %+v", created)
	}
	if rec.Header.Get("Prefer") != "return=representation" {
		t.Fatal("expected Prefer header")
	}
	if rec.Body["member_user_id"] != "u-ana" {
		t.Fatalf("unexpected body: %v", rec.Body)
	}
}

func TestUniqueViolationIsTypedConflict(t *testing.T) {
	client := newTestClient(t, http.StatusConflict,
		`{"code":"23505","message":"duplicate key value violates unique constraint \"uq_reservation_unique\""}`, nil)

	_, err := client.InsertReservation(context.Background(), NewReservation{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsConflict(err) {
		t.Fatalf("expected typed conflict, got %v", err)
	}
	var berr *Error
	if !errors.As(err, &berr) || berr.Code != "23505" {
		t.Fatalf("expected code 23505, got %+v", berr)
	}
}

func TestRPCShape(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusNoContent, ``, &rec)

	if err := client.JoinReservation(context.Background(), "r-1", "u-ana"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if rec.Path != "/rest/v1/rpc/join_reservation" {
		t.Fatalf("unexpected path %s", rec.Path)
	}
	if rec.Body["p_reservation_id"] != "r-1" || rec.Body["p_member"] != "u-ana" {
		t.Fatalf("unexpected payload: %v", rec.Body)
	}
}

func TestRPCErrorMessageVerbatim(t *testing.T) {
	client := newTestClient(t, http.StatusBadRequest,
		`{"code":"P0001","message":"reservation is full"}`, nil)

	err := client.JoinReservation(context.Background(), "r-1", "u-5")
	var berr *Error
	if !errors.As(err, &berr) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if berr.Message != "reservation is full" {
		t.Fatalf("expected verbatim message, got %q", berr.Message)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	client := newTestClient(t, http.StatusBadGateway, `upstream unavailable`, nil)

	_, err := client.Courts(context.Background())
	var berr *Error
	if !errors.As(err, &berr) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if berr.Status != http.StatusBadGateway || berr.Message != "upstream unavailable" {
		t.Fatalf("unexpected error: %+v", berr)
	}
}

func TestSignInRequestShape(t *testing.T) {
	var rec recordedRequest
	client := newTestClient(t, http.StatusOK,
		`{"access_token":"tok","expires_in":3600,"user":{"id":"u-ana"}}`, &rec)

	sess, err := client.SignIn(context.Background(), "ana@club.test", "passw0rd")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.AccessToken != "tok" || sess.UserID != "u-ana" || sess.ExpiresIn != 3600 {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if rec.Path != "/auth/v1/token" || rec.Query["grant_type"] != "password" {
		t.Fatalf("unexpected request: %s %v", rec.Path, rec.Query)
	}
}
