package devbackend

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/catalog"
	"github.com/clubpadel/courtside/internal/gateway"
)

const (
	testAPIKey = "test-anon-key"
	testSecret = "test-jwt-secret"
	weekday    = "2026-09-02"
)

type fixture struct {
	store  *Store
	client *backend.Rest
	admin  string
	ana    string
	luis   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SeedCourts(ctx, "Pista 1", "Pista 2", "Pista 3"))

	admin, err := store.SeedMember(ctx, "admin@club.test", "admin123", "Carmen Ruiz Delgado", "admin", true)
	require.NoError(t, err)
	ana, err := store.SeedMember(ctx, "ana@club.test", "ana12345", "Ana García López", "member", true)
	require.NoError(t, err)
	luis, err := store.SeedMember(ctx, "luis@club.test", "luis1234", "Luis Martín Pérez", "member", true)
	require.NoError(t, err)

	server := httptest.NewServer(NewServer(store, testAPIKey, testSecret))
	t.Cleanup(server.Close)

	client, err := backend.NewRest(backend.Config{BaseURL: server.URL, APIKey: testAPIKey})
	require.NoError(t, err)

	return &fixture{store: store, client: client, admin: admin, ana: ana, luis: luis}
}

func (f *fixture) signIn(t *testing.T, email, password string) context.Context {
	t.Helper()
	sess, err := f.client.SignIn(context.Background(), email, password)
	require.NoError(t, err)
	return backend.ContextWithToken(context.Background(), sess.AccessToken)
}

func TestSignInAndProfile(t *testing.T) {
	f := newFixture(t)

	sess, err := f.client.SignIn(context.Background(), "ana@club.test", "ana12345")
	require.NoError(t, err)
	assert.Equal(t, f.ana, sess.UserID)
	assert.NotEmpty(t, sess.AccessToken)

	ctx := backend.ContextWithToken(context.Background(), sess.AccessToken)
	profile, err := f.client.MemberProfile(ctx, sess.UserID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "member", profile.Role)
	assert.True(t, profile.IsActive)
	assert.Equal(t, "Ana García López", profile.FullName)
}

func TestSignInWrongPassword(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.SignIn(context.Background(), "ana@club.test", "nope")
	require.Error(t, err)
	var berr *backend.Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "Invalid login credentials", berr.Message)
}

func TestTokenRevokedAfterSignOut(t *testing.T) {
	f := newFixture(t)

	sess, err := f.client.SignIn(context.Background(), "ana@club.test", "ana12345")
	require.NoError(t, err)

	userID, err := f.client.User(context.Background(), sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.ana, userID)

	require.NoError(t, f.client.SignOut(context.Background(), sess.AccessToken))

	_, err = f.client.User(context.Background(), sess.AccessToken)
	require.Error(t, err)
}

func TestCreateOrJoinRace(t *testing.T) {
	f := newFixture(t)
	ctx := f.signIn(t, "ana@club.test", "ana12345")

	g := gateway.New(f.client)
	slot, ok := catalog.FindSlot(weekday, "17:00")
	require.True(t, ok)

	first, err := g.CreateOrJoin(ctx, f.ana, weekday, slot, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	// A second member creating the same triple must fall through to join.
	ctxLuis := f.signIn(t, "luis@club.test", "luis1234")
	second, err := g.CreateOrJoin(ctxLuis, f.luis, weekday, slot, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	seats, err := f.client.SeatRows(ctx, []string{first.ID})
	require.NoError(t, err)
	require.Len(t, seats, 2)
	assert.Equal(t, 1, seats[0].Seat)
	assert.Equal(t, 2, seats[1].Seat)
}

func TestJoinFullReservation(t *testing.T) {
	f := newFixture(t)
	ctx := f.signIn(t, "ana@club.test", "ana12345")

	g := gateway.New(f.client)
	slot, _ := catalog.FindSlot(weekday, "17:00")
	res, err := g.CreateOrJoin(ctx, f.ana, weekday, slot, 2)
	require.NoError(t, err)

	for _, extra := range []string{"m2", "m3", "m4"} {
		userID, err := f.store.SeedMember(context.Background(), extra+"@club.test", "pass1234", "Socio "+extra, "member", true)
		require.NoError(t, err)
		require.NoError(t, f.client.JoinReservation(ctx, res.ID, userID))
	}

	fifth, err := f.store.SeedMember(context.Background(), "m5@club.test", "pass1234", "Socio Quinto", "member", true)
	require.NoError(t, err)
	err = f.client.JoinReservation(ctx, res.ID, fifth)
	require.Error(t, err)
	var berr *backend.Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, "reservation is full", berr.Message)
}

func TestLeaveLastSeatRemovesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := f.signIn(t, "ana@club.test", "ana12345")

	g := gateway.New(f.client)
	slot, _ := catalog.FindSlot(weekday, "18:30")
	res, err := g.CreateOrJoin(ctx, f.ana, weekday, slot, 1)
	require.NoError(t, err)

	require.NoError(t, g.Leave(ctx, res.ID, f.ana))

	row, err := f.client.ReservationByTriple(ctx, weekday, slot.Start, 1)
	require.NoError(t, err)
	assert.Nil(t, row, "empty reservation should be gone")

	// Leaving again reports the procedure's message.
	err = f.client.LeaveReservation(ctx, res.ID, f.ana)
	require.Error(t, err)
}

func TestBlockToggleRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := f.signIn(t, "admin@club.test", "admin123")

	g := gateway.New(f.client)
	slot, ok := catalog.FindSlot("2026-09-05", "11:00") // Saturday slot
	require.True(t, ok)

	blocked, err := g.ToggleBlock(ctx, "2026-09-05", slot, 2, "Tournament")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocks, err := f.client.BlocksByDate(ctx, "2026-09-05")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "Tournament", blocks[0].Reason)
	assert.Equal(t, int64(2), blocks[0].CourtID)

	blocked, err = g.ToggleBlock(ctx, "2026-09-05", slot, 2, "")
	require.NoError(t, err)
	assert.False(t, blocked)

	blocks, err = f.client.BlocksByDate(ctx, "2026-09-05")
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestMemberSearchCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := f.signIn(t, "ana@club.test", "ana12345")

	found, err := f.client.SearchMembers(ctx, "garcía", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Ana García López", found[0].FullName)
}

func TestAPIKeyRequired(t *testing.T) {
	f := newFixture(t)

	server := httptest.NewServer(NewServer(f.store, testAPIKey, testSecret))
	t.Cleanup(server.Close)

	noKey, err := backend.NewRest(backend.Config{BaseURL: server.URL, APIKey: "wrong-key"})
	require.NoError(t, err)

	_, err = noKey.Courts(context.Background())
	require.Error(t, err)
	var berr *backend.Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, 401, berr.Status)
}
