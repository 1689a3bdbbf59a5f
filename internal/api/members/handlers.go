// Package members serves the member directory search used by the seat
// labels and the join dialog.
package members

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clubpadel/courtside/internal/api/apiutil"
	"github.com/clubpadel/courtside/internal/availability"
	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/ratelimit"
)

var (
	store         backend.Store
	searchLimiter *ratelimit.Limiter
	initOnce      sync.Once
)

const (
	queryTimeout = 5 * time.Second
	// The search box debounces client-side at 150ms, so a well-behaved
	// client stays far under this.
	searchRPS   = 10
	searchBurst = 20
	maxResults  = 10
)

func InitHandlers(s backend.Store) {
	if s == nil {
		return
	}
	initOnce.Do(func() {
		store = s
		searchLimiter = ratelimit.New(searchRPS, searchBurst, 3*time.Minute)
	})
}

type searchResult struct {
	UserID    string `json:"user_id"`
	FullName  string `json:"full_name"`
	ShortName string `json:"short_name"`
}

type searchResponse struct {
	Members []searchResult `json:"members"`
}

// GET /api/v1/members/search?q=
func HandleSearch(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if store == nil {
		logger.Error().Msg("Member handlers not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if _, ok := apiutil.RequireSession(w, r); !ok {
		return
	}

	if !searchLimiter.Allow(ratelimit.ClientIP(r)) {
		apiutil.WriteError(w, r, apiutil.HandlerError{
			Status:  http.StatusTooManyRequests,
			Message: "too many search requests",
		})
		return
	}

	// An empty query returns an empty list without touching the backend.
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		_ = apiutil.WriteJSON(w, http.StatusOK, searchResponse{Members: []searchResult{}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	found, err := store.SearchMembers(ctx, query, maxResults)
	if err != nil {
		logger.Error().Err(err).Msg("Member search failed")
		apiutil.WriteError(w, r, err)
		return
	}

	results := make([]searchResult, 0, len(found))
	for _, m := range found {
		results = append(results, searchResult{
			UserID:    m.UserID,
			FullName:  m.FullName,
			ShortName: availability.ShortName(m.FullName),
		})
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, searchResponse{Members: results})
}
