package availability

import (
	"context"

	"github.com/clubpadel/courtside/internal/backend"
	"github.com/clubpadel/courtside/internal/catalog"
)

// LoadDay fetches one date's rows and resolves them into a DayView. The
// fetch order is fixed: courts, then blocks and reservations, then seat rows,
// then the member names for those seats; seat names are never resolved from a
// stale batch. Any fetch error aborts the whole load so a partially loaded
// day is never rendered.
func LoadDay(ctx context.Context, store backend.Store, date, viewerID string) (DayView, error) {
	slots, err := catalog.SlotsForISODate(date)
	if err != nil {
		return DayView{}, err
	}
	if len(slots) == 0 {
		return DayView{Date: date, Closed: true}, nil
	}

	courts, err := store.Courts(ctx)
	if err != nil {
		return DayView{}, err
	}

	blocks, err := store.BlocksByDate(ctx, date)
	if err != nil {
		return DayView{}, err
	}

	reservations, err := store.ReservationsByDate(ctx, date)
	if err != nil {
		return DayView{}, err
	}

	var seats []backend.SeatRow
	names := map[string]string{}
	if len(reservations) > 0 {
		ids := make([]string, 0, len(reservations))
		for _, r := range reservations {
			ids = append(ids, r.ID)
		}
		seats, err = store.SeatRows(ctx, ids)
		if err != nil {
			return DayView{}, err
		}

		if memberIDs := distinctMemberIDs(seats); len(memberIDs) > 0 {
			members, err := store.MembersByIDs(ctx, memberIDs)
			if err != nil {
				return DayView{}, err
			}
			for _, m := range members {
				names[m.UserID] = m.FullName
			}
		}
	}

	return Resolve(ResolveInput{
		Date:         date,
		Slots:        slots,
		Courts:       courts,
		Blocks:       blocks,
		Reservations: reservations,
		Seats:        seats,
		Names:        names,
		ViewerID:     viewerID,
	}), nil
}

func distinctMemberIDs(seats []backend.SeatRow) []string {
	seen := make(map[string]struct{}, len(seats))
	ids := make([]string, 0, len(seats))
	for _, s := range seats {
		if _, ok := seen[s.MemberUserID]; ok {
			continue
		}
		seen[s.MemberUserID] = struct{}{}
		ids = append(ids, s.MemberUserID)
	}
	return ids
}
