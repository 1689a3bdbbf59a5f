// Package htmx carries the small amount of htmx protocol the API speaks.
// Mutating handlers fire a client-side event so an htmx front end can
// re-fetch the availability grid without a full page reload.
package htmx

import "net/http"

// EventRefreshAvailability tells the client the day grid is stale.
const EventRefreshAvailability = "refreshAvailability"

func Trigger(w http.ResponseWriter, event string) {
	w.Header().Set("HX-Trigger", event)
}
