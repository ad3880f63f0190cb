package httpapi

import (
	"net/http"

	"jobglob-engine/internal/events"
	"jobglob-engine/internal/store"
)

type HealthHandler struct {
	DB  *store.DB
	Hub *events.Hub
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.Pool.PingContext(r.Context()); err != nil {
		WriteError(w, r, http.StatusServiceUnavailable, "db_unavailable", err.Error())
		return
	}
	writeJSON(w, map[string]any{
		"ok":          true,
		"subscribers": h.Hub.Subscribers(),
	})
}
