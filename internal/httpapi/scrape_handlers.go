package httpapi

import (
	"context"
	"errors"
	"net/http"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/logging"
	"jobglob-engine/internal/poll"
	"jobglob-engine/internal/store"
)

type ScrapeHandler struct {
	DB         *store.DB
	Poller     Poller
	Background context.Context
}

func (h ScrapeHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Poller.Status())
}

// Run starts a poll in the background. Progress arrives over /events.
func (h ScrapeHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Poller.Status().Running {
		WriteError(w, r, http.StatusConflict, "already_running", "a poll is already running")
		return
	}

	parent := h.Background
	if parent == nil {
		parent = context.Background()
	}
	go func() {
		if _, err := h.Poller.RunOnce(parent); err != nil && !errors.Is(err, poll.ErrRunning) {
			log := logging.Component("http")
			log.Error().Err(err).Msg("background poll failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"ok": true})
}

// Review groups the latest run's outcomes by category, problems first.
func (h ScrapeHandler) Review(w http.ResponseWriter, r *http.Request) {
	outs, err := h.DB.LatestOutcomes(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, groupOutcomes(outs))
}

func groupOutcomes(outs []domain.ScrapeOutcome) ReviewResponse {
	var resp ReviewResponse
	by := make(map[domain.OutcomeCategory][]domain.ScrapeOutcome)
	for _, o := range outs {
		resp.RunID = o.RunID
		by[o.Category] = append(by[o.Category], o)
	}
	for _, c := range domain.Categories {
		if len(by[c]) > 0 {
			resp.Groups = append(resp.Groups, ReviewGroup{Category: c, Outcomes: by[c]})
		}
	}
	return resp
}
