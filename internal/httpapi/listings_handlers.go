package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"jobglob-engine/internal/config"
	"jobglob-engine/internal/events"
	"jobglob-engine/internal/peruse"
	"jobglob-engine/internal/store"
)

type ListingsHandler struct {
	DB     *store.DB
	Hub    *events.Hub
	CfgVal *atomic.Value // config.Config
	Poller Poller
}

// List handles GET /listings?alive=1&company_id=N&filtered=1.
func (h ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f store.ListingFilter
	if v := q.Get("alive"); v != "" {
		alive := v == "1" || v == "true"
		f.Alive = &alive
	}
	if v := q.Get("company_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			WriteError(w, r, http.StatusBadRequest, "invalid_company_id", "invalid company_id")
			return
		}
		f.CompanyID = id
	}
	if v := q.Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}

	ls, err := h.DB.ListListings(r.Context(), f)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if q.Get("filtered") == "1" {
		ls = peruse.FromConfig(h.CfgVal.Load().(config.Config)).Apply(ls)
	}
	writeJSON(w, ls)
}

func (h ListingsHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/listings/")
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	if err := h.DB.DeleteListing(r.Context(), id); err != nil {
		writeStoreError(w, r, err, "listing")
		return
	}
	h.Hub.Emit(RequestIDFrom(r.Context()), events.ListingsChanged, map[string]any{"deleted": id})
	writeJSON(w, map[string]any{"ok": true, "id": id})
}

// Check probes every alive listing. It runs inside the request.
func (h ListingsHandler) Check(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Poller.CheckListings(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "check_failed", err.Error())
		return
	}
	writeJSON(w, sum)
}

type ApplicationsHandler struct {
	DB  *store.DB
	Now func() time.Time
}

func (h ApplicationsHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h ApplicationsHandler) List(w http.ResponseWriter, r *http.Request) {
	apps, err := h.DB.ListApplications(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, apps)
}

func (h ApplicationsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req ApplicationRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.ListingID <= 0 {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "listing_id is required")
		return
	}
	app, err := h.DB.AddApplication(r.Context(), req.ListingID, h.now())
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, app)
}

// Reject handles POST /applications/{id}/reject.
func (h ApplicationsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/reject") {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	id, ok := pathID(r.URL.Path, "/applications/")
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	if err := h.DB.RejectApplication(r.Context(), id, h.now()); err != nil {
		writeStoreError(w, r, err, "application")
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id})
}
