package httpapi

import (
	"net/http"
	"strings"

	"jobglob-engine/internal/store"
	"jobglob-engine/internal/vendor"
)

// CatalogHandler manages the companies and boards the poller works from.
type CatalogHandler struct {
	DB    *store.DB
	Table *vendor.Table
}

func (h CatalogHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	cs, err := h.DB.ListCompanies(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, cs)
}

func (h CatalogHandler) AddCompany(w http.ResponseWriter, r *http.Request) {
	var req CompanyRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	c, err := h.DB.AddCompany(r.Context(), req.Name, req.Homepage)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if req.Homepage != "" && c.Homepage == "" {
		if err := h.DB.SetHomepage(r.Context(), c.ID, req.Homepage); err == nil {
			c.Homepage = req.Homepage
		}
	}
	writeJSON(w, c)
}

func (h CatalogHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	bs, err := h.DB.ListBoards(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, bs)
}

// AddBoard registers a board URL for a company, creating the company on
// first sight. The vendor is taken from the URL when not given.
func (h CatalogHandler) AddBoard(w http.ResponseWriter, r *http.Request) {
	var req BoardRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	v := vendor.Type(req.Vendor)
	if v == "" {
		var ok bool
		if v, ok = h.Table.Match(req.URL); !ok {
			WriteError(w, r, http.StatusBadRequest, "unknown_vendor", "url does not match any vendor")
			return
		}
	}

	c, err := h.DB.AddCompany(r.Context(), req.Company, "")
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	b, err := h.DB.AddBoard(r.Context(), c.ID, req.URL, string(v))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, b)
}

// SetActive handles POST /boards/{id}/active.
func (h CatalogHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/active") {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	id, ok := pathID(r.URL.Path, "/boards/")
	if !ok {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}
	var req ActiveRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := h.DB.SetBoardActive(r.Context(), id, req.Active); err != nil {
		writeStoreError(w, r, err, "board")
		return
	}
	writeJSON(w, map[string]any{"ok": true, "id": id, "active": req.Active})
}
