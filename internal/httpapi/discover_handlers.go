package httpapi

import (
	"context"
	"net/http"
	"strings"

	"jobglob-engine/internal/crawl"
	"jobglob-engine/internal/discover"
	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/events"
	"jobglob-engine/internal/store"
	"jobglob-engine/internal/vendor"
)

// DiscoverHandler exposes the crawler, the classifier and the discovery
// pipeline. All three run inside the request.
type DiscoverHandler struct {
	DB       *store.DB
	Hub      *events.Hub
	Table    *vendor.Table
	RunCrawl func(ctx context.Context, startURL string) (crawl.Result, error)
	Discover Discoverer
	Prober   Prober
}

func (h DiscoverHandler) Crawl(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	res, err := h.RunCrawl(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "crawl_failed", err.Error())
		return
	}
	h.Hub.Emit(RequestIDFrom(r.Context()), events.CrawlFinished, res)
	writeJSON(w, res)
}

func (h DiscoverHandler) Detect(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDetect(w, r)
	if !ok {
		return
	}

	var resp DetectResponse
	if req.JobsPage != "" {
		v, boards := h.Prober.FindBoardFromJobsPage(r.Context(), req.Company, req.JobsPage)
		resp = DetectResponse{Vendor: string(v), Method: "jobs_page", Boards: boards}
	} else {
		rep, err := h.Discover.FindBoards(r.Context(), req.Company, req.Homepage)
		if err != nil {
			WriteError(w, r, http.StatusBadGateway, "detect_failed", err.Error())
			return
		}
		if req.Homepage == "" {
			req.Homepage = rep.Homepage
		}
		resp = DetectResponse{Method: string(rep.Method), Boards: rep.Boards, Report: rep}
	}
	h.finish(w, r, req, resp)
}

func (h DiscoverHandler) BruteForce(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDetect(w, r)
	if !ok {
		return
	}
	boards := h.Prober.BruteForce(r.Context(), req.Company)
	h.finish(w, r, req, DetectResponse{Method: string(discover.MethodBruteForce), Boards: boards})
}

func (h DiscoverHandler) decodeDetect(w http.ResponseWriter, r *http.Request) (DetectRequest, bool) {
	var req DetectRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return req, false
	}
	req.Company = strings.TrimSpace(req.Company)
	if req.Company == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "company is required")
		return req, false
	}
	return req, true
}

func (h DiscoverHandler) finish(w http.ResponseWriter, r *http.Request, req DetectRequest, resp DetectResponse) {
	resp.Company = req.Company
	if resp.Boards == nil {
		resp.Boards = []string{}
	}
	if req.Save && len(resp.Boards) > 0 {
		saved, err := h.save(r.Context(), req.Company, req.Homepage, resp.Boards)
		if err != nil {
			WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
		resp.Saved = saved
	}
	h.Hub.Emit(RequestIDFrom(r.Context()), events.BoardsDetected, resp)
	writeJSON(w, resp)
}

func (h DiscoverHandler) save(ctx context.Context, company, homepage string, urls []string) ([]domain.Board, error) {
	boards := make([]domain.Board, 0, len(urls))
	for _, u := range urls {
		v, _ := h.Table.Match(u)
		boards = append(boards, domain.Board{URL: u, Vendor: string(v)})
	}
	return h.DB.SaveDiscovered(ctx, company, homepage, boards)
}
