package httpapi

import "net/http"

// NewMux returns the raw mux so main() can attach extra routes before
// wrapping it with Handler.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{DB: d.DB, Hub: d.Hub}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Companies and boards
	cat := CatalogHandler{DB: d.DB, Table: d.Table}
	mux.HandleFunc("/companies", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  cat.ListCompanies,
		http.MethodPost: cat.AddCompany,
	}))
	mux.HandleFunc("/boards", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  cat.ListBoards,
		http.MethodPost: cat.AddBoard,
	}))
	mux.HandleFunc("/boards/", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: cat.SetActive, // expects /boards/{id}/active
	}))

	// Listings
	lh := ListingsHandler{DB: d.DB, Hub: d.Hub, CfgVal: d.CfgVal, Poller: d.Poller}
	mux.HandleFunc("/listings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.List,
	}))
	mux.HandleFunc("/listings/check", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: lh.Check,
	}))
	mux.HandleFunc("/listings/", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: lh.DeleteByPath, // expects /listings/{id}
	}))

	// Applications
	ah := ApplicationsHandler{DB: d.DB}
	mux.HandleFunc("/applications", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  ah.List,
		http.MethodPost: ah.Add,
	}))
	mux.HandleFunc("/applications/", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Reject, // expects /applications/{id}/reject
	}))

	// Scrape
	sch := ScrapeHandler{DB: d.DB, Poller: d.Poller, Background: d.Background}
	mux.HandleFunc("/scrape/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sch.Status,
	}))
	mux.HandleFunc("/scrape/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sch.Run,
	}))
	mux.HandleFunc("/scrape/review", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sch.Review,
	}))

	// Discovery
	dh := DiscoverHandler{
		DB:       d.DB,
		Hub:      d.Hub,
		Table:    d.Table,
		RunCrawl: d.Crawl,
		Discover: d.Discover,
		Prober:   d.Prober,
	}
	mux.HandleFunc("/crawl", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Crawl,
	}))
	mux.HandleFunc("/detect", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Detect,
	}))
	mux.HandleFunc("/bruteforce", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.BruteForce,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		Hub:         d.Hub,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	dbh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dbh.Checkpoint,
	}))

	mux.Handle("/metrics", d.Metrics.Handler())

	return mux
}

// Handler wraps mux with the standard middleware chain.
func Handler(mux http.Handler) http.Handler {
	return Chain(mux, RequestID, Recover, AccessLog, Cors)
}
