package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}

// NormalizeAndValidate returns a normalized copy and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.Crawler.CareerStubs = trimList(out.Crawler.CareerStubs)
	out.Fetch.UserAgents = trimList(out.Fetch.UserAgents)
	out.Peruse.PositionFilters = trimList(out.Peruse.PositionFilters)
	out.Peruse.LocationFilters = trimList(out.Peruse.LocationFilters)
	out.Peruse.URLFilters = trimList(out.Peruse.URLFilters)
	out.VendorsPath = strings.TrimSpace(out.VendorsPath)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	// polling sanity
	p := out.Polling
	if p.IntervalMinutes <= 0 {
		res.addErr("polling.interval_minutes must be > 0")
	} else if p.IntervalMinutes < 5 {
		res.addWarn("polling.interval_minutes is very low (%d) and may get you rate limited.", p.IntervalMinutes)
	}
	if p.Concurrency <= 0 {
		res.addErr("polling.concurrency must be > 0")
	}
	if p.BoardTimeoutSeconds <= 0 {
		res.addErr("polling.board_timeout_seconds must be > 0")
	}
	if p.StaleApplicationDays < 0 {
		res.addErr("polling.stale_application_days must be >= 0")
	}
	bh := p.BusinessHours
	if bh.Start < 0 || bh.Start > 23 || bh.End < 1 || bh.End > 24 {
		res.addErr("polling.business_hours must be within 0..24")
	} else if bh.Start >= bh.End {
		res.addErr("polling.business_hours.start must be before end")
	}

	if out.Fetch.TimeoutSeconds <= 0 {
		res.addErr("fetch.timeout_seconds must be > 0")
	}
	if out.Fetch.RatePerSecond < 0 {
		res.addErr("fetch.rate_per_second must be >= 0")
	} else if out.Fetch.RatePerSecond == 0 {
		res.addWarn("fetch.rate_per_second is 0; requests are not rate limited.")
	}

	c := out.Crawler
	if c.Workers <= 0 {
		res.addErr("crawler.workers must be > 0")
	}
	if c.MaxDepth < 0 || c.MaxHits < 0 || c.MaxDurationSeconds < 0 {
		res.addErr("crawler limits must be >= 0")
	}
	if c.MaxDepth == 0 && c.MaxDurationSeconds == 0 && c.MaxHits == 0 {
		res.addWarn("crawler has no limits; large sites may crawl for a long time.")
	}
	if len(c.CareerStubs) == 0 {
		res.addWarn("crawler.career_stubs is empty; careers pages will not be prioritised.")
	}

	if out.Classifier.Concurrency <= 0 {
		res.addErr("classifier.concurrency must be > 0")
	}

	return out, res
}
