// Package peruse hides listings the user never wants to review.
package peruse

import (
	"strings"

	"jobglob-engine/internal/config"
	"jobglob-engine/internal/domain"
)

// Filters holds lower-cased chunks; a listing matching any of them is hidden.
type Filters struct {
	Position []string
	Location []string
	URL      []string
}

func FromConfig(cfg config.Config) Filters {
	return Filters{
		Position: lowerAll(cfg.Peruse.PositionFilters),
		Location: lowerAll(cfg.Peruse.LocationFilters),
		URL:      lowerAll(cfg.Peruse.URLFilters),
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ShouldKeep reports whether l survives the filters, and if not which field
// hid it.
func (f Filters) ShouldKeep(l domain.Listing) (keep bool, reason string) {
	if containsAny(l.Position, f.Position) {
		return false, "position"
	}
	if containsAny(l.Location, f.Location) {
		return false, "location"
	}
	if containsAny(l.URL, f.URL) {
		return false, "url"
	}
	return true, ""
}

// Apply returns the listings that survive, in order.
func (f Filters) Apply(ls []domain.Listing) []domain.Listing {
	out := make([]domain.Listing, 0, len(ls))
	for _, l := range ls {
		if keep, _ := f.ShouldKeep(l); keep {
			out = append(out, l)
		}
	}
	return out
}

func containsAny(text string, chunks []string) bool {
	text = strings.ToLower(text)
	for _, c := range chunks {
		if strings.Contains(text, c) {
			return true
		}
	}
	return false
}
