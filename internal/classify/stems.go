package classify

import (
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"jobglob-engine/internal/vendor"
)

// NameStems expands a company name into the slug spellings vendors tend to use:
// the raw name, spaces removed, spaces hyphenated, lower-cased variants of
// those, and each of the six reduced to ASCII letters, digits, spaces and
// hyphens.
func NameStems(company string) []string {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil
	}
	parts := strings.Fields(company)

	stems := []string{company, strings.Join(parts, ""), strings.Join(parts, "-")}
	for _, s := range stems[:3] {
		stems = append(stems, strings.ToLower(s))
	}
	for _, s := range stems[:6] {
		stems = append(stems, alnumHyphen(s))
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	out := make([]string, 0, len(stems))
	for _, s := range stems {
		if s == "" || !seen.Add(s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// GenerateCandidates substitutes every name stem into template.
func GenerateCandidates(company, template string) []string {
	stems := NameStems(company)
	out := make([]string, 0, len(stems))
	for _, s := range stems {
		out = append(out, strings.ReplaceAll(template, vendor.Placeholder, s))
	}
	return out
}

// foldAccents strips combining marks. A transform.Chain keeps buffer state, so
// each call needs its own.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func alnumHyphen(s string) string {
	if folded, _, err := transform.String(foldAccents(), s); err == nil {
		s = folded
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == ' ':
			b.WriteRune(r)
		}
	}
	return b.String()
}
