package crawl

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobglob-engine/internal/domain"
	"jobglob-engine/internal/vendor"
)

var skipExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true,
	".css": true, ".js": true, ".json": true, ".xml": true, ".pdf": true, ".zip": true,
	".mp3": true, ".mp4": true, ".mov": true, ".woff": true, ".woff2": true, ".ttf": true,
}

// linkAttrs lists every element scanned for vendor boards. Only anchors and
// iframes feed the page frontier.
var linkAttrs = []struct {
	sel, attr string
	page      bool
}{
	{"a[href]", "href", true},
	{"iframe[src]", "src", true},
	{"area[href]", "href", false},
	{"link[href]", "href", false},
	{"frame[src]", "src", false},
	{"script[src]", "src", false},
	{"img[src]", "src", false},
}

type site struct {
	scheme string
	host   string // lower-case, without "www."
}

func newSite(u *url.URL) site {
	return site{scheme: strings.ToLower(u.Scheme), host: bareHost(u.Host)}
}

func bareHost(h string) string {
	return strings.TrimPrefix(strings.ToLower(h), "www.")
}

func (s site) contains(u *url.URL) bool {
	return bareHost(u.Host) == s.host
}

type pageLinks struct {
	pages  []string
	boards []string
}

// extractLinks splits a page's links into same-site pages to crawl and
// off-site vendor boards.
func extractLinks(doc *goquery.Document, base *url.URL, s site, table *vendor.Table) pageLinks {
	pages := map[string]bool{}
	boards := map[string]bool{}

	for _, la := range linkAttrs {
		doc.Find(la.sel).Each(func(_ int, sel *goquery.Selection) {
			raw, _ := sel.Attr(la.attr)
			u := resolve(base, raw)
			if u == nil {
				return
			}
			if s.contains(u) {
				if la.page && crawlable(u, s) {
					pages[canonicalizeURL(u)] = true
				}
				return
			}
			if _, ok := table.Match(u.String()); ok {
				boards[domain.NormalizeURL(table.Fixup(u.String()))] = true
			}
		})
	}

	return pageLinks{pages: sortedKeys(pages), boards: sortedKeys(boards)}
}

func resolve(base *url.URL, raw string) *url.URL {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return nil
	}
	lr := strings.ToLower(raw)
	if strings.HasPrefix(lr, "mailto:") || strings.HasPrefix(lr, "tel:") || strings.HasPrefix(lr, "javascript:") || strings.HasPrefix(lr, "data:") {
		return nil
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	return u
}

func crawlable(u *url.URL, s site) bool {
	if strings.ToLower(u.Scheme) != s.scheme {
		return false
	}
	return !skipExt[strings.ToLower(path.Ext(u.Path))]
}

// canonicalizeURL is the frontier identity of a page.
func canonicalizeURL(u *url.URL) string {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	c.Host = strings.ToLower(c.Host)
	c.Fragment = ""
	c.RawFragment = ""

	q := c.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") ||
			lk == "gclid" || lk == "fbclid" || lk == "msclkid" ||
			lk == "mc_cid" || lk == "mc_eid" ||
			lk == "mkt_tok" {
			q.Del(k)
		}
	}
	c.RawQuery = q.Encode()
	return strings.TrimRight(c.String(), "/")
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// isCareerPage reports whether u looks like a careers/jobs page.
func isCareerPage(u string, stubs []string) bool {
	lu := strings.ToLower(u)
	for _, s := range stubs {
		if s != "" && strings.Contains(lu, strings.ToLower(s)) {
			return true
		}
	}
	return false
}
