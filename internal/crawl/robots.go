package crawl

import (
	"context"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"jobglob-engine/internal/fetch"
)

const robotsAgent = "jobglob"

// RobotsChecker caches one robots.txt group per host.
type RobotsChecker struct {
	client *fetch.Client
	mu     sync.RWMutex
	cache  map[string]*robotstxt.Group
}

func NewRobotsChecker(client *fetch.Client) *RobotsChecker {
	return &RobotsChecker{
		client: client,
		cache:  make(map[string]*robotstxt.Group),
	}
}

// Allowed treats a missing or unreadable robots.txt as allow-all.
func (r *RobotsChecker) Allowed(ctx context.Context, target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}

	r.mu.RLock()
	group, ok := r.cache[u.Host]
	r.mu.RUnlock()

	if !ok {
		group = r.fetch(ctx, u.Scheme, u.Host)
		r.mu.Lock()
		r.cache[u.Host] = group
		r.mu.Unlock()
	}
	if group == nil {
		return true
	}
	return group.Test(u.EscapedPath())
}

func (r *RobotsChecker) fetch(ctx context.Context, scheme, host string) *robotstxt.Group {
	res, err := r.client.Get(ctx, scheme+"://"+host+"/robots.txt")
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(res.Status, res.Body)
	if err != nil {
		return nil
	}
	return data.FindGroup(robotsAgent)
}
