package scrape

import (
	"sort"

	"jobglob-engine/internal/scrape/ashby"
	"jobglob-engine/internal/scrape/bamboo"
	"jobglob-engine/internal/scrape/greenhouse"
	"jobglob-engine/internal/scrape/jobvite"
	"jobglob-engine/internal/scrape/lever"
	"jobglob-engine/internal/scrape/smartrecruiters"
	"jobglob-engine/internal/scrape/types"
	"jobglob-engine/internal/scrape/workable"
	"jobglob-engine/internal/vendor"
)

// Registry resolves a vendor to its adapter.
type Registry struct {
	adapters map[vendor.Type]types.Adapter
}

func NewRegistry(adapters ...types.Adapter) *Registry {
	r := &Registry{adapters: make(map[vendor.Type]types.Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Vendor] = a
	}
	return r
}

// DefaultRegistry wires every supported vendor against its public endpoints.
func DefaultRegistry() *Registry {
	return NewRegistry(
		greenhouse.Adapter(greenhouse.DefaultAPIBase),
		lever.Adapter(lever.DefaultAPIBase),
		bamboo.Adapter(),
		ashby.Adapter(ashby.DefaultAPIBase),
		workable.Adapter(workable.DefaultAPIBase),
		smartrecruiters.Adapter(smartrecruiters.DefaultAPIBase),
		jobvite.Adapter(),
	)
}

func (r *Registry) Get(v vendor.Type) (types.Adapter, bool) {
	a, ok := r.adapters[v]
	return a, ok
}

func (r *Registry) Vendors() []vendor.Type {
	out := make([]vendor.Type, 0, len(r.adapters))
	for v := range r.adapters {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
