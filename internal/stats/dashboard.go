package stats

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Dashboard gathers the summaries of every registered entity.
type Dashboard struct {
	providers map[string]Provider
}

// NewDashboard builds a Dashboard from entity name to provider.
func NewDashboard(providers map[string]Provider) *Dashboard {
	return &Dashboard{providers: providers}
}

// Entities lists the registered entity names in order.
func (d *Dashboard) Entities() []string {
	names := make([]string, 0, len(d.providers))
	for name := range d.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load runs all providers concurrently. The first failure cancels the rest.
func (d *Dashboard) Load(ctx context.Context) (map[string]Summary, error) {
	names := d.Entities()
	results := make([]Summary, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		provider := d.providers[name]
		g.Go(func() error {
			sum, err := provider.Stats(gctx)
			if err != nil {
				return fmt.Errorf("stats %s: %w", name, err)
			}
			results[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]Summary, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out, nil
}
