package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/procflow/pkg/cache"
	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/layout"
	"github.com/matzehuels/procflow/pkg/observability"
)

// LayoutWithCacheInfo computes positions for g and reports whether the
// result came from the cache. The graph itself is not modified; see
// [Runner.Relayout].
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, g *flow.Graph, opts Options) (layout.Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Result{}, false, err
	}

	req := opts.LayoutRequest(g)
	key := r.Keyer.LayoutKey(req)
	hooks := observability.Cache()

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if res, err := layout.Unmarshal(data); err == nil {
				hooks.OnCacheHit(ctx, "layout")
				return res, true, nil
			}
			// Undecodable entries are recomputed and overwritten.
		}
		hooks.OnCacheMiss(ctx, "layout")
	}

	pipe := observability.Pipeline()
	pipe.OnLayoutStart(ctx, string(req.Direction), len(req.Nodes))
	start := time.Now()
	res, err := layout.Run(req, layout.WithLogger(opts.Logger))
	pipe.OnLayoutComplete(ctx, string(req.Direction), time.Since(start), err)
	if err != nil {
		return layout.Result{}, false, err
	}

	if data, err := res.Marshal(); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err == nil {
			hooks.OnCacheSet(ctx, "layout", len(data))
		} else {
			opts.Logger.Debug("layout cache write failed", "err", err)
		}
	}
	return res, false, nil
}

// Layout is [Runner.LayoutWithCacheInfo] without the cache hit info.
func (r *Runner) Layout(ctx context.Context, g *flow.Graph, opts Options) (layout.Result, error) {
	res, _, err := r.LayoutWithCacheInfo(ctx, g, opts)
	return res, err
}

// Relayout lays out g and moves its nodes to the computed positions.
func (r *Runner) Relayout(ctx context.Context, g *flow.Graph, opts Options) (layout.Result, bool, error) {
	res, hit, err := r.LayoutWithCacheInfo(ctx, g, opts)
	if err != nil {
		return layout.Result{}, false, err
	}
	moved := g.ApplyLayout(res)
	r.Logger.Debug("applied layout", "moved", moved, "ranks", res.Ranks, "crossings", res.Crossings)
	return res, hit, nil
}
