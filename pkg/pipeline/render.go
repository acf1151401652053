package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/procflow/pkg/cache"
	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/flowio"
	"github.com/matzehuels/procflow/pkg/observability"
	"github.com/matzehuels/procflow/pkg/render"
)

// FlowHash returns the content hash of g's JSON form.
func FlowHash(g *flow.Graph) (string, error) {
	var buf bytes.Buffer
	if err := flowio.WriteJSON(g, &buf); err != nil {
		return "", err
	}
	return cache.Hash(buf.Bytes()), nil
}

// RenderWithCacheInfo produces every requested format for g. The hit flag
// is true only when all formats came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *flow.Graph, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	flowHash, err := FlowHash(g)
	if err != nil {
		return nil, false, fmt.Errorf("hash flow: %w", err)
	}
	hooks := observability.Cache()

	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(flowHash, opts.artifactKeyOpts(format)))
			if err != nil || !hit {
				hooks.OnCacheMiss(ctx, "artifact")
				break
			}
			hooks.OnCacheHit(ctx, "artifact")
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	rendered, err := r.renderAll(ctx, g, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(flowHash, opts.artifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return rendered, false, nil
}

// Render is [Runner.RenderWithCacheInfo] without the cache hit info.
func (r *Runner) Render(ctx context.Context, g *flow.Graph, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, opts)
	return artifacts, err
}

func (r *Runner) renderAll(ctx context.Context, g *flow.Graph, opts Options) (map[string][]byte, error) {
	hooks := observability.Pipeline()
	out := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		hooks.OnRenderStart(ctx, format)
		start := time.Now()
		data, err := renderFormat(ctx, g, format, opts)
		hooks.OnRenderComplete(ctx, format, len(data), time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		out[format] = data
	}
	return out, nil
}

func renderFormat(ctx context.Context, g *flow.Graph, format string, opts Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := flowio.WriteJSON(g, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatDOT:
		return []byte(toDOT(g, opts)), nil
	}

	if opts.Engine == EngineGraphviz {
		return render.RenderGraphviz(ctx, toDOT(g, opts), format)
	}
	svgOpts := []render.SVGOption{render.WithLogger(opts.Logger)}
	if opts.Strict {
		svgOpts = append(svgOpts, render.WithStrict())
	}
	return render.RenderSVG(g, svgOpts...)
}

func toDOT(g *flow.Graph, opts Options) string {
	return render.ToDOT(g, render.DOTOptions{Direction: opts.Direction, Detailed: opts.Detailed})
}

func (o *Options) artifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, Engine: o.Engine, Relayout: o.Relayout}
	if format == FormatDOT || o.Engine == EngineGraphviz {
		k.Direction = o.Direction
		k.Detailed = o.Detailed
	}
	if format == FormatJSON {
		k.Engine = ""
	}
	return k
}
