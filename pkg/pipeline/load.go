package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/flowio"
	"github.com/matzehuels/procflow/pkg/observability"
)

// Load decodes a flow document. source names the input in logs and hooks.
// It returns the graph and the number of dangling edges dropped.
func (r *Runner) Load(ctx context.Context, in io.Reader, source string) (*flow.Graph, int, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, source)
	start := time.Now()

	g, dropped, err := flowio.ReadJSON(in, flow.WithLogger(r.Logger))
	if err != nil {
		hooks.OnLoadComplete(ctx, source, 0, 0, time.Since(start), err)
		return nil, 0, fmt.Errorf("load %s: %w", source, err)
	}
	hooks.OnLoadComplete(ctx, source, g.NodeCount(), g.EdgeCount(), time.Since(start), nil)

	if dropped > 0 {
		r.Logger.Warn("dropped dangling edges", "source", source, "count", dropped)
	}
	return g, dropped, nil
}

// LoadFile is [Runner.Load] for a file path; "-" reads stdin.
func (r *Runner) LoadFile(ctx context.Context, path string) (*flow.Graph, int, error) {
	if path == "-" {
		return r.Load(ctx, os.Stdin, "stdin")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return r.Load(ctx, f, path)
}
