// Package pkg provides the core libraries for procflow process flow diagrams.
//
// # Overview
//
// Procflow models workflow diagrams (start and end events, tasks, gateways
// and the sequence flows between them), lays them out in tiers, draws them
// and hosts them on interactive canvases. The pkg directory is organized
// into four main areas:
//
//  1. Model - the element catalog, the graph and its persisted form
//  2. Layout and rendering - tiered layout, SVG and Graphviz output
//  3. Interaction - canvas controllers and the sessions that hold them
//  4. Infrastructure - pipeline, caching, configuration, HTTP API
//
// # Architecture
//
// The typical data flow:
//
//	flow document (JSON)
//	         ↓
//	    [flowio] package (schema check, decode, dangling-edge repair)
//	         ↓
//	    [flow] package (graph, catalog, validation)
//	         ↓
//	    [layout] package (tiers, ordering, coordinates)
//	         ↓
//	    [render] package (SVG, DOT, Graphviz SVG/PNG)
//
// # Quick Start
//
// Lay out a flow and draw it:
//
//	import (
//	    "github.com/matzehuels/procflow/pkg/flow"
//	    "github.com/matzehuels/procflow/pkg/flowio"
//	    "github.com/matzehuels/procflow/pkg/layout"
//	    "github.com/matzehuels/procflow/pkg/render"
//	)
//
//	// 1. Load the flow
//	g, dropped, _ := flowio.ImportJSON("order.json")
//
//	// 2. Compute a layout and move the nodes
//	res, _ := layout.Run(flow.LayoutRequest(g, layout.LeftRight, true))
//	g.ApplyLayout(res)
//
//	// 3. Render to SVG
//	svg, _ := render.RenderSVG(g)
//
// # Main Packages
//
// ## Model
//
// [flow] - The element catalog (types, tags, sizes, anchors), the flow graph
// with its connection rules, and structural validation.
//
// [flowio] - The persisted node/edge document: JSON Schema validation,
// conversion to and from [flow.Graph].
//
// ## Layout and Rendering
//
// [layout] - Layered layout: cycle breaking, tier assignment, crossing
// reduction and coordinate assignment in four directions.
//
// [render] - BPMN-style SVG drawing with interaction states, DOT export and
// Graphviz rendering.
//
// ## Interaction
//
// [canvas] - A controller owning one graph together with hover and selection
// state; turns pointer and keyboard events into graph commands.
//
// [session] - Idle-expiring canvas sessions for the HTTP API.
//
// ## Infrastructure
//
// [pipeline] - load → validate → layout → render, shared by CLI and API so
// both behave and cache the same way.
//
// [cache] - File, redis and null caches for layouts and artifacts, with
// content-addressed keys.
//
// [config] - TOML configuration.
//
// [server] - The HTTP API.
//
// [observability] - Hooks for pipeline, cache, HTTP and canvas events.
//
// [errors] - Coded errors shared by every package.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...           # All tests
//	go test ./pkg/layout/...    # Specific package
//	go test -run Example ./...  # Examples only
//
// [flow]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/flow
// [flowio]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/flowio
// [layout]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/layout
// [render]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/render
// [canvas]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/canvas
// [session]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/session
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/config
// [server]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/procflow/pkg/errors
package pkg
