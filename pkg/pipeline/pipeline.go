// Package pipeline runs the load → validate → layout → render pipeline
// shared by the CLI and the HTTP server.
//
// # Stages
//
//  1. Load: decode and schema-check a flow document into a graph
//  2. Validate: report structural issues, optionally marking nodes in error
//  3. Layout: compute node positions (cached by request hash)
//  4. Render: produce artifacts in the requested formats (cached by flow hash)
//
// Each stage can be run on its own through [Runner] methods.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, f, pipeline.Options{
//	    Direction: layout.LeftRight,
//	    Relayout:  true,
//	    Formats:   []string{pipeline.FormatSVG},
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/layout"
	"github.com/matzehuels/procflow/pkg/render"
)

// Output formats.
const (
	FormatSVG  = render.FormatSVG
	FormatPNG  = render.FormatPNG
	FormatDOT  = render.FormatDOT
	FormatJSON = "json"
)

// Render engines.
const (
	// EngineNative draws with the built-in node renderers at the graph's
	// own positions.
	EngineNative = "native"
	// EngineGraphviz hands the flow to Graphviz, which lays it out itself.
	EngineGraphviz = "graphviz"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// ValidEngines is the set of supported render engines.
var ValidEngines = map[string]bool{
	EngineNative:   true,
	EngineGraphviz: true,
}

// Options configures a pipeline run. The zero value renders SVG with the
// native engine at the positions stored in the flow.
type Options struct {
	// Layout options
	Direction  layout.Direction `json:"direction,omitempty"`
	Smart      bool             `json:"smart,omitempty"`
	NodeWidth  float64          `json:"node_width,omitempty"`
	NodeHeight float64          `json:"node_height,omitempty"`
	Relayout   bool             `json:"relayout,omitempty"` // recompute positions before rendering
	Refresh    bool             `json:"refresh,omitempty"`  // bypass cache reads

	// Validation options
	MarkErrors bool `json:"mark_errors,omitempty"` // set data.hasError on nodes with error issues
	Strict     bool `json:"strict,omitempty"`      // fail on error issues and missing anchors

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Engine   string   `json:"engine,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // graphviz labels carry type and properties

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result holds the outputs of a pipeline run.
type Result struct {
	// Graph is the loaded flow, positioned if a layout ran.
	Graph *flow.Graph

	// FlowHash is the content hash of the flow as rendered.
	FlowHash string

	// Layout is the layout result, or nil when no layout ran.
	Layout *layout.Result

	// Issues are the validation findings.
	Issues []flow.Issue

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	Dropped    int // dangling edges dropped while loading
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	LayoutHit bool
	RenderHit bool // all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return perrors.New(perrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEngine checks that an engine is valid.
func ValidateEngine(engine string) error {
	if !ValidEngines[engine] {
		return perrors.New(perrors.ErrCodeInvalidInput, "invalid engine: %q (must be one of: native, graphviz)", engine)
	}
	return nil
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLayout(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForLayout normalizes the direction and rejects bad sizes.
func (o *Options) ValidateForLayout() error {
	dir, err := layout.ParseDirection(string(o.Direction))
	if err != nil {
		return err
	}
	o.Direction = dir
	if o.NodeWidth < 0 || o.NodeHeight < 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "node size must not be negative")
	}
	o.setLogger()
	return nil
}

// ValidateForRender applies render defaults and validates formats against
// the engine.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Engine == "" {
		o.Engine = EngineNative
	}
	if err := ValidateEngine(o.Engine); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	for _, f := range o.Formats {
		if f == FormatPNG && o.Engine != EngineGraphviz {
			return perrors.New(perrors.ErrCodeUnsupported, "png output requires the graphviz engine")
		}
	}
	o.setLogger()
	return nil
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// LayoutRequest builds the layout request for g under these options.
func (o *Options) LayoutRequest(g *flow.Graph) layout.Request {
	req := flow.LayoutRequest(g, o.Direction, o.Smart)
	req.NodeWidth, req.NodeHeight = o.NodeWidth, o.NodeHeight
	return req
}

func (o *Options) String() string {
	return fmt.Sprintf("direction=%s smart=%t relayout=%t engine=%s formats=%v",
		o.Direction, o.Smart, o.Relayout, o.Engine, o.Formats)
}
