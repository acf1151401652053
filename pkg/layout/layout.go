package layout

import (
	"encoding/json"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/procflow/pkg/errors"
)

// Direction is the flow direction of the rank axis.
type Direction string

const (
	TopBottom Direction = "TB"
	BottomTop Direction = "BT"
	LeftRight Direction = "LR"
	RightLeft Direction = "RL"
)

// Directions lists the supported directions.
var Directions = []Direction{TopBottom, BottomTop, LeftRight, RightLeft}

// ParseDirection accepts TB, BT, LR or RL in any case. The empty string
// means TB.
func ParseDirection(s string) (Direction, error) {
	if s == "" {
		return TopBottom, nil
	}
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case TopBottom, BottomTop, LeftRight, RightLeft:
		return d, nil
	}
	return "", perrors.New(perrors.ErrCodeInvalidDirection, "invalid direction %q: must be TB, BT, LR or RL", s)
}

func (d Direction) horizontal() bool { return d == LeftRight || d == RightLeft }
func (d Direction) reversed() bool   { return d == BottomTop || d == RightLeft }

// Node is a layout input or output. Width and Height of zero mean "use the
// default footprint"; X and Y are top-left coordinates and are ignored on
// input.
type Node struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Edge is a directed connection between two node IDs.
type Edge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Request is a complete layout input. It is also the canonical form hashed
// for caching, so every field that affects the result lives here.
type Request struct {
	Nodes      []Node    `json:"nodes"`
	Edges      []Edge    `json:"edges"`
	Direction  Direction `json:"direction"`
	NodeWidth  float64   `json:"node_width,omitempty"`
	NodeHeight float64   `json:"node_height,omitempty"`
	Smart      bool      `json:"smart,omitempty"`
	Subset     []string  `json:"subset,omitempty"`
}

// Result is the positioned graph. Nodes are returned in input order with
// their effective size filled in; Edges is the input edge list, unchanged.
type Result struct {
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	Direction Direction `json:"direction"`
	Spacing   Spacing   `json:"spacing"`
	Footprint Preset    `json:"footprint"`
	Ranks     int       `json:"ranks"`
	Crossings int       `json:"crossings"`
	Reversed  int       `json:"reversed"`
}

// Marshal encodes the result as indented JSON.
func (r Result) Marshal() ([]byte, error) { return json.MarshalIndent(r, "", "  ") }

// Unmarshal decodes a result produced by [Result.Marshal].
func Unmarshal(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "decode layout")
	}
	return r, nil
}

// Option configures a layout pass.
type Option func(*options)

type options struct {
	logger *log.Logger
	subset []string
}

// WithLogger sets the logger for debug output and skipped-edge warnings.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSubset restricts the pass to the given node IDs and the edges between
// them.
func WithSubset(ids ...string) Option {
	return func(o *options) { o.subset = append(o.subset, ids...) }
}

// Layout positions nodes using width×height for nodes without their own
// size. Zero width or height fall back to the medium footprint.
func Layout(nodes []Node, edges []Edge, dir Direction, width, height float64, opts ...Option) (Result, error) {
	return Run(Request{Nodes: nodes, Edges: edges, Direction: dir, NodeWidth: width, NodeHeight: height}, opts...)
}

// SmartLayout positions nodes using the footprint tier chosen by
// [SelectPreset]. The direction is preserved.
func SmartLayout(nodes []Node, edges []Edge, dir Direction, opts ...Option) (Result, error) {
	return Run(Request{Nodes: nodes, Edges: edges, Direction: dir, Smart: true}, opts...)
}

// Run executes a layout request.
//
// It returns an INVALID_DIRECTION error for an unknown direction and an
// INVALID_INPUT error for empty or duplicate node IDs, negative or
// non-finite sizes, and subset IDs that name no node. Edges whose
// endpoints are unknown are skipped and logged.
func Run(req Request, opts ...Option) (Result, error) {
	o := options{logger: log.NewWithOptions(io.Discard, log.Options{})}
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.subset) > 0 {
		req.Subset = o.subset
	}

	dir, err := ParseDirection(string(req.Direction))
	if err != nil {
		return Result{}, err
	}
	if err := checkRequest(req); err != nil {
		return Result{}, err
	}

	sc, err := scopeOf(req)
	if err != nil {
		return Result{}, err
	}
	scopeEdges := edgesWithin(req, sc, o.logger)

	footprint := Preset{Name: "custom", Width: req.NodeWidth, Height: req.NodeHeight}
	if req.Smart {
		footprint = SelectPreset(len(sc.order), len(scopeEdges))
	}
	if footprint.Width == 0 {
		footprint.Width = PresetMedium.Width
	}
	if footprint.Height == 0 {
		footprint.Height = PresetMedium.Height
	}
	spacing := ComputeSpacing(len(sc.order), len(scopeEdges))

	nodes := make([]Node, len(req.Nodes))
	for i, n := range req.Nodes {
		if n.Width == 0 {
			n.Width = footprint.Width
		}
		if n.Height == 0 {
			n.Height = footprint.Height
		}
		nodes[i] = n
	}

	g := newGraph(nodes, sc.order, scopeEdges, dir)
	reversed := g.breakCycles()
	g.assignRanks()
	g.subdivide()
	layers := g.initOrder()
	crossings := g.orderLayers(layers)
	centers := g.place(layers, spacing, dir)

	for k, idx := range sc.order {
		n := &nodes[idx]
		n.X = centers[k][0] - n.Width/2
		n.Y = centers[k][1] - n.Height/2
	}
	if len(req.Subset) > 0 {
		anchorSubset(nodes, req.Nodes, sc.order)
	}

	o.logger.Debug("layout complete",
		"nodes", len(sc.order), "edges", len(scopeEdges), "direction", dir,
		"ranks", len(layers), "crossings", crossings, "reversed", reversed,
		"multiplier", spacing.Multiplier, "footprint", footprint.Name)

	return Result{
		Nodes:     nodes,
		Edges:     append([]Edge(nil), req.Edges...),
		Direction: dir,
		Spacing:   spacing,
		Footprint: footprint,
		Ranks:     len(layers),
		Crossings: crossings,
		Reversed:  reversed,
	}, nil
}

func checkRequest(req Request) error {
	seen := make(map[string]struct{}, len(req.Nodes))
	for _, n := range req.Nodes {
		if n.ID == "" {
			return perrors.New(perrors.ErrCodeInvalidInput, "layout node with empty ID")
		}
		if _, dup := seen[n.ID]; dup {
			return perrors.New(perrors.ErrCodeInvalidInput, "duplicate layout node %q", n.ID)
		}
		seen[n.ID] = struct{}{}
		if !validSize(n.Width) || !validSize(n.Height) {
			return perrors.New(perrors.ErrCodeInvalidInput, "node %q has invalid size %gx%g", n.ID, n.Width, n.Height)
		}
	}
	if !validSize(req.NodeWidth) || !validSize(req.NodeHeight) {
		return perrors.New(perrors.ErrCodeInvalidInput, "invalid default size %gx%g", req.NodeWidth, req.NodeHeight)
	}
	return nil
}

func validSize(v float64) bool { return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v) }

// scope is the set of request nodes taking part in a pass. order holds
// indices into Request.Nodes in input order.
type scope struct {
	order []int
	index map[string]int
}

func scopeOf(req Request) (scope, error) {
	s := scope{index: make(map[string]int, len(req.Nodes))}
	if len(req.Subset) == 0 {
		for i, n := range req.Nodes {
			s.index[n.ID] = len(s.order)
			s.order = append(s.order, i)
		}
		return s, nil
	}

	want := make(map[string]bool, len(req.Subset))
	for _, id := range req.Subset {
		want[id] = true
	}
	for i, n := range req.Nodes {
		if want[n.ID] {
			s.index[n.ID] = len(s.order)
			s.order = append(s.order, i)
			delete(want, n.ID)
		}
	}
	for _, id := range req.Subset {
		if want[id] {
			return scope{}, perrors.New(perrors.ErrCodeInvalidInput, "subset node %q not in request", id)
		}
	}
	return s, nil
}

// scopedEdge is an edge between two scope positions.
type scopedEdge struct{ u, v int }

// edgesWithin keeps the edges whose endpoints are both in scope. Edges that
// leave a subset are dropped silently; edges naming no request node at all
// are logged.
func edgesWithin(req Request, s scope, logger *log.Logger) []scopedEdge {
	known := make(map[string]bool, len(req.Nodes))
	for _, n := range req.Nodes {
		known[n.ID] = true
	}
	out := make([]scopedEdge, 0, len(req.Edges))
	for _, e := range req.Edges {
		if !known[e.Source] || !known[e.Target] {
			logger.Warn("skipping edge with unknown endpoint", "edge", e.ID, "source", e.Source, "target", e.Target)
			continue
		}
		u, uok := s.index[e.Source]
		v, vok := s.index[e.Target]
		if uok && vok {
			out = append(out, scopedEdge{u, v})
		}
	}
	return out
}

// anchorSubset moves the laid-out subset so its bounding box keeps the
// top-left corner it had in the input.
func anchorSubset(out, in []Node, order []int) {
	if len(order) == 0 {
		return
	}
	oldX, oldY := math.Inf(1), math.Inf(1)
	newX, newY := math.Inf(1), math.Inf(1)
	for _, idx := range order {
		oldX, oldY = min(oldX, in[idx].X), min(oldY, in[idx].Y)
		newX, newY = min(newX, out[idx].X), min(newY, out[idx].Y)
	}
	dx, dy := oldX-newX, oldY-newY
	for _, idx := range order {
		out[idx].X += dx
		out[idx].Y += dy
	}
}
