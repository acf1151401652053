package flow

import (
	"errors"
	"io"
	"maps"
	"math"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	perrors "github.com/matzehuels/procflow/pkg/errors"
)

var (
	// ErrInvalidNodeID is returned when an explicit node or edge ID is empty.
	ErrInvalidNodeID = errors.New("element ID must not be empty")

	// ErrDuplicateID is returned when a node or edge ID is already in use.
	// IDs are unique across the whole graph.
	ErrDuplicateID = errors.New("duplicate element ID")

	// ErrUnknownElementType is wrapped by every catalog lookup miss.
	ErrUnknownElementType = errors.New("unknown element type")

	// ErrNotNodeType is returned by [Graph.AddNode] for SequenceFlow, which
	// is carried by edges.
	ErrNotNodeType = errors.New("element type does not produce a node")

	// ErrUnknownNode is returned when an operation references a node that
	// does not exist.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownAnchor is returned by [Graph.AddEdge] when the endpoint node
	// has no anchor with the given ID.
	ErrUnknownAnchor = errors.New("unknown anchor")

	// ErrRoleMismatch is returned by [Graph.AddEdge] when the source endpoint
	// is not a source anchor or the target endpoint is not a target anchor.
	ErrRoleMismatch = errors.New("a source anchor must connect to a target anchor")

	// ErrInvalidGeometry is returned for NaN or infinite coordinates and for
	// negative sizes.
	ErrInvalidGeometry = errors.New("invalid position or size")
)

// Position is the top-left corner of a node in layout units.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Data is the payload a node carries. It holds only serializable state;
// delete requests travel through the canvas controller instead.
type Data struct {
	Name       string
	Properties map[string]any
	HasError   bool
}

func (d Data) clone() Data {
	d.Properties = maps.Clone(d.Properties)
	return d
}

// Node is a graph vertex. Type is fixed at creation.
type Node struct {
	ID       string
	Type     ElementType
	Position Position
	Size     Size // zero means the catalog default
	Data     Data
}

// Dimensions returns the node's size override or its catalog default.
func (n Node) Dimensions() Size {
	if !n.Size.IsZero() {
		return n.Size
	}
	return catalog[n.Type].DefaultSize
}

// Endpoint addresses one anchor on one node.
type Endpoint struct {
	Node   string
	Anchor string
}

// Edge is a directed connection from a source anchor to a target anchor.
// Label holds the optional sequence-flow condition.
type Edge struct {
	ID     string
	Source Endpoint
	Target Endpoint
	Label  string
}

// References reports whether the edge touches the node.
func (e Edge) References(nodeID string) bool {
	return e.Source.Node == nodeID || e.Target.Node == nodeID
}

// DataPatch describes a partial update to a node's data. Nil fields are left
// unchanged. A nil value in Properties deletes that key.
type DataPatch struct {
	Name       *string
	Properties map[string]any
	HasError   *bool
}

// Graph is the in-memory flow model. Nodes keep insertion order, which makes
// every traversal, and therefore every layout, deterministic.
//
// The zero value is not usable; create graphs with [New].
type Graph struct {
	nodes  map[string]*Node
	order  []string
	edges  []*Edge
	ids    func() string
	logger *log.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for repair warnings.
func WithLogger(l *log.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithIDGenerator replaces the UUID generator used for elements created
// without an explicit ID.
func WithIDGenerator(fn func() string) Option {
	return func(g *Graph) {
		if fn != nil {
			g.ids = fn
		}
	}
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:  make(map[string]*Node),
		ids:    uuid.NewString,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NodeOption customizes a node created by [Graph.AddNode].
type NodeOption func(*Node)

// WithID sets an explicit node ID instead of a generated one.
func WithID(id string) NodeOption { return func(n *Node) { n.ID = id } }

// At seeds the node position.
func At(x, y float64) NodeOption { return func(n *Node) { n.Position = Position{X: x, Y: y} } }

// WithSize overrides the catalog footprint.
func WithSize(w, h float64) NodeOption { return func(n *Node) { n.Size = Size{Width: w, Height: h} } }

// WithName sets data.name.
func WithName(name string) NodeOption { return func(n *Node) { n.Data.Name = name } }

// WithData replaces the whole payload.
func WithData(d Data) NodeOption { return func(n *Node) { n.Data = d.clone() } }

// AddNode creates a node of type t and returns a copy of it.
//
// Returns an [perrors.ErrCodeUnknownElementType] error for uncatalogued types,
// ErrNotNodeType for SequenceFlow, ErrDuplicateID for a taken explicit ID and
// ErrInvalidGeometry for non-finite coordinates or negative sizes.
func (g *Graph) AddNode(t ElementType, opts ...NodeOption) (Node, error) {
	spec, err := Lookup(t)
	if err != nil {
		return Node{}, err
	}
	if !spec.ProducesNode {
		return Node{}, perrors.Wrap(perrors.ErrCodeInvalidInput, ErrNotNodeType, "add %s", t)
	}

	n := Node{Type: t}
	explicit := false
	for _, opt := range opts {
		opt(&n)
		if n.ID != "" {
			explicit = true
		}
	}
	if !explicit {
		n.ID = g.ids()
	}
	if err := g.checkNode(n); err != nil {
		return Node{}, err
	}

	stored := n
	stored.Data = n.Data.clone()
	g.nodes[n.ID] = &stored
	g.order = append(g.order, n.ID)

	out := stored
	out.Data = stored.Data.clone()
	return out, nil
}

func (g *Graph) checkNode(n Node) error {
	if n.ID == "" {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, ErrInvalidNodeID, "add node")
	}
	if g.hasID(n.ID) {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, ErrDuplicateID, "node %q", n.ID)
	}
	if !finite(n.Position.X) || !finite(n.Position.Y) ||
		!finite(n.Size.Width) || !finite(n.Size.Height) ||
		n.Size.Width < 0 || n.Size.Height < 0 {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, ErrInvalidGeometry, "node %q", n.ID)
	}
	return nil
}

func (g *Graph) hasID(id string) bool {
	if _, ok := g.nodes[id]; ok {
		return true
	}
	return slices.ContainsFunc(g.edges, func(e *Edge) bool { return e.ID == id })
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// EdgeOption customizes an edge created by [Graph.AddEdge].
type EdgeOption func(*Edge)

// WithEdgeID sets an explicit edge ID instead of a generated one.
func WithEdgeID(id string) EdgeOption { return func(e *Edge) { e.ID = id } }

// WithLabel sets the condition label.
func WithLabel(label string) EdgeOption { return func(e *Edge) { e.Label = label } }

// AddEdge connects a source anchor to a target anchor and returns a copy of
// the new edge. Self-loops are allowed.
//
// When either anchor does not exist or the roles are reversed, AddEdge
// returns an [perrors.ErrCodeInvalidConnection] error and leaves the graph
// unchanged.
func (g *Graph) AddEdge(src, dst Endpoint, opts ...EdgeOption) (Edge, error) {
	e := Edge{Source: src, Target: dst}
	explicit := false
	for _, opt := range opts {
		opt(&e)
		if e.ID != "" {
			explicit = true
		}
	}
	if !explicit {
		e.ID = g.ids()
	}
	if err := g.checkConnection(src, dst); err != nil {
		return Edge{}, err
	}
	if g.hasID(e.ID) {
		return Edge{}, perrors.Wrap(perrors.ErrCodeInvalidInput, ErrDuplicateID, "edge %q", e.ID)
	}
	g.edges = append(g.edges, &e)
	return e, nil
}

func (g *Graph) checkConnection(src, dst Endpoint) error {
	if err := g.checkEndpoint(src, RoleSource); err != nil {
		return err
	}
	return g.checkEndpoint(dst, RoleTarget)
}

func (g *Graph) checkEndpoint(ep Endpoint, role Role) error {
	n, ok := g.nodes[ep.Node]
	if !ok {
		return perrors.Wrap(perrors.ErrCodeInvalidConnection, ErrUnknownNode, "%s node %q", role, ep.Node)
	}
	a, ok := FindAnchor(n.Type, ep.Anchor)
	if !ok {
		return perrors.Wrap(perrors.ErrCodeInvalidConnection, ErrUnknownAnchor, "%s anchor %q on %s %q", role, ep.Anchor, n.Type, n.ID)
	}
	if a.Role != role {
		return perrors.Wrap(perrors.ErrCodeInvalidConnection, ErrRoleMismatch, "anchor %q on %q is a %s anchor", a.ID, n.ID, a.Role)
	}
	return nil
}

// UpdateNodeData applies patch to the node's payload. The update is
// all-or-nothing; a missing node yields an [perrors.ErrCodeNotFound] error.
func (g *Graph) UpdateNodeData(id string, patch DataPatch) error {
	n, ok := g.nodes[id]
	if !ok {
		return perrors.Wrap(perrors.ErrCodeNotFound, ErrUnknownNode, "update %q", id)
	}
	if patch.Name != nil {
		n.Data.Name = *patch.Name
	}
	if patch.HasError != nil {
		n.Data.HasError = *patch.HasError
	}
	if len(patch.Properties) > 0 {
		props := maps.Clone(n.Data.Properties)
		if props == nil {
			props = make(map[string]any, len(patch.Properties))
		}
		for k, v := range patch.Properties {
			if v == nil {
				delete(props, k)
				continue
			}
			props[k] = v
		}
		n.Data.Properties = props
	}
	return nil
}

// SetEdgeLabel replaces the condition label of an edge.
func (g *Graph) SetEdgeLabel(id, label string) error {
	for _, e := range g.edges {
		if e.ID == id {
			e.Label = label
			return nil
		}
	}
	return perrors.New(perrors.ErrCodeNotFound, "edge %q not found", id)
}

// SetPosition moves a node, as a drag or a layout pass does.
func (g *Graph) SetPosition(id string, p Position) error {
	n, ok := g.nodes[id]
	if !ok {
		return perrors.Wrap(perrors.ErrCodeNotFound, ErrUnknownNode, "move %q", id)
	}
	if !finite(p.X) || !finite(p.Y) {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, ErrInvalidGeometry, "move %q", id)
	}
	n.Position = p
	return nil
}

// RemoveNode removes the node and every edge referencing it, and reports
// whether the node existed. Removing an absent ID is a no-op.
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	delete(g.nodes, id)
	g.order = slices.DeleteFunc(g.order, func(s string) bool { return s == id })
	g.edges = slices.DeleteFunc(g.edges, func(e *Edge) bool { return e.References(id) })
	return true
}

// RemoveEdge removes the edge and reports whether it existed. Removing an
// absent ID is a no-op.
func (g *Graph) RemoveEdge(id string) bool {
	n := len(g.edges)
	g.edges = slices.DeleteFunc(g.edges, func(e *Edge) bool { return e.ID == id })
	return len(g.edges) != n
}

// Node returns a copy of the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	out := *n
	out.Data = n.Data.clone()
	return out, true
}

// Edge returns a copy of the edge with the given ID.
func (g *Graph) Edge(id string) (Edge, bool) {
	for _, e := range g.edges {
		if e.ID == id {
			return *e, true
		}
	}
	return Edge{}, false
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		n, _ := g.Node(id)
		out = append(out, n)
	}
	return out
}

// Edges returns copies of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		out[i] = *e
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Outgoing returns the edges whose source is the node.
func (g *Graph) Outgoing(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source.Node == id {
			out = append(out, *e)
		}
	}
	return out
}

// Incoming returns the edges whose target is the node.
func (g *Graph) Incoming(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Target.Node == id {
			out = append(out, *e)
		}
	}
	return out
}

// Contains reports whether id names a node or an edge.
func (g *Graph) Contains(id string) bool { return g.hasID(id) }

// Load replaces the whole graph, as when a persisted flow is opened.
//
// Edges naming no anchor get the catalog default for their node type.
// Edges that reference a missing node are dropped and logged; the number of
// dropped edges is returned. Any other problem (unknown type, duplicate ID,
// invalid connection) aborts the load and leaves the graph unchanged.
func (g *Graph) Load(nodes []Node, edges []Edge) (int, error) {
	next := New(WithLogger(g.logger), WithIDGenerator(g.ids))
	for _, n := range nodes {
		opts := []NodeOption{WithID(n.ID), At(n.Position.X, n.Position.Y), WithData(n.Data)}
		if !n.Size.IsZero() {
			opts = append(opts, WithSize(n.Size.Width, n.Size.Height))
		}
		if n.ID == "" {
			return 0, perrors.Wrap(perrors.ErrCodeInvalidInput, ErrInvalidNodeID, "load node of type %s", n.Type)
		}
		if _, err := next.AddNode(n.Type, opts...); err != nil {
			return 0, err
		}
	}

	dropped := 0
	for _, e := range edges {
		src, srcOK := next.nodes[e.Source.Node]
		dst, dstOK := next.nodes[e.Target.Node]
		if !srcOK || !dstOK {
			g.logger.Warn("dropping dangling edge", "code", perrors.ErrCodeDanglingEdge, "edge", e.ID,
				"source", e.Source.Node, "target", e.Target.Node)
			dropped++
			continue
		}
		if e.Source.Anchor == "" {
			e.Source.Anchor = defaultAnchorID(src.Type, RoleSource)
		}
		if e.Target.Anchor == "" {
			e.Target.Anchor = defaultAnchorID(dst.Type, RoleTarget)
		}
		opts := []EdgeOption{WithLabel(e.Label)}
		if e.ID != "" {
			opts = append(opts, WithEdgeID(e.ID))
		}
		if _, err := next.AddEdge(e.Source, e.Target, opts...); err != nil {
			return 0, err
		}
	}

	g.nodes, g.order, g.edges = next.nodes, next.order, next.edges
	return dropped, nil
}

func defaultAnchorID(t ElementType, role Role) string {
	if a, ok := DefaultAnchor(t, role); ok {
		return a.ID
	}
	return ""
}

// Repair drops edges that reference missing nodes and returns how many were
// dropped. [Graph.RemoveNode] cascades, so a non-zero result means some
// caller broke the invariant; every dropped edge is logged as
// DANGLING_EDGE.
func (g *Graph) Repair() int {
	n := len(g.edges)
	g.edges = slices.DeleteFunc(g.edges, func(e *Edge) bool {
		_, srcOK := g.nodes[e.Source.Node]
		_, dstOK := g.nodes[e.Target.Node]
		if srcOK && dstOK {
			return false
		}
		g.logger.Warn("dropping dangling edge", "code", perrors.ErrCodeDanglingEdge, "edge", e.ID,
			"source", e.Source.Node, "target", e.Target.Node)
		return true
	})
	return n - len(g.edges)
}

// Clone returns a deep copy of the graph sharing its logger and ID generator.
func (g *Graph) Clone() *Graph {
	c := New(WithLogger(g.logger), WithIDGenerator(g.ids))
	for _, id := range g.order {
		n := *g.nodes[id]
		n.Data = n.Data.clone()
		c.nodes[id] = &n
		c.order = append(c.order, id)
	}
	for _, e := range g.edges {
		ec := *e
		c.edges = append(c.edges, &ec)
	}
	return c
}

// Logger returns the graph's logger.
func (g *Graph) Logger() *log.Logger { return g.logger }
