package render

import (
	"bytes"
	"fmt"
	"slices"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
)

// State is the ephemeral interaction state of one element, owned by the
// canvas controller and never persisted.
type State struct {
	Hovered   bool
	Selected  bool
	Deletable bool
}

// ShowDelete reports whether the delete control is visible.
func (s State) ShowDelete() bool { return s.Hovered && s.Deletable }

// Shape is the outline drawn for a node.
type Shape int

const (
	ShapePill Shape = iota
	ShapeRoundedRect
	ShapeDiamond
)

func (s Shape) String() string {
	switch s {
	case ShapePill:
		return "pill"
	case ShapeRoundedRect:
		return "rounded-rect"
	case ShapeDiamond:
		return "diamond"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// NodeRenderer draws one node-producing element kind.
type NodeRenderer interface {
	// Type is the element kind this renderer handles.
	Type() flow.ElementType
	// Shape is the node outline.
	Shape() Shape
	// Anchors returns the anchors drawn on the node boundary.
	Anchors() []flow.Anchor
	// Style resolves colors for the node in the given state.
	Style(n flow.Node, st State) Style
	// Label returns the display text.
	Label(n flow.Node) string
	// Render writes the node as an SVG group.
	Render(buf *bytes.Buffer, n flow.Node, st State)
}

var registry = map[flow.ElementType]NodeRenderer{}

func register(r NodeRenderer) {
	if _, dup := registry[r.Type()]; dup {
		panic(fmt.Sprintf("render: duplicate renderer for %s", r.Type()))
	}
	if !r.Type().ProducesNode() {
		panic(fmt.Sprintf("render: %s does not produce nodes", r.Type()))
	}
	registry[r.Type()] = r
}

func init() {
	for _, p := range profiles {
		register(p)
	}
	if missing := Missing(); len(missing) > 0 {
		panic(fmt.Sprintf("render: no renderer for %v", missing))
	}
}

// Missing returns the node-producing types without a registered renderer.
func Missing() []flow.ElementType {
	var out []flow.ElementType
	for _, t := range flow.NodeTypes() {
		if _, ok := registry[t]; !ok {
			out = append(out, t)
		}
	}
	return out
}

// For returns the renderer for t, or an UNKNOWN_ELEMENT_TYPE error.
func For(t flow.ElementType) (NodeRenderer, error) {
	r, ok := registry[t]
	if !ok {
		return nil, perrors.Wrap(perrors.ErrCodeUnknownElementType, flow.ErrUnknownElementType, "no renderer for %s", t)
	}
	return r, nil
}

// Registered returns the types with a renderer, in tag order.
func Registered() []flow.ElementType {
	out := make([]flow.ElementType, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}
