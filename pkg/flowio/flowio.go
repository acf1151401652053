package flowio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
)

// Flow is the persisted document.
type Flow struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a persisted node.
type Node struct {
	ID       string           `json:"id"`
	Type     flow.ElementType `json:"type"`
	Position flow.Position    `json:"position"`
	Width    float64          `json:"width,omitempty"`
	Height   float64          `json:"height,omitempty"`
	Data     NodeData         `json:"data"`
}

// NodeData is the persisted node payload.
type NodeData struct {
	Name       string         `json:"name,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	HasError   bool           `json:"hasError,omitempty"`
}

// Edge is a persisted sequence flow.
type Edge struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	SourceHandle string    `json:"sourceHandle,omitempty"`
	TargetHandle string    `json:"targetHandle,omitempty"`
	Data         *EdgeData `json:"data,omitempty"`
}

// EdgeData carries the sequence-flow condition under its persisted key.
type EdgeData struct {
	Condition string `json:"conditionsequenceflow,omitempty"`
}

// Decode reads one flow document from r, checks it against the schema and
// decodes it. Malformed JSON and schema violations are INVALID_FORMAT
// errors; use [Violations] to list the latter.
func Decode(r io.Reader) (Flow, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Flow{}, fmt.Errorf("read: %w", err)
	}
	return Unmarshal(raw)
}

// Unmarshal is [Decode] for an in-memory document.
func Unmarshal(raw []byte) (Flow, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return Flow{}, perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "decode flow")
	}
	if err := validate(doc); err != nil {
		return Flow{}, err
	}

	var f Flow
	if err := json.Unmarshal(raw, &f); err != nil {
		return Flow{}, perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "decode flow")
	}
	return f, nil
}

// ToGraph loads f into a new graph. Edges that reference missing nodes are
// dropped and counted; anchors left empty resolve to the type defaults.
func ToGraph(f Flow, opts ...flow.Option) (*flow.Graph, int, error) {
	nodes := make([]flow.Node, len(f.Nodes))
	for i, n := range f.Nodes {
		nodes[i] = flow.Node{
			ID:       n.ID,
			Type:     n.Type,
			Position: n.Position,
			Size:     flow.Size{Width: n.Width, Height: n.Height},
			Data: flow.Data{
				Name:       n.Data.Name,
				Properties: n.Data.Properties,
				HasError:   n.Data.HasError,
			},
		}
	}
	edges := make([]flow.Edge, len(f.Edges))
	for i, e := range f.Edges {
		edges[i] = flow.Edge{
			ID:     e.ID,
			Source: flow.Endpoint{Node: e.Source, Anchor: e.SourceHandle},
			Target: flow.Endpoint{Node: e.Target, Anchor: e.TargetHandle},
		}
		if e.Data != nil {
			edges[i].Label = e.Data.Condition
		}
	}

	g := flow.New(opts...)
	dropped, err := g.Load(nodes, edges)
	if err != nil {
		return nil, 0, err
	}
	return g, dropped, nil
}

// FromGraph converts a graph to its persisted shape. Nodes and edges keep
// the graph's insertion order.
func FromGraph(g *flow.Graph) Flow {
	out := Flow{
		Nodes: make([]Node, 0, g.NodeCount()),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}
	for _, n := range g.Nodes() {
		out.Nodes = append(out.Nodes, Node{
			ID:       n.ID,
			Type:     n.Type,
			Position: n.Position,
			Width:    n.Size.Width,
			Height:   n.Size.Height,
			Data: NodeData{
				Name:       n.Data.Name,
				Properties: n.Data.Properties,
				HasError:   n.Data.HasError,
			},
		})
	}
	for _, e := range g.Edges() {
		pe := Edge{
			ID:           e.ID,
			Source:       e.Source.Node,
			Target:       e.Target.Node,
			SourceHandle: e.Source.Anchor,
			TargetHandle: e.Target.Anchor,
		}
		if e.Label != "" {
			pe.Data = &EdgeData{Condition: e.Label}
		}
		out.Edges = append(out.Edges, pe)
	}
	return out
}

// ReadJSON decodes a flow document from r into a graph and returns the
// number of dangling edges dropped. ReadJSON does not close r.
func ReadJSON(r io.Reader, opts ...flow.Option) (*flow.Graph, int, error) {
	f, err := Decode(r)
	if err != nil {
		return nil, 0, err
	}
	return ToGraph(f, opts...)
}

// ImportJSON reads a flow document from the file at path.
func ImportJSON(path string, opts ...flow.Option) (*flow.Graph, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f, opts...)
}

// WriteJSON encodes g as an indented flow document.
func WriteJSON(g *flow.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(FromGraph(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a flow document at path.
func ExportJSON(g *flow.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}
