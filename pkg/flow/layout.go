package flow

import "github.com/matzehuels/procflow/pkg/layout"

// LayoutRequest builds a layout request from the graph's topology. Nodes
// without a size override are sent without a size so the engine's default
// footprint applies; anchors are dropped since layering ignores them.
func LayoutRequest(g *Graph, dir layout.Direction, smart bool) layout.Request {
	req := layout.Request{Direction: dir, Smart: smart}
	for _, n := range g.Nodes() {
		req.Nodes = append(req.Nodes, layout.Node{
			ID:     n.ID,
			Width:  n.Size.Width,
			Height: n.Size.Height,
			X:      n.Position.X,
			Y:      n.Position.Y,
		})
	}
	for _, e := range g.Edges() {
		req.Edges = append(req.Edges, layout.Edge{ID: e.ID, Source: e.Source.Node, Target: e.Target.Node})
	}
	return req
}

// ApplyLayout moves every node named in res. The engine may have placed a
// node using a footprint that differs from its drawn size, so the node is
// centered on the engine's box rather than copied corner to corner.
// It returns the number of nodes moved.
func (g *Graph) ApplyLayout(res layout.Result) int {
	moved := 0
	for _, ln := range res.Nodes {
		n, ok := g.nodes[ln.ID]
		if !ok {
			continue
		}
		size := n.Dimensions()
		n.Position = Position{
			X: ln.X + ln.Width/2 - size.Width/2,
			Y: ln.Y + ln.Height/2 - size.Height/2,
		}
		moved++
	}
	return moved
}
