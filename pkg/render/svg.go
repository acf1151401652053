package render

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
)

const canvasCSS = `
    .node .anchor { fill: #fff; stroke: #8c8c8c; stroke-width: 1; opacity: 0; transition: opacity 0.15s ease; }
    .node.hovered .anchor, .node.selected .anchor { opacity: 1; }
    .anchor-source { stroke: #1677ff; }
    .node-label, .edge-label-text, .node-caption, .gateway-marker { font-family: system-ui, sans-serif; pointer-events: none; }
    .delete-control { cursor: pointer; }
    .node, .edge { cursor: default; }`

// canvasJS forwards pointer events to the canvas event endpoint. Delete
// clicks stop propagation so they never reach the element's click handler.
const canvasJS = `
    const endpoint = %q;
    function send(kind, id) {
      return fetch(endpoint, {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify({kind, id})})
        .then(() => location.reload());
    }
    document.querySelectorAll('.node, .edge').forEach(el => {
      el.addEventListener('mouseenter', () => send('enter', el.dataset.id));
      el.addEventListener('mouseleave', () => send('leave', el.dataset.id));
      el.addEventListener('click', () => send('click', el.dataset.id));
    });
    document.querySelectorAll('[data-command="delete"]').forEach(el => {
      el.addEventListener('click', ev => { ev.stopPropagation(); send('delete', el.dataset.id); });
    });`

// StateFunc returns the interaction state of an element.
type StateFunc func(id string) State

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	state    StateFunc
	logger   *log.Logger
	padding  float64
	strict   bool
	endpoint string
}

func WithStates(fn StateFunc) SVGOption    { return func(r *svgRenderer) { r.state = fn } }
func WithPadding(p float64) SVGOption      { return func(r *svgRenderer) { r.padding = p } }
func WithStrict() SVGOption                { return func(r *svgRenderer) { r.strict = true } }
func WithEventEndpoint(u string) SVGOption { return func(r *svgRenderer) { r.endpoint = u } }
func WithLogger(l *log.Logger) SVGOption {
	return func(r *svgRenderer) {
		if l != nil {
			r.logger = l
		}
	}
}

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{
		state:   func(string) State { return State{} },
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
		padding: 40,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RenderSVG draws the graph as a standalone SVG document: edges first, then
// nodes on top. Unknown node types become error placeholders and missing
// anchors fall back to defaults, both logged. With [WithStrict] a missing
// anchor is an error instead.
func RenderSVG(g *flow.Graph, opts ...SVGOption) ([]byte, error) {
	r := newSVGRenderer(opts...)

	var edges bytes.Buffer
	var labels []Box
	for _, e := range g.Edges() {
		src, srcOK := g.Node(e.Source.Node)
		dst, dstOK := g.Node(e.Target.Node)
		if !srcOK || !dstOK {
			r.logger.Warn("skipping dangling edge", "code", perrors.ErrCodeDanglingEdge, "edge", e.ID)
			continue
		}
		from, fromSide, to, toSide, err := EdgeEnds(src, dst, e, r.logger, r.strict)
		if err != nil {
			return nil, err
		}
		geo := NewEdgeGeometry(from, fromSide, to, toSide, e.Label)
		if geo.Label != "" {
			labels = append(labels, geo.LabelBox)
		}
		RenderEdge(&edges, e, geo, r.state(e.ID))
	}

	var nodes bytes.Buffer
	var boxes []Box
	for _, n := range g.Nodes() {
		boxes = append(boxes, NodeBox(n))
		RenderNode(&nodes, n, r.state(n.ID), r.logger)
	}

	view := bounds(append(boxes, labels...), r.padding)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		view.X, view.Y, view.W, view.H, view.W, view.H)
	RenderDefs(&buf)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", canvasCSS)
	buf.Write(edges.Bytes())
	buf.Write(nodes.Bytes())
	if r.endpoint != "" {
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", fmt.Sprintf(canvasJS, r.endpoint))
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

// RenderNode draws one node with its registered renderer. A type without a
// renderer is drawn as a dashed error placeholder and logged, so a corrupt
// element stays visible instead of disappearing.
func RenderNode(buf *bytes.Buffer, n flow.Node, st State, logger *log.Logger) {
	r, err := For(n.Type)
	if err == nil {
		r.Render(buf, n, st)
		return
	}
	if logger != nil {
		logger.Error("cannot render node", "node", n.ID, "code", perrors.GetCode(err), "err", err)
	}
	renderPlaceholder(buf, n)
}

func renderPlaceholder(buf *bytes.Buffer, n flow.Node) {
	b := Box{n.Position.X, n.Position.Y, n.Size.Width, n.Size.Height}
	if b.W == 0 || b.H == 0 {
		b.W, b.H = 140, 60
	}
	c := b.Center()
	fmt.Fprintf(buf, `  <g id="node-%s" class="node node-unknown error" data-id="%s" data-type="%s">`+"\n",
		escapeXML(n.ID), escapeXML(n.ID), n.Type)
	fmt.Fprintf(buf, `    <rect class="node-body" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="4" fill="#fff1f0" stroke="%s" stroke-width="2" stroke-dasharray="6 3"/>`+"\n",
		b.X, b.Y, b.W, b.H, colorError)
	fmt.Fprintf(buf, `    <text class="node-label" x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="central" font-size="%.0f" fill="%s">%s</text>`+"\n",
		c.X, c.Y, labelFontSize, colorError, escapeXML(n.Type.String()))
	buf.WriteString("  </g>\n")
}

// RenderDefs writes the arrow marker and the shadow filters referenced by
// node styles.
func RenderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	fmt.Fprintf(buf, `    <marker id="arrow" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="8" markerHeight="8" orient="auto-start-reverse"><path d="M0 0 L10 5 L0 10 z" fill="%s"/></marker>`+"\n", colorEdge)
	for _, f := range []struct {
		id, color string
		blur      float64
	}{
		{ShadowDefault, "#000000", 2},
		{ShadowSelected, colorSelected, 4},
		{ShadowError, colorError, 4},
	} {
		fmt.Fprintf(buf, `    <filter id="%s" x="-20%%" y="-20%%" width="140%%" height="140%%"><feDropShadow dx="0" dy="1" stdDeviation="%.0f" flood-color="%s" flood-opacity="0.25"/></filter>`+"\n",
			f.id, f.blur, f.color)
	}
	buf.WriteString("  </defs>\n")
}

// bounds returns the padded union of boxes, or a padded empty box at the
// origin.
func bounds(boxes []Box, pad float64) Box {
	if len(boxes) == 0 {
		return Box{-pad, -pad, 2 * pad, 2 * pad}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range boxes {
		minX, minY = min(minX, b.X), min(minY, b.Y)
		maxX, maxY = max(maxX, b.X+b.W), max(maxY, b.Y+b.H)
	}
	return Box{minX - pad, minY - pad, maxX - minX + 2*pad, maxY - minY + 2*pad}
}
