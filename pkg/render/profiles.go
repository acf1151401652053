package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/procflow/pkg/flow"
)

const (
	anchorRadius = 4.0
	deleteRadius = 8.0
	labelPadding = 12.0
)

// profiles holds one renderer per node-producing kind.
var profiles = []NodeRenderer{
	eventRenderer{profile{typ: flow.StartEvent, shape: ShapePill,
		palette: palette{fill: "#f6ffed", border: "#52c41a", borderWidth: 1.5}}},
	eventRenderer{profile{typ: flow.EndEvent, shape: ShapePill, errorVariant: true,
		palette: palette{fill: "#fff1f0", border: "#cf1322", borderWidth: 2.5}}},

	activityRenderer{profile{typ: flow.UserTask, shape: ShapeRoundedRect, errorVariant: true,
		palette: palette{fill: "#e6f4ff", border: "#69b1ff", borderWidth: 1.5}}, "User"},
	activityRenderer{profile{typ: flow.ServiceTask, shape: ShapeRoundedRect, errorVariant: true,
		palette: palette{fill: "#f9f0ff", border: "#b37feb", borderWidth: 1.5}}, "Service"},
	activityRenderer{profile{typ: flow.CallActivity, shape: ShapeRoundedRect, errorVariant: true,
		palette: palette{fill: "#fff7e6", border: "#fa8c16", borderWidth: 3}}, "Sub-process"},

	gatewayRenderer{profile{typ: flow.ExclusiveGateway, shape: ShapeDiamond,
		palette: palette{fill: "#fffbe6", border: "#faad14", borderWidth: 1.5}}, "×"},
	gatewayRenderer{profile{typ: flow.ParallelGateway, shape: ShapeDiamond,
		palette: palette{fill: "#fffbe6", border: "#faad14", borderWidth: 1.5}}, "+"},
	gatewayRenderer{profile{typ: flow.InclusiveGateway, shape: ShapeDiamond,
		palette: palette{fill: "#fffbe6", border: "#faad14", borderWidth: 1.5}}, "○"},
}

// profile carries the parameters shared by every kind.
type profile struct {
	typ          flow.ElementType
	shape        Shape
	palette      palette
	errorVariant bool
}

func (p profile) Type() flow.ElementType   { return p.typ }
func (p profile) Shape() Shape             { return p.shape }
func (p profile) Anchors() []flow.Anchor   { return flow.Anchors(p.typ) }
func (p profile) Label(n flow.Node) string { return flow.DisplayName(n) }

func (p profile) Style(n flow.Node, st State) Style {
	return resolveStyle(p.palette, p.errorVariant, n.Data.HasError, st)
}

// render writes the group shared by all kinds around the kind-specific
// body and decoration.
func (p profile) render(buf *bytes.Buffer, n flow.Node, st State, decorate func(Box, Style)) {
	b := NodeBox(n)
	s := p.Style(n, st)

	fmt.Fprintf(buf, `  <g id="node-%s" class="%s" data-id="%s" data-type="%s">`+"\n",
		escapeXML(n.ID), nodeClass(p.typ, n, st, p.errorVariant), escapeXML(n.ID), p.typ)
	p.renderBody(buf, b, s)
	if decorate != nil {
		decorate(b, s)
	}
	renderNodeLabel(buf, b, p.Label(n), s)
	renderAnchors(buf, b, p.Anchors())
	if st.ShowDelete() {
		renderDeleteControl(buf, n.ID, Point{b.X + b.W, b.Y})
	}
	buf.WriteString("  </g>\n")
}

func (p profile) renderBody(buf *bytes.Buffer, b Box, s Style) {
	paint := fmt.Sprintf(`fill="%s" stroke="%s" stroke-width="%.1f" filter="url(#%s)"`,
		s.Fill, s.Border, s.BorderWidth, s.Shadow)
	switch p.shape {
	case ShapePill:
		fmt.Fprintf(buf, `    <rect class="node-body" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.1f" %s/>`+"\n",
			b.X, b.Y, b.W, b.H, b.H/2, paint)
	case ShapeDiamond:
		c := b.Center()
		fmt.Fprintf(buf, `    <polygon class="node-body" points="%.1f,%.1f %.1f,%.1f %.1f,%.1f %.1f,%.1f" %s/>`+"\n",
			c.X, b.Y, b.X+b.W, c.Y, c.X, b.Y+b.H, b.X, c.Y, paint)
	default:
		fmt.Fprintf(buf, `    <rect class="node-body" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="8" %s/>`+"\n",
			b.X, b.Y, b.W, b.H, paint)
	}
}

func nodeClass(t flow.ElementType, n flow.Node, st State, errorVariant bool) string {
	classes := []string{"node", "node-" + t.String()}
	if st.Selected {
		classes = append(classes, "selected")
	}
	if st.Hovered {
		classes = append(classes, "hovered")
	}
	if errorVariant && n.Data.HasError {
		classes = append(classes, "error")
	}
	return strings.Join(classes, " ")
}

// eventRenderer draws start and end events as pills.
type eventRenderer struct{ profile }

func (r eventRenderer) Render(buf *bytes.Buffer, n flow.Node, st State) {
	r.render(buf, n, st, nil)
}

// activityRenderer draws tasks and call activities as rounded rectangles
// with a small kind caption in the top-left corner.
type activityRenderer struct {
	profile
	caption string
}

func (r activityRenderer) Render(buf *bytes.Buffer, n flow.Node, st State) {
	r.render(buf, n, st, func(b Box, _ Style) {
		fmt.Fprintf(buf, `    <text class="node-caption" x="%.1f" y="%.1f" font-size="%.0f" fill="%s">%s</text>`+"\n",
			b.X+6, b.Y+captionSize+2, captionSize, colorMuted, escapeXML(r.caption))
	})
}

// gatewayRenderer draws gateways as diamonds with a marker glyph. The
// label sits below the diamond since the shape is too small to hold it.
type gatewayRenderer struct {
	profile
	marker string
}

func (r gatewayRenderer) Render(buf *bytes.Buffer, n flow.Node, st State) {
	r.render(buf, n, st, func(b Box, s Style) {
		c := b.Center()
		fmt.Fprintf(buf, `    <text class="gateway-marker" x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="central" font-size="%.0f" fill="%s">%s</text>`+"\n",
			c.X, c.Y, b.H*0.5, s.Border, escapeXML(r.marker))
	})
}

func renderNodeLabel(buf *bytes.Buffer, b Box, label string, s Style) {
	if label == "" {
		return
	}
	c := b.Center()
	text := truncate(label, b.W-labelPadding, nodeFontSize)
	y := c.Y
	if b.W < TextWidth(label, nodeFontSize) && b.W == b.H {
		// Square shapes (gateways) put the full label underneath.
		text, y = label, b.Y+b.H+nodeFontSize
	}
	fmt.Fprintf(buf, `    <text class="node-label" x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="central" font-size="%.0f" fill="%s">%s</text>`+"\n",
		c.X, y, nodeFontSize, s.Text, escapeXML(text))
}

func renderAnchors(buf *bytes.Buffer, b Box, anchors []flow.Anchor) {
	for _, a := range anchors {
		p := SidePoint(b, a.Side)
		fmt.Fprintf(buf, `    <circle class="anchor anchor-%s" data-anchor="%s" cx="%.1f" cy="%.1f" r="%.0f"/>`+"\n",
			a.Role, a.ID, p.X, p.Y, anchorRadius)
	}
}

// renderDeleteControl draws the delete button. The host stops propagation
// on data-command elements so a delete click never selects the element.
func renderDeleteControl(buf *bytes.Buffer, id string, at Point) {
	fmt.Fprintf(buf, `    <g class="delete-control" data-command="delete" data-id="%s">`+"\n", escapeXML(id))
	fmt.Fprintf(buf, `      <circle cx="%.1f" cy="%.1f" r="%.0f" fill="%s"/>`+"\n", at.X, at.Y, deleteRadius, colorDelete)
	d := deleteRadius / 2.5
	fmt.Fprintf(buf, `      <path d="M%.1f %.1f L%.1f %.1f M%.1f %.1f L%.1f %.1f" stroke="#fff" stroke-width="1.5"/>`+"\n",
		at.X-d, at.Y-d, at.X+d, at.Y+d, at.X+d, at.Y-d, at.X-d, at.Y+d)
	buf.WriteString("    </g>\n")
}
