package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
)

const (
	edgeWidth        = 1.5
	edgeHitWidth     = 20.0
	labelPillPadding = 8.0
	labelPillHeight  = 20.0
	deleteGap        = 4.0
)

// EdgeGeometry is everything needed to draw one sequence flow.
type EdgeGeometry struct {
	Curve    Curve
	Mid      Point
	Label    string
	LabelBox Box // zero when Label is empty
	Delete   Point
}

// Path returns the SVG path data of the curve.
func (g EdgeGeometry) Path() string {
	c := g.Curve
	return fmt.Sprintf("M%.1f %.1f C%.1f %.1f %.1f %.1f %.1f %.1f",
		c.From.X, c.From.Y, c.C1.X, c.C1.Y, c.C2.X, c.C2.Y, c.To.X, c.To.Y)
}

// NewEdgeGeometry computes the curve, midpoint, label pill and delete
// control position. The delete control sits on the midpoint, or right of
// the pill when a label is present so the two never overlap.
func NewEdgeGeometry(from Point, fromSide flow.Side, to Point, toSide flow.Side, label string) EdgeGeometry {
	c := NewCurve(from, fromSide, to, toSide)
	g := EdgeGeometry{Curve: c, Mid: c.Mid(), Label: strings.TrimSpace(label)}
	g.Delete = g.Mid
	if g.Label != "" {
		w := TextWidth(g.Label, labelFontSize) + 2*labelPillPadding
		g.LabelBox = Box{g.Mid.X - w/2, g.Mid.Y - labelPillHeight/2, w, labelPillHeight}
		g.Delete = Point{g.Mid.X + w/2 + deleteRadius + deleteGap, g.Mid.Y}
	}
	return g
}

// EdgeEnds resolves the anchor points of e on its endpoint nodes. An anchor
// the node type does not declare for the needed role falls back to the
// type's default anchor and is logged; in strict mode it is an
// INVALID_CONNECTION error instead.
func EdgeEnds(src, dst flow.Node, e flow.Edge, logger *log.Logger, strict bool) (from Point, fromSide flow.Side, to Point, toSide flow.Side, err error) {
	sa, err := resolveAnchor(src, e.ID, e.Source.Anchor, flow.RoleSource, logger, strict)
	if err != nil {
		return
	}
	ta, err := resolveAnchor(dst, e.ID, e.Target.Anchor, flow.RoleTarget, logger, strict)
	if err != nil {
		return
	}
	return SidePoint(NodeBox(src), sa.Side), sa.Side, SidePoint(NodeBox(dst), ta.Side), ta.Side, nil
}

func resolveAnchor(n flow.Node, edgeID, anchorID string, role flow.Role, logger *log.Logger, strict bool) (flow.Anchor, error) {
	if a, ok := flow.FindAnchor(n.Type, anchorID); ok && a.Role == role {
		return a, nil
	}
	if strict {
		return flow.Anchor{}, perrors.New(perrors.ErrCodeInvalidConnection,
			"edge %q: node %q has no %s anchor %q", edgeID, n.ID, role, anchorID)
	}
	fallback, ok := flow.DefaultAnchor(n.Type, role)
	if !ok {
		// The type has no anchor for this role at all; attach to the side
		// the flow enters or leaves by default.
		side := flow.SideTop
		if role == flow.RoleSource {
			side = flow.SideBottom
		}
		fallback = flow.Anchor{ID: string(side), Side: side, Role: role}
	}
	logger.Warn("missing anchor, using default", "edge", edgeID, "node", n.ID,
		"anchor", anchorID, "role", role, "fallback", fallback.ID)
	return fallback, nil
}

// RenderEdge writes a sequence flow as an SVG group: the transparent hit
// path, the visible line, the optional condition pill and, when hovered and
// deletable, the delete control.
func RenderEdge(buf *bytes.Buffer, e flow.Edge, g EdgeGeometry, st State) {
	stroke, width := colorEdge, edgeWidth
	if st.Selected || st.Hovered {
		stroke = colorEdgeHot
	}
	if st.Selected {
		width = 2
	}

	classes := []string{"edge"}
	if st.Selected {
		classes = append(classes, "selected")
	}
	if st.Hovered {
		classes = append(classes, "hovered")
	}

	path := g.Path()
	fmt.Fprintf(buf, `  <g id="edge-%s" class="%s" data-id="%s">`+"\n",
		escapeXML(e.ID), strings.Join(classes, " "), escapeXML(e.ID))
	fmt.Fprintf(buf, `    <path class="edge-hit" d="%s" fill="none" stroke="transparent" stroke-width="%.0f" pointer-events="stroke"/>`+"\n",
		path, edgeHitWidth)
	fmt.Fprintf(buf, `    <path class="edge-line" d="%s" fill="none" stroke="%s" stroke-width="%.1f" marker-end="url(#arrow)"/>`+"\n",
		path, stroke, width)

	if g.Label != "" {
		b := g.LabelBox
		fmt.Fprintf(buf, `    <rect class="edge-label" x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.1f" fill="%s" stroke="%s"/>`+"\n",
			b.X, b.Y, b.W, b.H, b.H/2, colorLabelBg, colorLabelFg)
		fmt.Fprintf(buf, `    <text class="edge-label-text" x="%.1f" y="%.1f" text-anchor="middle" dominant-baseline="central" font-size="%.0f" fill="%s">%s</text>`+"\n",
			g.Mid.X, g.Mid.Y, labelFontSize, colorLabelFg, escapeXML(g.Label))
	}
	if st.ShowDelete() {
		renderDeleteControl(buf, e.ID, g.Delete)
	}
	buf.WriteString("  </g>\n")
}
