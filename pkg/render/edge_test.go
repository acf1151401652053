package render

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
)

func TestCurveMid(t *testing.T) {
	c := NewCurve(Point{0, 0}, flow.SideBottom, Point{0, 200}, flow.SideTop)
	if c.C1 != (Point{0, 100}) || c.C2 != (Point{0, 100}) {
		t.Errorf("control points = %v %v", c.C1, c.C2)
	}
	if mid := c.Mid(); mid != (Point{0, 100}) {
		t.Errorf("Mid() = %v, want {0 100}", mid)
	}
	if c.At(0) != c.From || c.At(1) != c.To {
		t.Error("curve must start and end at the anchors")
	}

	short := NewCurve(Point{0, 0}, flow.SideRight, Point{10, 0}, flow.SideLeft)
	if short.C1.X != minCurvature {
		t.Errorf("short curve bend = %v, want %v", short.C1.X, minCurvature)
	}
}

func TestEdgeGeometryLabelOffset(t *testing.T) {
	plain := NewEdgeGeometry(Point{0, 0}, flow.SideBottom, Point{0, 200}, flow.SideTop, "")
	if plain.Delete != plain.Mid {
		t.Errorf("delete at %v, want midpoint %v", plain.Delete, plain.Mid)
	}
	if plain.LabelBox != (Box{}) {
		t.Error("unlabelled edge has a label box")
	}

	g := NewEdgeGeometry(Point{0, 0}, flow.SideBottom, Point{0, 200}, flow.SideTop, "amount > 100")
	lb := g.LabelBox
	if math.Abs(lb.Center().X-g.Mid.X) > 1e-9 || math.Abs(lb.Center().Y-g.Mid.Y) > 1e-9 {
		t.Errorf("label pill %v not centered on midpoint %v", lb, g.Mid)
	}
	if g.Delete.X-deleteRadius <= lb.X+lb.W {
		t.Errorf("delete control at %v overlaps label pill %v", g.Delete, lb)
	}
	if g.Delete.Y != g.Mid.Y {
		t.Error("delete control should stay on the midpoint line")
	}
}

func TestRenderEdge(t *testing.T) {
	e := flow.Edge{ID: "e1", Label: "ok"}
	g := NewEdgeGeometry(Point{0, 0}, flow.SideBottom, Point{0, 200}, flow.SideTop, e.Label)

	var buf bytes.Buffer
	RenderEdge(&buf, e, g, State{})
	out := buf.String()
	if !strings.Contains(out, `class="edge-hit"`) || !strings.Contains(out, `stroke-width="20"`) {
		t.Errorf("hit path missing:\n%s", out)
	}
	if !strings.Contains(out, `stroke-width="1.5"`) {
		t.Errorf("visible line missing:\n%s", out)
	}
	if !strings.Contains(out, ">ok</text>") {
		t.Error("label must render without hover")
	}
	if strings.Contains(out, "delete-control") {
		t.Error("delete control shown without hover")
	}

	buf.Reset()
	RenderEdge(&buf, e, g, State{Hovered: true, Deletable: true})
	if !strings.Contains(buf.String(), `data-command="delete" data-id="e1"`) {
		t.Error("hovered edge must show delete control")
	}
}

func TestEdgeEndsFallback(t *testing.T) {
	var logs bytes.Buffer
	logger := log.New(&logs)

	src := flow.Node{ID: "s", Type: flow.StartEvent}
	dst := flow.Node{ID: "t", Type: flow.UserTask, Position: flow.Position{X: 0, Y: 200}}
	e := flow.Edge{ID: "e", Source: flow.Endpoint{Node: "s", Anchor: "nowhere"}, Target: flow.Endpoint{Node: "t", Anchor: flow.AnchorTop}}

	from, fromSide, to, toSide, err := EdgeEnds(src, dst, e, logger, false)
	if err != nil {
		t.Fatal(err)
	}
	if fromSide != flow.SideBottom || toSide != flow.SideTop {
		t.Errorf("sides = %s, %s", fromSide, toSide)
	}
	if from != (Point{50, 40}) || to != (Point{70, 200}) {
		t.Errorf("points = %v, %v", from, to)
	}
	if !strings.Contains(logs.String(), "missing anchor") {
		t.Errorf("fallback not logged: %q", logs.String())
	}

	_, _, _, _, err = EdgeEnds(src, dst, e, logger, true)
	if !perrors.Is(err, perrors.ErrCodeInvalidConnection) {
		t.Errorf("strict error = %v, want INVALID_CONNECTION", err)
	}
}
