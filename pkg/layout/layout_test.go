package layout

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	perrors "github.com/matzehuels/procflow/pkg/errors"
)

func chain(ids ...string) ([]Node, []Edge) {
	nodes := make([]Node, len(ids))
	var edges []Edge
	for i, id := range ids {
		nodes[i] = Node{ID: id}
		if i > 0 {
			edges = append(edges, Edge{ID: fmt.Sprintf("e%d", i), Source: ids[i-1], Target: id})
		}
	}
	return nodes, edges
}

func overlaps(a, b Node) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

func assertNoOverlap(t *testing.T, nodes []Node) {
	t.Helper()
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			if overlaps(nodes[i], nodes[j]) {
				t.Errorf("nodes %s %+v and %s %+v overlap", nodes[i].ID, nodes[i], nodes[j].ID, nodes[j])
			}
		}
	}
}

func byID(nodes []Node) map[string]Node {
	m := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		m[n.ID] = n
	}
	return m
}

func TestLayoutStartTaskEnd(t *testing.T) {
	nodes := []Node{
		{ID: "S", Width: 100, Height: 40},
		{ID: "U", Width: 140, Height: 60},
		{ID: "E", Width: 100, Height: 40},
	}
	_, edges := chain("S", "U", "E")

	res, err := Layout(nodes, edges, TopBottom, 0, 0)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if len(res.Nodes) != 3 || len(res.Edges) != 2 {
		t.Fatalf("got %d nodes, %d edges; want 3, 2", len(res.Nodes), len(res.Edges))
	}
	if res.Ranks != 3 {
		t.Errorf("Ranks = %d, want 3", res.Ranks)
	}

	m := byID(res.Nodes)
	s, u, e := m["S"], m["U"], m["E"]
	if !(s.Y+s.Height <= u.Y && u.Y+u.Height <= e.Y) {
		t.Errorf("want three distinct y-bands S < U < E, got %v %v %v", s.Y, u.Y, e.Y)
	}
	// Centers line up on a straight chain.
	if sc, uc := s.X+s.Width/2, u.X+u.Width/2; sc != uc {
		t.Errorf("S center %v != U center %v", sc, uc)
	}
	assertNoOverlap(t, res.Nodes)
	if !reflect.DeepEqual(res.Edges, edges) {
		t.Error("edges must be returned unchanged")
	}
}

func TestLayoutDirections(t *testing.T) {
	nodes, edges := chain("a", "b")
	tests := []struct {
		dir   Direction
		after func(a, b Node) bool
	}{
		{TopBottom, func(a, b Node) bool { return b.Y > a.Y && a.X == b.X }},
		{BottomTop, func(a, b Node) bool { return b.Y < a.Y && a.X == b.X }},
		{LeftRight, func(a, b Node) bool { return b.X > a.X && a.Y == b.Y }},
		{RightLeft, func(a, b Node) bool { return b.X < a.X && a.Y == b.Y }},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			res, err := Layout(nodes, edges, tt.dir, 100, 50)
			if err != nil {
				t.Fatal(err)
			}
			m := byID(res.Nodes)
			if !tt.after(m["a"], m["b"]) {
				t.Errorf("a=%+v b=%+v", m["a"], m["b"])
			}
			if res.Direction != tt.dir {
				t.Errorf("Direction = %s, want %s", res.Direction, tt.dir)
			}
		})
	}
}

func TestLayoutTopLeftConversion(t *testing.T) {
	res, err := Layout([]Node{{ID: "only", Width: 60, Height: 30}}, nil, TopBottom, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	n := res.Nodes[0]
	if n.X != 0 || n.Y != 0 {
		t.Errorf("single node at %v,%v; want 0,0", n.X, n.Y)
	}
}

func branchy() ([]Node, []Edge) {
	ids := []string{"start", "gw", "a", "b", "c", "join", "review", "end"}
	nodes := make([]Node, len(ids))
	for i, id := range ids {
		nodes[i] = Node{ID: id, X: float64(i * 13), Y: float64(i * 7)}
	}
	edges := []Edge{
		{Source: "start", Target: "gw"},
		{Source: "gw", Target: "a"},
		{Source: "gw", Target: "b"},
		{Source: "gw", Target: "c"},
		{Source: "a", Target: "join"},
		{Source: "b", Target: "join"},
		{Source: "c", Target: "review"},
		{Source: "review", Target: "join"},
		{Source: "join", Target: "end"},
		{Source: "review", Target: "gw"}, // loop back
		{Source: "start", Target: "end"},
	}
	return nodes, edges
}

func TestLayoutDeterministic(t *testing.T) {
	nodes, edges := branchy()
	first, err := Layout(nodes, edges, TopBottom, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	for range 5 {
		again, err := Layout(nodes, edges, TopBottom, 0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatal("layout is not deterministic")
		}
	}
}

func TestLayoutIdempotent(t *testing.T) {
	nodes, edges := branchy()
	for _, dir := range Directions {
		first, err := SmartLayout(nodes, edges, dir)
		if err != nil {
			t.Fatal(err)
		}
		second, err := SmartLayout(first.Nodes, edges, dir)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first.Nodes, second.Nodes) {
			t.Errorf("%s: re-running on own output moved nodes", dir)
		}
	}
}

func TestLayoutIgnoresInputPositions(t *testing.T) {
	nodes, edges := branchy()
	a, _ := Layout(nodes, edges, LeftRight, 0, 0)
	for i := range nodes {
		nodes[i].X, nodes[i].Y = -500, 1e6
	}
	b, _ := Layout(nodes, edges, LeftRight, 0, 0)
	if !reflect.DeepEqual(a.Nodes, b.Nodes) {
		t.Error("input positions affected the result")
	}
}

func TestLayoutCycles(t *testing.T) {
	nodes, edges := branchy()
	res, err := Layout(nodes, edges, TopBottom, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Reversed != 1 {
		t.Errorf("Reversed = %d, want 1", res.Reversed)
	}
	assertNoOverlap(t, res.Nodes)

	// A pure cycle still terminates and stacks its nodes.
	ring := []Node{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	ringEdges := []Edge{{Source: "x", Target: "y"}, {Source: "y", Target: "z"}, {Source: "z", Target: "x"}}
	res, err = Layout(ring, ringEdges, TopBottom, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Ranks != 3 {
		t.Errorf("ring ranks = %d, want 3", res.Ranks)
	}
}

func TestLayoutSelfLoopAndParallel(t *testing.T) {
	nodes, edges := chain("a", "b")
	edges = append(edges, Edge{Source: "a", Target: "a"}, Edge{Source: "a", Target: "b"})
	res, err := Layout(nodes, edges, TopBottom, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Ranks != 2 || len(res.Edges) != 3 {
		t.Errorf("ranks=%d edges=%d", res.Ranks, len(res.Edges))
	}
}

func TestLayoutNoOverlapWide(t *testing.T) {
	var nodes []Node
	var edges []Edge
	nodes = append(nodes, Node{ID: "root"})
	for i := range 12 {
		id := fmt.Sprintf("t%d", i)
		nodes = append(nodes, Node{ID: id, Width: float64(60 + i*10)})
		edges = append(edges, Edge{Source: "root", Target: id})
		if i%3 == 0 {
			edges = append(edges, Edge{Source: id, Target: "sink"})
		}
	}
	nodes = append(nodes, Node{ID: "sink"})
	res, err := SmartLayout(nodes, edges, LeftRight)
	if err != nil {
		t.Fatal(err)
	}
	assertNoOverlap(t, res.Nodes)
	for _, n := range res.Nodes {
		if n.X < 0 || n.Y < 0 {
			t.Errorf("node %s at negative coordinate %v,%v", n.ID, n.X, n.Y)
		}
	}
}

func TestLayoutCrossingFree(t *testing.T) {
	// a->d, b->c laid out naively crosses; the ordering pass must untangle it.
	nodes := []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	edges := []Edge{{Source: "a", Target: "d"}, {Source: "b", Target: "c"}, {Source: "a", Target: "c"}}
	res, err := Layout(nodes, edges, TopBottom, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Crossings != 0 {
		t.Errorf("Crossings = %d, want 0", res.Crossings)
	}
}

func TestLayoutSubset(t *testing.T) {
	nodes := []Node{
		{ID: "fixed", X: 900, Y: 900},
		{ID: "a", X: 300, Y: 200},
		{ID: "b", X: 50, Y: 400},
	}
	edges := []Edge{{Source: "a", Target: "b"}, {Source: "fixed", Target: "a"}}

	res, err := Layout(nodes, edges, TopBottom, 0, 0, WithSubset("a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	m := byID(res.Nodes)
	if m["fixed"].X != 900 || m["fixed"].Y != 900 {
		t.Errorf("node outside subset moved: %+v", m["fixed"])
	}
	left := math.Min(m["a"].X, m["b"].X)
	top := math.Min(m["a"].Y, m["b"].Y)
	if left != 50 || top != 200 {
		t.Errorf("subset bbox top-left = %v,%v; want 50,200", left, top)
	}
	if m["b"].Y <= m["a"].Y {
		t.Error("subset not laid out top to bottom")
	}

	if _, err := Layout(nodes, edges, TopBottom, 0, 0, WithSubset("ghost")); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("unknown subset node error = %v", err)
	}
}

func TestLayoutInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		dir   Direction
		code  perrors.Code
	}{
		{"bad direction", []Node{{ID: "a"}}, "XY", perrors.ErrCodeInvalidDirection},
		{"empty id", []Node{{}}, TopBottom, perrors.ErrCodeInvalidInput},
		{"duplicate id", []Node{{ID: "a"}, {ID: "a"}}, TopBottom, perrors.ErrCodeInvalidInput},
		{"negative size", []Node{{ID: "a", Width: -1}}, TopBottom, perrors.ErrCodeInvalidInput},
		{"nan size", []Node{{ID: "a", Height: math.NaN()}}, TopBottom, perrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Layout(tt.nodes, nil, tt.dir, 0, 0)
			if !perrors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLayoutUnknownEndpointSkipped(t *testing.T) {
	nodes, edges := chain("a", "b")
	edges = append(edges, Edge{ID: "stale", Source: "b", Target: "gone"})
	res, err := Layout(nodes, edges, TopBottom, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Edges) != 2 || res.Ranks != 2 {
		t.Errorf("edges=%d ranks=%d", len(res.Edges), res.Ranks)
	}
}

func TestLayoutEmpty(t *testing.T) {
	res, err := Layout(nil, nil, TopBottom, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Nodes) != 0 || res.Ranks != 0 {
		t.Errorf("empty layout = %+v", res)
	}
}

func TestParseDirection(t *testing.T) {
	for _, in := range []string{"tb", "TB", " lr ", "Rl", "bt"} {
		if _, err := ParseDirection(in); err != nil {
			t.Errorf("ParseDirection(%q): %v", in, err)
		}
	}
	if d, _ := ParseDirection(""); d != TopBottom {
		t.Errorf("empty direction = %s, want TB", d)
	}
	if _, err := ParseDirection("diagonal"); err == nil {
		t.Error("expected error")
	}
}

func TestResultMarshal(t *testing.T) {
	nodes, edges := chain("a", "b")
	res, _ := Layout(nodes, edges, TopBottom, 0, 0)
	data, err := res.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res, back) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", res, back)
	}
	if _, err := Unmarshal([]byte("{")); !perrors.Is(err, perrors.ErrCodeInvalidFormat) {
		t.Errorf("bad JSON error = %v", err)
	}
}
