package layout

import "slices"

// graph is the working graph of a single layout pass. Vertices 0..real-1
// are request nodes in input order; later vertices are dummies inserted by
// subdivide. All adjacency lists are kept in insertion order so every pass
// is deterministic.
type graph struct {
	real  int
	cross []float64 // extent along the cross axis
	along []float64 // extent along the rank axis
	succ  [][]int
	pred  [][]int
	rank  []int
}

func newGraph(nodes []Node, order []int, edges []scopedEdge, dir Direction) *graph {
	n := len(order)
	g := &graph{
		real:  n,
		cross: make([]float64, n),
		along: make([]float64, n),
		succ:  make([][]int, n),
		pred:  make([][]int, n),
		rank:  make([]int, n),
	}
	for k, idx := range order {
		w, h := nodes[idx].Width, nodes[idx].Height
		if dir.horizontal() {
			w, h = h, w
		}
		g.cross[k], g.along[k] = w, h
	}
	for _, e := range edges {
		if e.u != e.v {
			g.addEdge(e.u, e.v)
		}
	}
	return g
}

func (g *graph) size() int { return len(g.succ) }

func (g *graph) isDummy(v int) bool { return v >= g.real }

// addEdge adds u→v unless it already exists. Parallel edges carry no extra
// information for ranking or ordering.
func (g *graph) addEdge(u, v int) {
	if slices.Contains(g.succ[u], v) {
		return
	}
	g.succ[u] = append(g.succ[u], v)
	g.pred[v] = append(g.pred[v], u)
}

func (g *graph) removeEdge(u, v int) {
	g.succ[u] = slices.DeleteFunc(g.succ[u], func(x int) bool { return x == v })
	g.pred[v] = slices.DeleteFunc(g.pred[v], func(x int) bool { return x == u })
}

func (g *graph) addVertex(cross, along float64) int {
	g.cross = append(g.cross, cross)
	g.along = append(g.along, along)
	g.succ = append(g.succ, nil)
	g.pred = append(g.pred, nil)
	g.rank = append(g.rank, 0)
	return len(g.succ) - 1
}

// breakCycles reverses every back edge found by a depth-first search that
// starts from the sources in input order, then from any vertex not yet
// reached. It returns the number of reversed edges.
func (g *graph) breakCycles() int {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, g.size())
	var backEdges [][2]int

	var dfs func(u int)
	dfs = func(u int) {
		color[u] = gray
		for _, v := range g.succ[u] {
			switch color[v] {
			case white:
				dfs(v)
			case gray:
				backEdges = append(backEdges, [2]int{u, v})
			}
		}
		color[u] = black
	}

	for u := range g.size() {
		if len(g.pred[u]) == 0 && color[u] == white {
			dfs(u)
		}
	}
	for u := range g.size() {
		if color[u] == white {
			dfs(u)
		}
	}

	for _, e := range backEdges {
		g.removeEdge(e[0], e[1])
		g.addEdge(e[1], e[0])
	}
	return len(backEdges)
}

// assignRanks computes longest-path ranks with Kahn's algorithm: every
// vertex sits one rank below its deepest parent. Sources are then pulled
// down next to their nearest child so a branch feeding into the middle of
// the flow does not start at the top, and ranks are shifted to start at 0.
func (g *graph) assignRanks() {
	n := g.size()
	inDegree := make([]int, n)
	queue := make([]int, 0, n)
	for v := range n {
		inDegree[v] = len(g.pred[v])
		g.rank[v] = 0
		if inDegree[v] == 0 {
			queue = append(queue, v)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, child := range g.succ[curr] {
			if r := g.rank[curr] + 1; r > g.rank[child] {
				g.rank[child] = r
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	for v := range n {
		if len(g.pred[v]) > 0 || len(g.succ[v]) == 0 {
			continue
		}
		nearest := g.rank[g.succ[v][0]]
		for _, c := range g.succ[v][1:] {
			nearest = min(nearest, g.rank[c])
		}
		g.rank[v] = nearest - 1
	}

	if n == 0 {
		return
	}
	lowest := slices.Min(g.rank)
	for v := range n {
		g.rank[v] -= lowest
	}
}

// subdivide replaces every edge spanning more than one rank by a chain of
// dummy vertices, one per intermediate rank, so that all edges connect
// adjacent ranks. Dummies have no extent.
func (g *graph) subdivide() {
	type edge struct{ u, v int }
	var long []edge
	for u := range g.real {
		for _, v := range g.succ[u] {
			if g.rank[v] > g.rank[u]+1 {
				long = append(long, edge{u, v})
			}
		}
	}

	for _, e := range long {
		g.removeEdge(e.u, e.v)
		prev := e.u
		for r := g.rank[e.u] + 1; r < g.rank[e.v]; r++ {
			d := g.addVertex(0, 0)
			g.rank[d] = r
			g.addEdge(prev, d)
			prev = d
		}
		g.addEdge(prev, e.v)
	}
}

// maxRank returns the highest rank in use, or -1 for an empty graph.
func (g *graph) maxRank() int {
	if g.size() == 0 {
		return -1
	}
	return slices.Max(g.rank)
}
