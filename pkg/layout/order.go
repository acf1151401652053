package layout

import (
	"cmp"
	"slices"
)

const (
	maxSweeps      = 24
	maxStaleSweeps = 4
	maxTransposes  = 8
)

// initOrder builds the starting order of every rank with a depth-first
// search from the real vertices sorted by rank, appending each vertex to its
// rank when first visited. Children of a vertex therefore start out
// adjacent.
func (g *graph) initOrder() [][]int {
	layers := make([][]int, g.maxRank()+1)
	visited := make([]bool, g.size())

	var dfs func(v int)
	dfs = func(v int) {
		visited[v] = true
		layers[g.rank[v]] = append(layers[g.rank[v]], v)
		for _, c := range g.succ[v] {
			if !visited[c] {
				dfs(c)
			}
		}
	}

	starts := make([]int, g.real)
	for v := range g.real {
		starts[v] = v
	}
	slices.SortStableFunc(starts, func(a, b int) int { return cmp.Compare(g.rank[a], g.rank[b]) })
	for _, v := range starts {
		if !visited[v] {
			dfs(v)
		}
	}
	return layers
}

// orderLayers reorders ranks in place to reduce crossings, alternating
// downward sweeps (ordering by parents) and upward sweeps (ordering by
// children), each followed by adjacent transposition. The best ordering
// seen is kept; the search stops after maxStaleSweeps sweeps without
// improvement. It returns the final crossing count.
func (g *graph) orderLayers(layers [][]int) int {
	pos := make([]int, g.size())
	g.indexLayers(layers, pos)

	best := cloneLayers(layers)
	bestCC := g.crossings(layers, pos)
	for i, stale := 0, 0; i < maxSweeps && stale < maxStaleSweeps && bestCC > 0; i++ {
		if i%2 == 0 {
			for r := 1; r < len(layers); r++ {
				g.reorder(layers[r], g.pred, pos)
			}
		} else {
			for r := len(layers) - 2; r >= 0; r-- {
				g.reorder(layers[r], g.succ, pos)
			}
		}
		g.transpose(layers, pos)

		if cc := g.crossings(layers, pos); cc < bestCC {
			best, bestCC, stale = cloneLayers(layers), cc, 0
		} else {
			stale++
		}
	}

	for r := range layers {
		copy(layers[r], best[r])
	}
	g.indexLayers(layers, pos)
	return bestCC
}

func cloneLayers(layers [][]int) [][]int {
	out := make([][]int, len(layers))
	for i, l := range layers {
		out[i] = slices.Clone(l)
	}
	return out
}

func (g *graph) indexLayers(layers [][]int, pos []int) {
	for _, layer := range layers {
		indexLayer(layer, pos)
	}
}

func indexLayer(layer []int, pos []int) {
	for i, v := range layer {
		pos[v] = i
	}
}

// reorder sorts one rank by the barycenter of each vertex's neighbours in
// the adjacent, fixed rank. Vertices without such neighbours keep their
// slot; the rest fill the remaining slots in barycenter order, ties broken
// by current position.
func (g *graph) reorder(layer []int, nbrs [][]int, pos []int) {
	type entry struct {
		v   int
		bc  float64
		idx int
	}
	var sortable []entry
	fixed := make([]bool, len(layer))
	for i, v := range layer {
		if len(nbrs[v]) == 0 {
			fixed[i] = true
			continue
		}
		sum := 0
		for _, w := range nbrs[v] {
			sum += pos[w]
		}
		sortable = append(sortable, entry{v, float64(sum) / float64(len(nbrs[v])), i})
	}
	slices.SortStableFunc(sortable, func(a, b entry) int {
		if c := cmp.Compare(a.bc, b.bc); c != 0 {
			return c
		}
		return cmp.Compare(a.idx, b.idx)
	})

	next := 0
	for i := range layer {
		if fixed[i] {
			continue
		}
		layer[i] = sortable[next].v
		next++
	}
	indexLayer(layer, pos)
}

// transpose swaps adjacent vertices whenever that lowers the crossings with
// both neighbouring ranks, repeating until a full pass makes no swap.
func (g *graph) transpose(layers [][]int, pos []int) {
	for range maxTransposes {
		improved := false
		for r, layer := range layers {
			for i := 0; i+1 < len(layer); i++ {
				u, v := layer[i], layer[i+1]
				var before, after int
				if r > 0 {
					before += pairCrossings(u, v, g.pred, pos)
					after += pairCrossings(v, u, g.pred, pos)
				}
				if r+1 < len(layers) {
					before += pairCrossings(u, v, g.succ, pos)
					after += pairCrossings(v, u, g.succ, pos)
				}
				if after < before {
					layer[i], layer[i+1] = v, u
					pos[u], pos[v] = i+1, i
					improved = true
				}
			}
		}
		if !improved {
			return
		}
	}
}

// pairCrossings counts the crossings between the edges of left and right
// towards one adjacent rank, assuming left is placed before right.
func pairCrossings(left, right int, nbrs [][]int, pos []int) int {
	crossings := 0
	for _, ln := range nbrs[left] {
		lp := pos[ln]
		for _, rn := range nbrs[right] {
			if lp > pos[rn] {
				crossings++
			}
		}
	}
	return crossings
}

// crossings sums the crossings between every pair of adjacent ranks.
func (g *graph) crossings(layers [][]int, pos []int) int {
	total := 0
	for r := 0; r+1 < len(layers); r++ {
		total += g.layerCrossings(layers[r], len(layers[r+1]), pos)
	}
	return total
}

// layerCrossings counts the crossings between a rank and the rank below it
// by counting inversions with a Fenwick tree. Two edges (u1,v1) and (u2,v2)
// cross exactly when pos(u1) < pos(u2) and pos(v1) > pos(v2).
func (g *graph) layerCrossings(upper []int, lowerLen int, pos []int) int {
	if len(upper) == 0 || lowerLen == 0 {
		return 0
	}

	type edge struct{ upper, lower int }
	edges := make([]edge, 0, len(upper)*2)
	for i, u := range upper {
		for _, v := range g.succ[u] {
			edges = append(edges, edge{i, pos[v]})
		}
	}
	if len(edges) < 2 {
		return 0
	}
	slices.SortFunc(edges, func(a, b edge) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, lowerLen+1)
	crossings, total := 0, 0
	for _, e := range edges {
		lessOrEqual := 0
		for q := e.lower + 1; q > 0; q -= q & (-q) {
			lessOrEqual += fenwick[q]
		}
		crossings += total - lessOrEqual

		total++
		for idx := e.lower + 1; idx < len(fenwick); idx += idx & (-idx) {
			fenwick[idx]++
		}
	}
	return crossings
}
