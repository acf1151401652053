package layout

import "math"

const refinePasses = 8

// dummyWeight makes long edges straighter than short ones by pulling their
// dummy chains harder towards the barycenter of their neighbours.
const dummyWeight = 2.0

// place assigns center coordinates to every real vertex, indexed like the
// scope order, as {x, y} in the requested direction.
func (g *graph) place(layers [][]int, sp Spacing, dir Direction) [][2]float64 {
	cross := g.crossCoords(layers, sp)
	along, span := g.rankCoords(layers, sp)
	if dir.reversed() {
		for r := range along {
			along[r] = span - along[r]
		}
	}

	centers := make([][2]float64, g.real)
	for v := range g.real {
		c, a := cross[v], along[g.rank[v]]
		if dir.horizontal() {
			centers[v] = [2]float64{a, c}
		} else {
			centers[v] = [2]float64{c, a}
		}
	}
	return centers
}

// halfGap is the share of the separation each vertex contributes on either
// side: half the node separation for real vertices, half the edge
// separation for dummies.
func (g *graph) halfGap(v int, sp Spacing) float64 {
	if g.isDummy(v) {
		return sp.EdgeSep / 2
	}
	return sp.NodeSep / 2
}

// minSep is the minimum center distance between adjacent vertices a and b.
func (g *graph) minSep(a, b int, sp Spacing) float64 {
	return g.cross[a]/2 + g.halfGap(a, sp) + g.halfGap(b, sp) + g.cross[b]/2
}

// crossCoords packs every rank to the left and then refines each rank
// towards its neighbours' mean coordinate, alternating parents and
// children, while keeping order and minimum separation. The final pass
// uses both. Coordinates are shifted so the leftmost real node edge is 0.
func (g *graph) crossCoords(layers [][]int, sp Spacing) []float64 {
	x := make([]float64, g.size())
	for _, layer := range layers {
		for i := 1; i < len(layer); i++ {
			x[layer[i]] = x[layer[i-1]] + g.minSep(layer[i-1], layer[i], sp)
		}
	}

	for pass := range refinePasses + 1 {
		switch {
		case pass == refinePasses:
			for _, layer := range layers {
				g.align(layer, x, sp, g.pred, g.succ)
			}
		case pass%2 == 0:
			for r := 1; r < len(layers); r++ {
				g.align(layers[r], x, sp, g.pred)
			}
		default:
			for r := len(layers) - 2; r >= 0; r-- {
				g.align(layers[r], x, sp, g.succ)
			}
		}
	}

	left := math.Inf(1)
	for v := range g.real {
		left = min(left, x[v]-g.cross[v]/2)
	}
	if math.IsInf(left, 1) {
		return x
	}
	for v := range x {
		x[v] -= left
	}
	return x
}

// align moves one rank as close as possible, in the least-squares sense, to
// the mean coordinate of each vertex's neighbours, subject to the rank's
// order and minimum separations. Vertices without neighbours target their
// current coordinate.
//
// Writing x[i] = y[i] + offset[i], where offset accumulates the minimum
// separations, turns the separation constraints into y being
// non-decreasing, which pool-adjacent-violators solves exactly.
func (g *graph) align(layer []int, x []float64, sp Spacing, adj ...[][]int) {
	if len(layer) == 0 {
		return
	}
	offset := make([]float64, len(layer))
	for i := 1; i < len(layer); i++ {
		offset[i] = offset[i-1] + g.minSep(layer[i-1], layer[i], sp)
	}

	target := make([]float64, len(layer))
	weight := make([]float64, len(layer))
	for i, v := range layer {
		sum, n := 0.0, 0
		for _, nbrs := range adj {
			for _, w := range nbrs[v] {
				sum += x[w]
				n++
			}
		}
		desired := x[v]
		if n > 0 {
			desired = sum / float64(n)
		}
		target[i] = desired - offset[i]
		weight[i] = 1
		if g.isDummy(v) {
			weight[i] = dummyWeight
		}
	}

	y := isotonic(target, weight)
	for i, v := range layer {
		x[v] = y[i] + offset[i]
	}
}

// isotonic returns the weighted least-squares non-decreasing fit of values
// using the pool-adjacent-violators algorithm.
func isotonic(values, weights []float64) []float64 {
	type block struct {
		sum, weight float64
		count       int
	}
	mean := func(b block) float64 { return b.sum / b.weight }

	stack := make([]block, 0, len(values))
	for i, v := range values {
		stack = append(stack, block{v * weights[i], weights[i], 1})
		for len(stack) > 1 && mean(stack[len(stack)-2]) > mean(stack[len(stack)-1]) {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			prev := &stack[len(stack)-1]
			prev.sum += top.sum
			prev.weight += top.weight
			prev.count += top.count
		}
	}

	out := make([]float64, 0, len(values))
	for _, b := range stack {
		m := mean(b)
		for range b.count {
			out = append(out, m)
		}
	}
	return out
}

// rankCoords returns the center coordinate of every rank along the rank
// axis and the total span. Each rank is as deep as its deepest real vertex
// and ranks are separated by RankSep.
func (g *graph) rankCoords(layers [][]int, sp Spacing) ([]float64, float64) {
	extent := make([]float64, len(layers))
	for r, layer := range layers {
		for _, v := range layer {
			extent[r] = max(extent[r], g.along[v])
		}
	}

	centers := make([]float64, len(layers))
	edge := 0.0
	for r := range layers {
		if r > 0 {
			edge += sp.RankSep
		}
		centers[r] = edge + extent[r]/2
		edge += extent[r]
	}
	return centers, edge
}
