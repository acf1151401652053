package render

import (
	"math"

	"github.com/matzehuels/procflow/pkg/flow"
)

// Point is a position in layout units.
type Point struct{ X, Y float64 }

// Box is an axis-aligned rectangle given by its top-left corner and size.
type Box struct{ X, Y, W, H float64 }

// Center returns the middle of the box.
func (b Box) Center() Point { return Point{b.X + b.W/2, b.Y + b.H/2} }

// NodeBox returns the node's rectangle using its effective size.
func NodeBox(n flow.Node) Box {
	size := n.Dimensions()
	return Box{n.Position.X, n.Position.Y, size.Width, size.Height}
}

// SidePoint returns the middle of one side of b. Anchors sharing a side,
// such as top and top-source, share the point.
func SidePoint(b Box, side flow.Side) Point {
	c := b.Center()
	switch side {
	case flow.SideLeft:
		return Point{b.X, c.Y}
	case flow.SideRight:
		return Point{b.X + b.W, c.Y}
	case flow.SideTop:
		return Point{c.X, b.Y}
	case flow.SideBottom:
		return Point{c.X, b.Y + b.H}
	}
	return c
}

func sideNormal(side flow.Side) Point {
	switch side {
	case flow.SideLeft:
		return Point{-1, 0}
	case flow.SideRight:
		return Point{1, 0}
	case flow.SideTop:
		return Point{0, -1}
	case flow.SideBottom:
		return Point{0, 1}
	}
	return Point{}
}

const (
	minCurvature = 30.0
	maxCurvature = 150.0
)

// Curve is a cubic bezier from an anchor to another.
type Curve struct {
	From, C1, C2, To Point
}

// NewCurve bends the curve out of each anchor along its side normal by
// half the distance between the anchors, clamped to [30, 150].
func NewCurve(from Point, fromSide flow.Side, to Point, toSide flow.Side) Curve {
	d := math.Hypot(to.X-from.X, to.Y-from.Y)
	k := min(max(d/2, minCurvature), maxCurvature)
	n1, n2 := sideNormal(fromSide), sideNormal(toSide)
	return Curve{
		From: from,
		C1:   Point{from.X + n1.X*k, from.Y + n1.Y*k},
		C2:   Point{to.X + n2.X*k, to.Y + n2.Y*k},
		To:   to,
	}
}

// At evaluates the curve at t in [0, 1].
func (c Curve) At(t float64) Point {
	u := 1 - t
	a, b, cc, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	return Point{
		a*c.From.X + b*c.C1.X + cc*c.C2.X + d*c.To.X,
		a*c.From.Y + b*c.C1.Y + cc*c.C2.Y + d*c.To.Y,
	}
}

// Mid is the curve point at t = 0.5.
func (c Curve) Mid() Point { return c.At(0.5) }
