package layout

import "math"

// Base separations, in layout units, before density scaling.
const (
	BaseNodeSep = 80
	BaseRankSep = 150
	BaseEdgeSep = 20

	maxMultiplier = 2.0
)

// Spacing holds the separations fed to the layering passes.
type Spacing struct {
	NodeSep    float64 `json:"node_sep"`
	RankSep    float64 `json:"rank_sep"`
	EdgeSep    float64 `json:"edge_sep"`
	Multiplier float64 `json:"multiplier"`
}

// ComputeSpacing scales the base separations by the complexity multiplier
// of a graph with the given counts. The multiplier never decreases as
// edgeCount grows and is capped at 2.
func ComputeSpacing(nodeCount, edgeCount int) Spacing {
	complexity := float64(edgeCount) / float64(max(nodeCount, 1))
	m := min(max(1+complexity*0.3, 1), maxMultiplier)
	return Spacing{
		NodeSep:    math.Round(BaseNodeSep * m),
		RankSep:    math.Round(BaseRankSep * m),
		EdgeSep:    math.Round(BaseEdgeSep * m),
		Multiplier: m,
	}
}

// Preset is a default node footprint used for nodes without an explicit size.
type Preset struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

var (
	PresetCompact = Preset{Name: "compact", Width: 120, Height: 70}
	PresetMedium  = Preset{Name: "medium", Width: 140, Height: 80}
	PresetLarge   = Preset{Name: "large", Width: 160, Height: 100}
)

// SelectPreset picks the footprint tier for a graph: large above 15 nodes
// or 20 edges, compact below 5 nodes and 5 edges, medium otherwise.
func SelectPreset(nodeCount, edgeCount int) Preset {
	switch {
	case nodeCount > 15 || edgeCount > 20:
		return PresetLarge
	case nodeCount < 5 && edgeCount < 5:
		return PresetCompact
	default:
		return PresetMedium
	}
}
