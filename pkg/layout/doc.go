// Package layout computes layered drawings of process flows.
//
// # Overview
//
// [Layout] takes node footprints and edge endpoints and returns top-left
// positions for every node. Edges are passed through unchanged; routing is
// left to the renderer. The engine runs the classic Sugiyama phases:
//
//  1. Cycle breaking: back edges found by depth-first search are reversed
//     so a gateway looping back to an earlier task is tolerated.
//  2. Ranking: longest-path layering (Kahn's algorithm), with sources pulled
//     down next to their nearest child.
//  3. Normalization: edges spanning several ranks are split by dummy nodes.
//  4. Ordering: barycenter sweeps plus adjacent transposition, keeping the
//     ordering with the fewest crossings.
//  5. Coordinates: order-preserving least-squares placement along the cross
//     axis, cumulative rank extents along the rank axis.
//
// # Spacing
//
// Separations grow with density. [ComputeSpacing] scales the base node,
// rank and edge separations (80, 150, 20) by
//
//	multiplier = clamp(1 + edges/max(nodes, 1) * 0.3, 1, 2)
//
// and rounds the results. [SmartLayout] additionally chooses a default node
// footprint with [SelectPreset].
//
// # Determinism
//
// Input positions are never read, and ties are broken by input order, so
// the result depends only on the node list, the edge list and the
// direction. Re-running a layout on its own output yields the same
// positions.
//
// # Subgraphs
//
// [WithSubset] restricts a pass to some nodes. The laid-out subgraph keeps
// the top-left corner of its previous bounding box and every other node is
// returned untouched.
package layout
