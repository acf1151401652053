// Package render draws process flows.
//
// # Overview
//
// Every node-producing element type has a [NodeRenderer] that owns its
// shape, anchors, label and style variants. Renderers are kept in a
// registry keyed by [flow.ElementType]; the package panics at init if a
// node type has no renderer, so a new element kind cannot be added to the
// catalog without a matching profile.
//
//	r, err := render.For(flow.UserTask)
//	r.Render(&buf, node, render.State{Hovered: true, Deletable: true})
//
// # Style Precedence
//
// Border color and shadow follow the same fixed order:
//
//	error > selected > default
//
// Only kinds with an error variant (end events and activities) show the
// error style; other kinds ignore data.hasError.
//
// # Interaction
//
// Renderers never mutate the graph. The delete control is drawn only when
// [State] reports the element as hovered and deletable; it carries
// data-command="delete" and the element ID so a host can turn a click into
// a canvas delete command.
//
// # Edges
//
// Sequence flows are cubic bezier curves between anchor points, with
// control points pushed out along each anchor's side. A transparent hit
// path 20 units wide sits over the 1.5-unit visible line. The optional
// condition label is a pill at the curve midpoint; when both are shown the
// delete control moves right of the pill.
//
// # Output
//
// [RenderSVG] draws a whole graph as standalone SVG. [ToDOT] and
// [RenderGraphviz] produce Graphviz DOT, SVG or PNG with BPMN-like shapes.
package render
