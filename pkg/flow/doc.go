// Package flow provides the canonical data model for BPMN-like process graphs.
//
// # Overview
//
// A flow is a directed graph of workflow elements: events, tasks, gateways
// and call activities, connected by sequence flows. This package owns two
// things:
//
//   - The element type catalog ([ElementType], [Lookup]): the closed set of
//     element kinds with their persisted integer tags, runtime string tags,
//     default footprints and anchor sets.
//   - The graph model ([Graph]): identity, position and data payload for
//     every node, and anchor-level edges between them.
//
// # Anchors
//
// Edges attach to named anchors rather than to nodes. Each anchor has a side
// (left, right, top, bottom) and a role (source or target). A source anchor
// only connects to a target anchor:
//
//	StartEvent:  left, right, top, bottom              (all source)
//	EndEvent:    left, right, top, bottom              (all target)
//	Task/Gateway left(t), right(s), top(t), top-source(s),
//	             bottom(t), bottom-source(s)
//
// The top-source and bottom-source anchors share their position with the
// top and bottom targets so gateways can fan in and fan out on one side.
//
// # Basic Usage
//
//	g := flow.New()
//	start, _ := g.AddNode(flow.StartEvent)
//	task, _ := g.AddNode(flow.UserTask, flow.WithName("Approve"))
//	_, err := g.AddEdge(
//	    flow.Endpoint{Node: start.ID, Anchor: flow.AnchorBottom},
//	    flow.Endpoint{Node: task.ID, Anchor: flow.AnchorTop},
//	)
//
// # Deletion
//
// [Graph.RemoveNode] removes a node together with every incident edge.
// Removing an id that does not exist is a no-op, which makes delete
// requests from stale UI state safe to repeat.
//
// # Concurrency
//
// A Graph is owned by a single controller and is not safe for concurrent
// use without external synchronization.
package flow
