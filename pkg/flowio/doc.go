// Package flowio reads and writes flows in their persisted JSON shape.
//
// # JSON Format
//
// A flow document has two top-level arrays:
//
//	{
//	  "nodes": [
//	    {"id": "s", "type": 2, "position": {"x": 0, "y": 0}, "data": {"name": "Start"}},
//	    {"id": "u", "type": "userTask", "data": {"properties": {"name": "Approve"}}}
//	  ],
//	  "edges": [
//	    {"id": "e1", "source": "s", "target": "u",
//	     "data": {"conditionsequenceflow": "${amount > 100}"}}
//	  ]
//	}
//
// # Node Fields
//
// Required:
//   - id: unique string identifier
//   - type: persisted integer tag (1-10, 7 unassigned) or runtime string tag
//
// Optional:
//   - position: top-left corner, defaults to the origin
//   - width, height: size override, defaults to the catalog size
//   - data.name, data.properties, data.hasError
//
// # Edge Fields
//
// source and target are required. sourceHandle and targetHandle name the
// anchors; when omitted the node type's default anchor is used. The
// condition text travels as data.conditionsequenceflow, not as a label.
//
// # Validation
//
// Every document is checked against an embedded JSON Schema before it is
// decoded, so structural problems are reported with their JSON pointer:
//
//	f, err := flowio.Decode(r)
//	if errors.Is(err, errors.ErrCodeInvalidFormat) {
//	    // err lists every violation
//	}
//
// Semantic problems (unknown anchors, duplicate IDs) are reported by the
// graph model when the document is loaded with [ReadJSON] or [ToGraph].
// Edges referencing missing nodes are dropped and counted, not rejected.
package flowio
