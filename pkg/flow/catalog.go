package flow

import (
	"encoding/json"
	"fmt"
	"strconv"

	perrors "github.com/matzehuels/procflow/pkg/errors"
)

// ElementType is a workflow element kind. The integer value is the persisted
// tag; [ElementType.String] returns the runtime string tag.
//
// Tag 7 is not assigned.
type ElementType int

const (
	SequenceFlow     ElementType = 1
	StartEvent       ElementType = 2
	EndEvent         ElementType = 3
	UserTask         ElementType = 4
	ServiceTask      ElementType = 5
	ExclusiveGateway ElementType = 6
	CallActivity     ElementType = 8
	ParallelGateway  ElementType = 9
	InclusiveGateway ElementType = 10
)

// Size is a width/height pair in layout units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether both dimensions are zero (unspecified).
func (s Size) IsZero() bool { return s.Width == 0 && s.Height == 0 }

// Spec is the catalog entry for an element type.
type Spec struct {
	Type ElementType
	Tag  string

	// ProducesNode is false for SequenceFlow, which is carried by edges.
	ProducesNode bool

	// DefaultSize is the footprint a node of this type gets unless overridden.
	DefaultSize Size

	// Anchors lists the connection points in render order.
	Anchors []Anchor

	// DefaultLabel is shown when the node carries no name. Exclusive and
	// inclusive gateways have none.
	DefaultLabel string

	// DefaultSource and DefaultTarget are used when a persisted edge names
	// no anchor on this node.
	DefaultSource string
	DefaultTarget string
}

var (
	eventSize   = Size{Width: 100, Height: 40}
	taskSize    = Size{Width: 140, Height: 60}
	gatewaySize = Size{Width: 50, Height: 50}
)

var catalog = map[ElementType]Spec{
	SequenceFlow: {
		Type: SequenceFlow,
		Tag:  "sequenceFlow",
	},
	StartEvent: {
		Type:          StartEvent,
		Tag:           "startEvent",
		ProducesNode:  true,
		DefaultSize:   eventSize,
		Anchors:       startEventAnchors,
		DefaultLabel:  "开始",
		DefaultSource: AnchorBottom,
	},
	EndEvent: {
		Type:          EndEvent,
		Tag:           "endEvent",
		ProducesNode:  true,
		DefaultSize:   eventSize,
		Anchors:       endEventAnchors,
		DefaultLabel:  "结束",
		DefaultTarget: AnchorTop,
	},
	UserTask:         activity(UserTask, "userTask", "用户任务", taskSize),
	ServiceTask:      activity(ServiceTask, "serviceTask", "自动任务", taskSize),
	CallActivity:     activity(CallActivity, "callActivity", "子流程", taskSize),
	ExclusiveGateway: activity(ExclusiveGateway, "exclusiveGateway", "", gatewaySize),
	ParallelGateway:  activity(ParallelGateway, "parallelGateway", "并行网关", gatewaySize),
	InclusiveGateway: activity(InclusiveGateway, "inclusiveGateway", "", gatewaySize),
}

func activity(t ElementType, tag, label string, size Size) Spec {
	return Spec{
		Type:          t,
		Tag:           tag,
		ProducesNode:  true,
		DefaultSize:   size,
		Anchors:       mixedAnchors,
		DefaultLabel:  label,
		DefaultSource: AnchorBottomSource,
		DefaultTarget: AnchorTop,
	}
}

// ElementTypes returns every catalogued type in tag order.
func ElementTypes() []ElementType {
	return []ElementType{
		SequenceFlow, StartEvent, EndEvent, UserTask, ServiceTask,
		ExclusiveGateway, CallActivity, ParallelGateway, InclusiveGateway,
	}
}

// NodeTypes returns the types that produce graph nodes, in tag order.
func NodeTypes() []ElementType {
	var out []ElementType
	for _, t := range ElementTypes() {
		if catalog[t].ProducesNode {
			out = append(out, t)
		}
	}
	return out
}

// Lookup returns the catalog entry for t. A miss is reported with
// [perrors.ErrCodeUnknownElementType] and signals corrupted input.
func Lookup(t ElementType) (Spec, error) {
	s, ok := catalog[t]
	if !ok {
		return Spec{}, perrors.Wrap(perrors.ErrCodeUnknownElementType, ErrUnknownElementType, "element type tag %d", int(t))
	}
	return s, nil
}

// Valid reports whether t is a catalogued type.
func (t ElementType) Valid() bool {
	_, ok := catalog[t]
	return ok
}

// ProducesNode reports whether t is a node-producing type.
func (t ElementType) ProducesNode() bool { return catalog[t].ProducesNode }

// String returns the runtime string tag, or "unknown(N)" for uncatalogued values.
func (t ElementType) String() string {
	if s, ok := catalog[t]; ok {
		return s.Tag
	}
	return "unknown(" + strconv.Itoa(int(t)) + ")"
}

// ParseElementType resolves a runtime string tag.
func ParseElementType(tag string) (ElementType, error) {
	for t, s := range catalog {
		if s.Tag == tag {
			return t, nil
		}
	}
	return 0, perrors.Wrap(perrors.ErrCodeUnknownElementType, ErrUnknownElementType, "element type %q", tag)
}

// ElementTypeFromTag resolves a persisted integer tag.
func ElementTypeFromTag(tag int) (ElementType, error) {
	t := ElementType(tag)
	if _, err := Lookup(t); err != nil {
		return 0, err
	}
	return t, nil
}

// MarshalJSON encodes the persisted integer tag.
func (t ElementType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(t))), nil
}

// UnmarshalJSON accepts either the integer tag or the string tag.
func (t *ElementType) UnmarshalJSON(data []byte) error {
	var tag int
	if err := json.Unmarshal(data, &tag); err == nil {
		v, err := ElementTypeFromTag(tag)
		if err != nil {
			return err
		}
		*t = v
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("element type must be an integer or string tag: %w", err)
	}
	v, err := ParseElementType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
