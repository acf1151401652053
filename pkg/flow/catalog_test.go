package flow

import (
	"encoding/json"
	"testing"

	perrors "github.com/matzehuels/procflow/pkg/errors"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		typ       ElementType
		tag       string
		node      bool
		anchorLen int
	}{
		{SequenceFlow, "sequenceFlow", false, 0},
		{StartEvent, "startEvent", true, 4},
		{EndEvent, "endEvent", true, 4},
		{UserTask, "userTask", true, 6},
		{ServiceTask, "serviceTask", true, 6},
		{ExclusiveGateway, "exclusiveGateway", true, 6},
		{CallActivity, "callActivity", true, 6},
		{ParallelGateway, "parallelGateway", true, 6},
		{InclusiveGateway, "inclusiveGateway", true, 6},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			spec, err := Lookup(tt.typ)
			if err != nil {
				t.Fatalf("Lookup(%d): %v", tt.typ, err)
			}
			if spec.Tag != tt.tag {
				t.Errorf("Tag = %q, want %q", spec.Tag, tt.tag)
			}
			if spec.ProducesNode != tt.node {
				t.Errorf("ProducesNode = %v, want %v", spec.ProducesNode, tt.node)
			}
			if len(spec.Anchors) != tt.anchorLen {
				t.Errorf("anchors = %d, want %d", len(spec.Anchors), tt.anchorLen)
			}
			if tt.node && spec.DefaultSize.IsZero() {
				t.Error("node type has no default size")
			}
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	for _, tag := range []int{0, 7, 11, -1} {
		_, err := Lookup(ElementType(tag))
		if !perrors.Is(err, perrors.ErrCodeUnknownElementType) {
			t.Errorf("Lookup(%d) error = %v, want UNKNOWN_ELEMENT_TYPE", tag, err)
		}
	}
}

func TestElementTypeFromTagReserved(t *testing.T) {
	if _, err := ElementTypeFromTag(7); err == nil {
		t.Error("tag 7 must stay unassigned")
	}
	got, err := ElementTypeFromTag(9)
	if err != nil || got != ParallelGateway {
		t.Errorf("ElementTypeFromTag(9) = %v, %v", got, err)
	}
}

func TestParseElementType(t *testing.T) {
	for _, typ := range ElementTypes() {
		got, err := ParseElementType(typ.String())
		if err != nil {
			t.Fatalf("ParseElementType(%q): %v", typ.String(), err)
		}
		if got != typ {
			t.Errorf("ParseElementType(%q) = %v, want %v", typ.String(), got, typ)
		}
	}
	if _, err := ParseElementType("boundaryEvent"); err == nil {
		t.Error("expected error for unknown tag")
	}
}

func TestNodeTypes(t *testing.T) {
	types := NodeTypes()
	if len(types) != 8 {
		t.Fatalf("NodeTypes() = %d types, want 8", len(types))
	}
	for _, typ := range types {
		if typ == SequenceFlow {
			t.Error("SequenceFlow must not produce a node")
		}
	}
}

func TestElementTypeJSON(t *testing.T) {
	data, err := json.Marshal(UserTask)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "4" {
		t.Errorf("Marshal = %s, want 4", data)
	}

	tests := []struct {
		in      string
		want    ElementType
		wantErr bool
	}{
		{`4`, UserTask, false},
		{`"inclusiveGateway"`, InclusiveGateway, false},
		{`7`, 0, true},
		{`"nope"`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		var got ElementType
		err := json.Unmarshal([]byte(tt.in), &got)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAnchorSets(t *testing.T) {
	count := func(typ ElementType, role Role) int {
		n := 0
		for _, a := range Anchors(typ) {
			if a.Role == role {
				n++
			}
		}
		return n
	}

	if count(StartEvent, RoleSource) != 4 || count(StartEvent, RoleTarget) != 0 {
		t.Error("start event must expose four source anchors only")
	}
	if count(EndEvent, RoleTarget) != 4 || count(EndEvent, RoleSource) != 0 {
		t.Error("end event must expose four target anchors only")
	}
	for _, typ := range []ElementType{UserTask, ServiceTask, CallActivity, ExclusiveGateway, ParallelGateway, InclusiveGateway} {
		if count(typ, RoleSource) != 3 || count(typ, RoleTarget) != 3 {
			t.Errorf("%s: want 3 source and 3 target anchors", typ)
		}
		top, _ := FindAnchor(typ, AnchorTop)
		topSrc, _ := FindAnchor(typ, AnchorTopSource)
		if top.Side != topSrc.Side {
			t.Errorf("%s: top-source must share the top side", typ)
		}
	}
}

func TestDefaultAnchor(t *testing.T) {
	if _, ok := DefaultAnchor(StartEvent, RoleTarget); ok {
		t.Error("start event has no target anchor")
	}
	a, ok := DefaultAnchor(UserTask, RoleSource)
	if !ok || a.ID != AnchorBottomSource {
		t.Errorf("DefaultAnchor(UserTask, source) = %v, %v", a, ok)
	}
}
