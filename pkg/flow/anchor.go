package flow

// Role is the direction an anchor participates in.
type Role int

const (
	RoleSource Role = iota
	RoleTarget
)

func (r Role) String() string {
	if r == RoleSource {
		return "source"
	}
	return "target"
}

// Side is the node boundary an anchor sits on.
type Side string

const (
	SideLeft   Side = "left"
	SideRight  Side = "right"
	SideTop    Side = "top"
	SideBottom Side = "bottom"
)

// Anchor ids.
const (
	AnchorLeft         = "left"
	AnchorRight        = "right"
	AnchorTop          = "top"
	AnchorBottom       = "bottom"
	AnchorTopSource    = "top-source"
	AnchorBottomSource = "bottom-source"
)

// Anchor is a named, typed connection point on a node boundary.
type Anchor struct {
	ID   string
	Side Side
	Role Role
}

var (
	startEventAnchors = []Anchor{
		{AnchorLeft, SideLeft, RoleSource},
		{AnchorRight, SideRight, RoleSource},
		{AnchorTop, SideTop, RoleSource},
		{AnchorBottom, SideBottom, RoleSource},
	}
	endEventAnchors = []Anchor{
		{AnchorLeft, SideLeft, RoleTarget},
		{AnchorRight, SideRight, RoleTarget},
		{AnchorTop, SideTop, RoleTarget},
		{AnchorBottom, SideBottom, RoleTarget},
	}
	mixedAnchors = []Anchor{
		{AnchorLeft, SideLeft, RoleTarget},
		{AnchorRight, SideRight, RoleSource},
		{AnchorTop, SideTop, RoleTarget},
		{AnchorTopSource, SideTop, RoleSource},
		{AnchorBottom, SideBottom, RoleTarget},
		{AnchorBottomSource, SideBottom, RoleSource},
	}
)

// FindAnchor returns the anchor named id on a node of type t.
func FindAnchor(t ElementType, id string) (Anchor, bool) {
	for _, a := range catalog[t].Anchors {
		if a.ID == id {
			return a, true
		}
	}
	return Anchor{}, false
}

// Anchors returns a copy of the anchor set for t. Edge-producing and
// unknown types have none.
func Anchors(t ElementType) []Anchor {
	src := catalog[t].Anchors
	out := make([]Anchor, len(src))
	copy(out, src)
	return out
}

// DefaultAnchor returns the anchor used for role when an edge names none.
// The boolean is false when type t has no anchor with that role.
func DefaultAnchor(t ElementType, role Role) (Anchor, bool) {
	spec := catalog[t]
	id := spec.DefaultTarget
	if role == RoleSource {
		id = spec.DefaultSource
	}
	if id == "" {
		return Anchor{}, false
	}
	return FindAnchor(t, id)
}
