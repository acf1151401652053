// Package canvas hosts a flow graph for interactive editing.
//
// A [Controller] exclusively owns one [flow.Graph]. Renderers and hosts
// report pointer and keyboard input as [Event] values; the controller keeps
// hover and selection in an ephemeral map keyed by element ID, never in the
// graph, and turns delete gestures into [Command] values that are applied
// to the graph in order.
//
// Every element moves between idle and hovered on enter and leave, and
// independently between unselected and selected on click. The delete
// control is only offered while an element is hovered and the controller's
// [DeletePolicy] allows it. Repeated delete gestures for the same element
// collapse into one command, and graph removal is idempotent, so a
// double click never deletes twice.
//
// A Controller is not safe for concurrent use; hosts serialize events the
// way a UI event loop does.
package canvas

import (
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/layout"
	"github.com/matzehuels/procflow/pkg/render"
)

// EventKind names a user gesture.
type EventKind string

const (
	EventEnter     EventKind = "enter"      // pointer entered the element
	EventLeave     EventKind = "leave"      // pointer left the element
	EventClick     EventKind = "click"      // element clicked
	EventDelete    EventKind = "delete"     // delete control activated
	EventPaneClick EventKind = "pane-click" // empty canvas clicked
	EventKeyDelete EventKind = "key-delete" // Delete key with a selection
)

// Event is a gesture reported by a renderer or host.
type Event struct {
	Kind EventKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

// CommandKind names a model mutation.
type CommandKind string

const (
	CommandDelete   CommandKind = "delete"
	CommandUpdate   CommandKind = "update"
	CommandRelayout CommandKind = "relayout"
)

// Command is a queued mutation of the graph.
type Command struct {
	Kind  CommandKind
	ID    string
	Patch flow.DataPatch
}

// DeletePolicy reports whether a node offers the delete control. Edges are
// always deletable.
type DeletePolicy func(n flow.Node) bool

// DefaultDeletePolicy lets every node be deleted except start events, which
// anchor the flow.
func DefaultDeletePolicy(n flow.Node) bool { return n.Type != flow.StartEvent }

type elementState struct {
	hovered  bool
	selected bool
}

// Controller owns a graph together with its interaction state.
type Controller struct {
	graph   *flow.Graph
	ui      map[string]*elementState
	pending []Command
	policy  DeletePolicy
	logger  *log.Logger
	dir     layout.Direction
	smart   bool
}

// Option configures a [Controller].
type Option func(*Controller)

// WithDeletePolicy replaces [DefaultDeletePolicy].
func WithDeletePolicy(p DeletePolicy) Option {
	return func(c *Controller) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLayout sets the direction and footprint mode used by relayout.
func WithLayout(dir layout.Direction, smart bool) Option {
	return func(c *Controller) { c.dir, c.smart = dir, smart }
}

// New returns a controller owning g.
func New(g *flow.Graph, opts ...Option) *Controller {
	c := &Controller{
		graph:  g,
		ui:     make(map[string]*elementState),
		policy: DefaultDeletePolicy,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		dir:    layout.TopBottom,
		smart:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Graph returns the owned graph. Callers must not mutate it directly.
func (c *Controller) Graph() *flow.Graph { return c.graph }

// Direction returns the relayout direction.
func (c *Controller) Direction() layout.Direction { return c.dir }

// SetDirection changes the relayout direction.
func (c *Controller) SetDirection(d layout.Direction) { c.dir = d }

func (c *Controller) state(id string) *elementState {
	s, ok := c.ui[id]
	if !ok {
		s = &elementState{}
		c.ui[id] = s
	}
	return s
}

// Handle updates interaction state for one event. Events naming elements
// that no longer exist are ignored, as they come from stale UI state.
// Delete gestures only queue commands; see [Controller.Apply].
func (c *Controller) Handle(ev Event) error {
	switch ev.Kind {
	case EventPaneClick:
		c.clearSelection()
		return nil
	case EventKeyDelete:
		for _, id := range c.Selection() {
			if c.deletable(id) {
				c.Submit(Command{Kind: CommandDelete, ID: id})
			}
		}
		return nil
	case EventEnter, EventLeave, EventClick, EventDelete:
	default:
		return perrors.New(perrors.ErrCodeInvalidInput, "unknown event kind %q", ev.Kind)
	}

	if !c.graph.Contains(ev.ID) {
		c.logger.Debug("ignoring event for missing element", "kind", ev.Kind, "id", ev.ID)
		return nil
	}

	switch ev.Kind {
	case EventEnter:
		c.state(ev.ID).hovered = true
	case EventLeave:
		c.state(ev.ID).hovered = false
	case EventClick:
		selected := c.state(ev.ID).selected
		c.clearSelection()
		c.state(ev.ID).selected = !selected
	case EventDelete:
		// The delete control only exists while hovered and stops
		// propagation: selection is untouched.
		if s, ok := c.ui[ev.ID]; !ok || !s.hovered {
			c.logger.Debug("ignoring delete for element that is not hovered", "id", ev.ID)
			return nil
		}
		if !c.deletable(ev.ID) {
			c.logger.Warn("delete not offered for element", "id", ev.ID)
			return nil
		}
		c.Submit(Command{Kind: CommandDelete, ID: ev.ID})
	}
	return nil
}

// Dispatch handles ev and applies any commands it queued.
func (c *Controller) Dispatch(ev Event) (ApplyResult, error) {
	if err := c.Handle(ev); err != nil {
		return ApplyResult{}, err
	}
	return c.Apply()
}

func (c *Controller) clearSelection() {
	for _, s := range c.ui {
		s.selected = false
	}
}

func (c *Controller) deletable(id string) bool {
	if n, ok := c.graph.Node(id); ok {
		return c.policy(n)
	}
	_, ok := c.graph.Edge(id)
	return ok
}

// Submit queues a command. A delete for an element that already has one
// pending is dropped.
func (c *Controller) Submit(cmd Command) {
	if cmd.Kind == CommandDelete && slices.ContainsFunc(c.pending, func(p Command) bool {
		return p.Kind == CommandDelete && p.ID == cmd.ID
	}) {
		return
	}
	c.pending = append(c.pending, cmd)
}

// Pending returns a copy of the queued commands.
func (c *Controller) Pending() []Command { return slices.Clone(c.pending) }

// ApplyResult summarizes one [Controller.Apply].
type ApplyResult struct {
	Deleted  []string `json:"deleted,omitempty"`
	Updated  []string `json:"updated,omitempty"`
	Moved    int      `json:"moved,omitempty"`
	Dropped  int      `json:"dropped,omitempty"`
	Commands int      `json:"commands"`
}

// Apply drains the command queue in order. Deleting an element that is
// already gone is a no-op. Interaction state of removed elements, including
// edges removed by a cascading node delete, is discarded. The first failing
// command stops the drain; later commands stay queued.
func (c *Controller) Apply() (ApplyResult, error) {
	var res ApplyResult
	for len(c.pending) > 0 {
		cmd := c.pending[0]
		switch cmd.Kind {
		case CommandDelete:
			if c.graph.RemoveNode(cmd.ID) || c.graph.RemoveEdge(cmd.ID) {
				res.Deleted = append(res.Deleted, cmd.ID)
				c.logger.Debug("deleted element", "id", cmd.ID)
			}
		case CommandUpdate:
			if err := c.graph.UpdateNodeData(cmd.ID, cmd.Patch); err != nil {
				return res, err
			}
			res.Updated = append(res.Updated, cmd.ID)
		case CommandRelayout:
			moved, err := c.Relayout()
			if err != nil {
				return res, err
			}
			res.Moved += moved
		default:
			return res, perrors.New(perrors.ErrCodeInvalidInput, "unknown command kind %q", cmd.Kind)
		}
		c.pending = c.pending[1:]
		res.Commands++
	}
	c.pending = nil
	if n := c.graph.Repair(); n > 0 {
		res.Dropped = n
	}
	c.prune()
	return res, nil
}

// prune forgets interaction state for elements no longer in the graph.
func (c *Controller) prune() {
	for id := range c.ui {
		if !c.graph.Contains(id) {
			delete(c.ui, id)
		}
	}
}

// State returns the render state of an element.
func (c *Controller) State(id string) render.State {
	st := render.State{Deletable: c.deletable(id)}
	if s, ok := c.ui[id]; ok {
		st.Hovered, st.Selected = s.hovered, s.selected
	}
	return st
}

// Selection returns the selected element IDs in sorted order.
func (c *Controller) Selection() []string {
	var out []string
	for _, id := range slices.Sorted(maps.Keys(c.ui)) {
		if c.ui[id].selected {
			out = append(out, id)
		}
	}
	return out
}

// Hovered returns the hovered element IDs in sorted order.
func (c *Controller) Hovered() []string {
	var out []string
	for _, id := range slices.Sorted(maps.Keys(c.ui)) {
		if c.ui[id].hovered {
			out = append(out, id)
		}
	}
	return out
}

// Load replaces the graph contents and forgets interaction state for
// elements that disappeared. It returns the number of dangling edges
// dropped.
func (c *Controller) Load(nodes []flow.Node, edges []flow.Edge) (int, error) {
	dropped, err := c.graph.Load(nodes, edges)
	if err != nil {
		return 0, err
	}
	c.pending = nil
	c.prune()
	return dropped, nil
}

// Relayout recomputes every node position and returns how many nodes moved.
func (c *Controller) Relayout() (int, error) {
	return c.relayout(nil)
}

// RelayoutSelection lays out only the selected nodes, keeping the corner of
// their bounding box in place.
func (c *Controller) RelayoutSelection() (int, error) {
	var ids []string
	for _, id := range c.Selection() {
		if _, ok := c.graph.Node(id); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return c.relayout(ids)
}

func (c *Controller) relayout(subset []string) (int, error) {
	req := flow.LayoutRequest(c.graph, c.dir, c.smart)
	req.Subset = subset
	res, err := layout.Run(req, layout.WithLogger(c.logger))
	if err != nil {
		return 0, err
	}
	if len(subset) > 0 {
		res.Nodes = slices.DeleteFunc(res.Nodes, func(n layout.Node) bool { return !slices.Contains(subset, n.ID) })
	}
	return c.graph.ApplyLayout(res), nil
}

// Render draws the graph with the controller's interaction state.
func (c *Controller) Render(opts ...render.SVGOption) ([]byte, error) {
	opts = append([]render.SVGOption{render.WithStates(c.State), render.WithLogger(c.logger)}, opts...)
	return render.RenderSVG(c.graph, opts...)
}
