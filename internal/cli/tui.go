package cli

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/procflow/pkg/canvas"
	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/flowio"
	"github.com/matzehuels/procflow/pkg/layout"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

const editHelp = "↑/↓ move  space select  esc clear  d delete  x delete selected  r relayout  R relayout selected  t direction  w save  q quit"

// =============================================================================
// EditModel - Interactive canvas
// =============================================================================

// editItem is one row of the element list.
type editItem struct {
	id     string
	kind   string // "node" or "edge"
	typ    string
	label  string
	detail string
	failed bool
}

// EditModel is the bubbletea model driving a [canvas.Controller] from the
// keyboard. The cursor plays the pointer: moving onto a row reports an
// enter event, moving off reports a leave.
type EditModel struct {
	ctrl   *canvas.Controller
	path   string
	items  []editItem
	Cursor int
	Offset int
	Height int

	Dirty  bool
	Saved  int
	status string
	err    bool
}

// NewEditModel creates an editor over ctrl. path is where "w" saves.
func NewEditModel(ctrl *canvas.Controller, path string) EditModel {
	m := EditModel{ctrl: ctrl, path: path, Height: 15}
	m.refresh()
	m.hover(0)
	return m
}

// Controller returns the edited canvas.
func (m EditModel) Controller() *canvas.Controller { return m.ctrl }

func (m EditModel) Init() tea.Cmd {
	return nil
}

func (m EditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.status, m.err = "", false
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.move(m.Cursor - 1)
		case "down", "j":
			m.move(m.Cursor + 1)
		case " ", "space", "enter":
			if id, ok := m.current(); ok {
				m.dispatch(canvas.Event{Kind: canvas.EventClick, ID: id})
			}
		case "esc":
			m.dispatch(canvas.Event{Kind: canvas.EventPaneClick})
		case "d":
			if id, ok := m.current(); ok {
				if !m.ctrl.State(id).Deletable {
					m.setStatus(true, "%s cannot be deleted", id)
					break
				}
				m.dispatch(canvas.Event{Kind: canvas.EventDelete, ID: id})
			}
		case "x", "delete", "backspace":
			m.dispatch(canvas.Event{Kind: canvas.EventKeyDelete})
		case "r":
			m.relayout(m.ctrl.Relayout)
		case "R":
			m.relayout(m.ctrl.RelayoutSelection)
		case "t":
			m.ctrl.SetDirection(nextDirection(m.ctrl.Direction()))
			m.relayout(m.ctrl.Relayout)
		case "w":
			m.save()
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
		m.scroll()
	}
	return m, nil
}

// current returns the element under the cursor.
func (m *EditModel) current() (string, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.items) {
		return "", false
	}
	return m.items[m.Cursor].id, true
}

// move leaves the current row and enters row i.
func (m *EditModel) move(i int) {
	if i < 0 || i >= len(m.items) || i == m.Cursor {
		return
	}
	if id, ok := m.current(); ok {
		_ = m.ctrl.Handle(canvas.Event{Kind: canvas.EventLeave, ID: id})
	}
	m.hover(i)
}

func (m *EditModel) hover(i int) {
	m.Cursor = i
	if id, ok := m.current(); ok {
		_ = m.ctrl.Handle(canvas.Event{Kind: canvas.EventEnter, ID: id})
	}
	m.scroll()
}

func (m *EditModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m *EditModel) dispatch(ev canvas.Event) {
	res, err := m.ctrl.Dispatch(ev)
	if err != nil {
		m.setStatus(true, "%v", err)
		return
	}
	if len(res.Deleted) == 0 {
		return
	}
	m.Dirty = true
	m.setStatus(false, "deleted %s", strings.Join(res.Deleted, ", "))
	m.refresh()
	if m.Cursor >= len(m.items) {
		m.Cursor = len(m.items) - 1
	}
	m.hover(max(m.Cursor, 0))
}

func (m *EditModel) relayout(fn func() (int, error)) {
	moved, err := fn()
	if err != nil {
		m.setStatus(true, "relayout: %v", err)
		return
	}
	if moved > 0 {
		m.Dirty = true
	}
	m.setStatus(false, "relayout %s moved %d node(s)", m.ctrl.Direction(), moved)
	m.refresh()
}

func (m *EditModel) save() {
	if m.path == "" {
		m.setStatus(true, "no output file")
		return
	}
	if err := flowio.ExportJSON(m.ctrl.Graph(), m.path); err != nil {
		m.setStatus(true, "save: %v", err)
		return
	}
	m.Dirty = false
	m.Saved++
	m.setStatus(false, "saved %s", m.path)
}

func (m *EditModel) setStatus(isErr bool, format string, args ...any) {
	m.status, m.err = fmt.Sprintf(format, args...), isErr
}

// refresh rebuilds the rows from the graph: nodes first, then edges.
func (m *EditModel) refresh() {
	g := m.ctrl.Graph()
	m.items = nil
	for _, n := range g.Nodes() {
		m.items = append(m.items, editItem{
			id:     n.ID,
			kind:   "node",
			typ:    n.Type.String(),
			label:  flow.DisplayName(n),
			detail: fmt.Sprintf("(%g, %g)", n.Position.X, n.Position.Y),
			failed: n.Data.HasError,
		})
	}
	for _, e := range g.Edges() {
		m.items = append(m.items, editItem{
			id:     e.ID,
			kind:   "edge",
			typ:    flow.SequenceFlow.String(),
			label:  e.Source.Node + " → " + e.Target.Node,
			detail: e.Label,
		})
	}
}

func nextDirection(d layout.Direction) layout.Direction {
	order := []layout.Direction{layout.TopBottom, layout.LeftRight, layout.BottomTop, layout.RightLeft}
	i := slices.Index(order, d)
	return order[(i+1)%len(order)]
}

func (m EditModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Edit Flow"))
	if m.path != "" {
		b.WriteString(" " + StyleDim.Render(m.path))
	}
	if m.Dirty {
		b.WriteString(" " + StyleWarning.Render("[modified]"))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(editHelp))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		b.WriteString(listDimStyle.Render("  (empty flow)"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.items))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		it := m.items[i]
		st := m.ctrl.State(it.id)

		marker := "  "
		if i == m.Cursor {
			marker = "▸ "
		}
		sel := " "
		if st.Selected {
			sel = "●"
		}
		del := ""
		if st.Hovered && st.Deletable {
			del = "×"
		}
		rows = append(rows, []string{marker + sel, it.id, it.typ, it.label, it.detail, del})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Type", "Label", "Detail", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.items) {
				return lipgloss.NewStyle()
			}
			it := m.items[idx]
			switch {
			case col == 5:
				return listErrorStyle
			case it.failed:
				return listErrorStyle
			case idx == m.Cursor:
				return listSelectedStyle
			case m.ctrl.State(it.id).Selected:
				return StyleHighlight
			case it.kind == "edge":
				return listDimStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n")

	g := m.ctrl.Graph()
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] %d nodes · %d edges · %s · %d selected",
		m.Cursor+1, len(m.items), g.NodeCount(), g.EdgeCount(), m.ctrl.Direction(), len(m.ctrl.Selection()))))
	b.WriteString("\n")
	if m.status != "" {
		if m.err {
			b.WriteString(styleIconError.Render(iconError) + " " + m.status)
		} else {
			b.WriteString(styleIconSuccess.Render(iconSuccess) + " " + m.status)
		}
		b.WriteString("\n")
	}
	return b.String()
}
