package flow

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
)

// Severity ranks a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding. ElementID is empty for graph-wide
// findings.
type Issue struct {
	ElementID string   `json:"element_id,omitempty"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
}

func (i Issue) String() string {
	if i.ElementID == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.ElementID, i.Message)
}

// Validate checks the flow for structural problems a process author would
// want to see before running it:
//
//   - the flow has no start event
//   - a start event has no outgoing sequence flow
//   - an end event has no incoming sequence flow
//   - a task or gateway cannot be reached from any start event
//   - a sequence-flow condition does not compile
//
// Conditions may be written bare (amount > 100) or wrapped as ${amount > 100}.
// Issues are returned in node order followed by edge order.
func Validate(g *Graph) []Issue {
	var issues []Issue
	reached := reachableFromStart(g)

	starts := 0
	for _, n := range g.Nodes() {
		switch n.Type {
		case StartEvent:
			starts++
			if len(g.Outgoing(n.ID)) == 0 {
				issues = append(issues, Issue{n.ID, SeverityError, "start event has no outgoing sequence flow"})
			}
		case EndEvent:
			if len(g.Incoming(n.ID)) == 0 {
				issues = append(issues, Issue{n.ID, SeverityError, "end event has no incoming sequence flow"})
			}
		default:
			if !reached[n.ID] {
				issues = append(issues, Issue{n.ID, SeverityWarning, "not reachable from a start event"})
			}
		}
	}
	if starts == 0 && g.NodeCount() > 0 {
		issues = append(issues, Issue{"", SeverityError, "flow has no start event"})
	}

	for _, e := range g.Edges() {
		if err := CheckCondition(e.Label); err != nil {
			issues = append(issues, Issue{e.ID, SeverityError, err.Error()})
		}
	}
	return issues
}

// CheckCondition compiles a sequence-flow condition. An empty condition is
// valid. Variables are resolved at run time, so undefined names are allowed.
func CheckCondition(cond string) error {
	src := strings.TrimSpace(cond)
	if strings.HasPrefix(src, "${") && strings.HasSuffix(src, "}") {
		src = strings.TrimSpace(src[2 : len(src)-1])
	}
	if src == "" {
		return nil
	}
	if _, err := expr.Compile(src, expr.AllowUndefinedVariables()); err != nil {
		return fmt.Errorf("invalid condition %q: %w", cond, err)
	}
	return nil
}

// MarkErrors sets data.hasError on every node with an error-severity issue
// and clears it on all others. It returns the number of flagged nodes.
func MarkErrors(g *Graph, issues []Issue) int {
	flagged := make(map[string]bool)
	for _, is := range issues {
		if is.Severity == SeverityError && is.ElementID != "" {
			flagged[is.ElementID] = true
		}
	}
	count := 0
	for _, n := range g.Nodes() {
		v := flagged[n.ID]
		if v {
			count++
		}
		_ = g.UpdateNodeData(n.ID, DataPatch{HasError: &v})
	}
	return count
}

func reachableFromStart(g *Graph) map[string]bool {
	seen := make(map[string]bool)
	var queue []string
	for _, n := range g.Nodes() {
		if n.Type == StartEvent {
			seen[n.ID] = true
			queue = append(queue, n.ID)
		}
	}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, e := range g.Outgoing(curr) {
			if !seen[e.Target.Node] {
				seen[e.Target.Node] = true
				queue = append(queue, e.Target.Node)
			}
		}
	}
	return seen
}
