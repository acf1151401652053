package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/layout"
)

// Graphviz output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatDOT = "dot"
)

// DOTOptions configures [ToDOT].
type DOTOptions struct {
	// Direction sets rankdir. Empty means TB.
	Direction layout.Direction
	// Detailed adds the element type and properties to node labels.
	Detailed bool
}

// ToDOT converts a flow to Graphviz DOT with BPMN-like shapes: events as
// ellipses, gateways as diamonds, activities as rounded boxes. Nodes with
// data.hasError are outlined in red.
func ToDOT(g *flow.Graph, opts DOTOptions) string {
	dir := opts.Direction
	if dir == "" {
		dir = layout.TopBottom
	}

	var buf bytes.Buffer
	buf.WriteString("digraph flow {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", dir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontname=\"sans-serif\", fontsize=12, style=filled];\n")
	buf.WriteString("  edge [fontname=\"sans-serif\", fontsize=10, color=\"#8c8c8c\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(dotNodeAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		attrs := []string{fmt.Sprintf("id=%q", e.ID)}
		if e.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source.Node, e.Target.Node, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func dotNodeAttrs(n flow.Node, detailed bool) []string {
	label := dotLabel(n, detailed)
	var attrs []string
	p, err := For(n.Type)
	if err != nil {
		return []string{fmt.Sprintf("label=%q", n.Type.String()), "shape=box", "style=\"filled,dashed\"",
			"fillcolor=\"#fff1f0\"", fmt.Sprintf("color=%q", colorError)}
	}
	s := p.Style(n, State{})

	switch p.Shape() {
	case ShapePill:
		attrs = append(attrs, "shape=ellipse", fmt.Sprintf("label=%q", label))
	case ShapeDiamond:
		marker := ""
		if gw, ok := p.(gatewayRenderer); ok {
			marker = gw.marker
		}
		attrs = append(attrs, "shape=diamond", "width=0.6", "height=0.6", "fixedsize=true",
			fmt.Sprintf("label=%q", marker))
		if label != "" {
			attrs = append(attrs, fmt.Sprintf("xlabel=%q", label))
		}
	default:
		attrs = append(attrs, "shape=box", "style=\"rounded,filled\"", fmt.Sprintf("label=%q", label))
	}
	attrs = append(attrs,
		fmt.Sprintf("fillcolor=%q", s.Fill),
		fmt.Sprintf("color=%q", s.Border),
		fmt.Sprintf("penwidth=%s", strconv.FormatFloat(s.BorderWidth, 'f', -1, 64)),
	)
	return attrs
}

func dotLabel(n flow.Node, detailed bool) string {
	label := flow.DisplayName(n)
	if !detailed {
		return label
	}

	parts := []string{label, "type: " + n.Type.String()}
	for _, k := range slices.Sorted(maps.Keys(n.Data.Properties)) {
		if k == "name" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Data.Properties[k]))
	}
	return strings.Join(parts, "\n")
}

// RenderGraphviz lays out and draws a DOT graph with Graphviz. format is
// [FormatSVG] or [FormatPNG]; [FormatDOT] returns the input unchanged.
func RenderGraphviz(ctx context.Context, dot string, format string) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, perrors.New(perrors.ErrCodeUnsupported, "graphviz format %q not supported", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if format == FormatSVG {
		return normalizeViewBox(buf.Bytes()), nil
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one whose
// viewBox starts at the origin and whose size matches it.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
