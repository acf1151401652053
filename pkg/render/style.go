package render

// Style is the resolved paint of a node.
type Style struct {
	Fill        string
	Border      string
	BorderWidth float64
	Text        string
	Shadow      string // id of an SVG filter defined by [RenderDefs]
}

// Shadow filter ids.
const (
	ShadowDefault  = "shadow-default"
	ShadowSelected = "shadow-selected"
	ShadowError    = "shadow-error"
)

const (
	colorSelected = "#1677ff"
	colorError    = "#ff4d4f"
	colorText     = "#1f1f1f"
	colorMuted    = "#8c8c8c"
	colorEdge     = "#8c8c8c"
	colorEdgeHot  = "#1677ff"
	colorLabelBg  = "#fffbe6"
	colorLabelFg  = "#ad6800"
	colorDelete   = "#ff4d4f"
)

// palette is the default paint of one element kind.
type palette struct {
	fill, border string
	borderWidth  float64
}

// resolveStyle applies the fixed precedence error > selected > default to
// both border color and shadow. hasError only counts for kinds with an
// error variant.
func resolveStyle(p palette, errorVariant, hasError bool, st State) Style {
	s := Style{
		Fill:        p.fill,
		Border:      p.border,
		BorderWidth: p.borderWidth,
		Text:        colorText,
		Shadow:      ShadowDefault,
	}
	switch {
	case errorVariant && hasError:
		s.Border, s.Shadow = colorError, ShadowError
		s.BorderWidth = max(s.BorderWidth, 2)
	case st.Selected:
		s.Border, s.Shadow = colorSelected, ShadowSelected
		s.BorderWidth = max(s.BorderWidth, 2)
	}
	return s
}
