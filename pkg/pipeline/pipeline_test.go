package pipeline

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/procflow/pkg/cache"
	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/layout"
	"github.com/matzehuels/procflow/pkg/observability"
)

const sampleDoc = `{
  "nodes": [
    {"id": "s", "type": 2, "position": {"x": 0, "y": 0}, "data": {"name": "Start"}},
    {"id": "u", "type": "userTask", "position": {"x": 0, "y": 0}, "data": {"name": "Approve"}},
    {"id": "g", "type": 6, "position": {"x": 0, "y": 0}, "data": {}},
    {"id": "e", "type": 3, "position": {"x": 0, "y": 0}, "data": {"name": "Done"}}
  ],
  "edges": [
    {"id": "e1", "source": "s", "target": "u"},
    {"id": "e2", "source": "u", "target": "g"},
    {"id": "e3", "source": "g", "target": "e", "data": {"conditionsequenceflow": "${amount > 100}"}}
  ]
}`

// A lone end event has no incoming flow and the flow has no start.
const brokenDoc = `{"nodes": [{"id": "e", "type": 3, "data": {}}], "edges": []}`

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"dot", false},
		{"json", false},
		{"pdf", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "dot"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}
	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateEngine(t *testing.T) {
	tests := []struct {
		engine  string
		wantErr bool
	}{
		{"native", false},
		{"graphviz", false},
		{"dagre", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateEngine(tt.engine)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateEngine(%q) error = %v, wantErr %v", tt.engine, err, tt.wantErr)
		}
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Direction: "lr"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if opts.Direction != layout.LeftRight {
		t.Errorf("Direction = %q, want LR", opts.Direction)
	}
	if opts.Engine != EngineNative {
		t.Errorf("Engine = %q, want native", opts.Engine)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Logger == nil {
		t.Error("Logger should be set")
	}

	// Idempotent
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call: %v", err)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code perrors.Code
	}{
		{"bad direction", Options{Direction: "up"}, perrors.ErrCodeInvalidDirection},
		{"negative width", Options{NodeWidth: -1}, perrors.ErrCodeInvalidInput},
		{"bad engine", Options{Engine: "dagre"}, perrors.ErrCodeInvalidInput},
		{"bad format", Options{Formats: []string{"pdf"}}, perrors.ErrCodeInvalidFormat},
		{"native png", Options{Formats: []string{"png"}}, perrors.ErrCodeUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !perrors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Execute(context.Background(), strings.NewReader(sampleDoc), "sample", Options{
		Relayout: true,
		Formats:  []string{FormatSVG, FormatDOT, FormatJSON},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if res.Stats.NodeCount != 4 || res.Stats.EdgeCount != 3 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if len(res.Issues) != 0 {
		t.Errorf("issues = %v, want none", res.Issues)
	}
	if res.Layout == nil || res.Layout.Ranks != 4 {
		t.Errorf("layout = %+v, want 4 ranks", res.Layout)
	}
	if res.FlowHash == "" {
		t.Error("FlowHash is empty")
	}

	s, _ := res.Graph.Node("s")
	u, _ := res.Graph.Node("u")
	e, _ := res.Graph.Node("e")
	if !(s.Position.Y < u.Position.Y && u.Position.Y < e.Position.Y) {
		t.Errorf("positions not top to bottom: s=%v u=%v e=%v", s.Position, u.Position, e.Position)
	}

	if svg := string(res.Artifacts[FormatSVG]); !strings.HasPrefix(svg, "<svg") {
		t.Errorf("svg artifact = %.40q", svg)
	}
	if dot := string(res.Artifacts[FormatDOT]); !strings.Contains(dot, "digraph flow") {
		t.Errorf("dot artifact = %.40q", dot)
	}
	if js := res.Artifacts[FormatJSON]; !bytes.Contains(js, []byte(`"conditionsequenceflow": "${amount > 100}"`)) {
		t.Errorf("json artifact missing condition:\n%s", js)
	}
}

func TestExecuteKeepsPositionsWithoutRelayout(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Execute(context.Background(), strings.NewReader(sampleDoc), "sample", Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Layout != nil {
		t.Error("Layout should be nil without Relayout")
	}
	for _, n := range res.Graph.Nodes() {
		if n.Position.X != 0 || n.Position.Y != 0 {
			t.Errorf("%s moved to %v", n.ID, n.Position)
		}
	}
}

func TestExecuteCachesLayoutAndArtifacts(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(c, nil, quietLogger())
	defer r.Close()

	ctx := context.Background()
	opts := Options{Relayout: true, Direction: layout.LeftRight}

	first, err := r.Execute(ctx, strings.NewReader(sampleDoc), "sample", opts)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if first.CacheInfo.LayoutHit || first.CacheInfo.RenderHit {
		t.Errorf("first run cache info = %+v, want misses", first.CacheInfo)
	}

	second, err := r.Execute(ctx, strings.NewReader(sampleDoc), "sample", opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if !second.CacheInfo.LayoutHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run cache info = %+v, want hits", second.CacheInfo)
	}
	if !bytes.Equal(first.Artifacts[FormatSVG], second.Artifacts[FormatSVG]) {
		t.Error("cached svg differs from rendered svg")
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, strings.NewReader(sampleDoc), "sample", opts)
	if err != nil {
		t.Fatalf("third Execute: %v", err)
	}
	if third.CacheInfo.LayoutHit || third.CacheInfo.RenderHit {
		t.Errorf("refresh run cache info = %+v, want misses", third.CacheInfo)
	}
}

func TestExecuteEmitsCacheHooks(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	rec := &recordingCacheHooks{}
	observability.SetCacheHooks(rec)

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(c, nil, quietLogger())
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := r.Execute(ctx, strings.NewReader(sampleDoc), "sample", Options{Relayout: true}); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}

	want := []string{"miss:layout", "set:layout", "miss:artifact", "set:artifact", "hit:layout", "hit:artifact"}
	if strings.Join(rec.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

func TestExecuteStrictFailsOnErrors(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Execute(context.Background(), strings.NewReader(brokenDoc), "broken", Options{Strict: true})
	if !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
	if res == nil || len(res.Issues) == 0 {
		t.Error("strict failure should still report issues")
	}
}

func TestExecuteMarkErrors(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Execute(context.Background(), strings.NewReader(brokenDoc), "broken", Options{MarkErrors: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	e, _ := res.Graph.Node("e")
	if !e.Data.HasError {
		t.Error("end event should be marked in error")
	}
	if !bytes.Contains(res.Artifacts[FormatSVG], []byte(`class="node node-endEvent error"`)) {
		t.Error("svg should carry the error class")
	}
}

func TestExecuteRejectsInvalidDocument(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	_, err := r.Execute(context.Background(), strings.NewReader(`{"nodes": [{"type": 2}]}`), "bad", Options{})
	if !perrors.Is(err, perrors.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	if _, _, err := r.LoadFile(context.Background(), "does-not-exist.json"); err == nil {
		t.Error("expected error for missing file")
	}
}

type recordingCacheHooks struct {
	events []string
}

func (h *recordingCacheHooks) OnCacheHit(_ context.Context, keyType string) {
	h.events = append(h.events, "hit:"+keyType)
}

func (h *recordingCacheHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.events = append(h.events, "miss:"+keyType)
}

func (h *recordingCacheHooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	h.events = append(h.events, "set:"+keyType)
}
