package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/flowio"
)

const sampleFlow = `{
  "nodes": [
    {"id": "s", "type": 2, "position": {"x": 0, "y": 0}, "data": {"name": "Start"}},
    {"id": "u", "type": "userTask", "position": {"x": 0, "y": 0}, "data": {"name": "Approve"}},
    {"id": "e", "type": 3, "position": {"x": 0, "y": 0}, "data": {"name": "Done"}}
  ],
  "edges": [
    {"id": "e1", "source": "s", "target": "u"},
    {"id": "e2", "source": "u", "target": "e"}
  ]
}`

const brokenFlow = `{"nodes": [{"id": "e", "type": 3, "data": {}}], "edges": []}`

// testEnv points config and cache lookups at a temp dir and writes the
// given files there.
func testEnv(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func runCLI(args ...string) error {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func loadFlow(t *testing.T, path string) *flow.Graph {
	t.Helper()
	g, _, err := flowio.ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON(%s): %v", path, err)
	}
	return g
}

func TestLayoutCommand(t *testing.T) {
	dir := testEnv(t, map[string]string{"flow.json": sampleFlow})
	in := filepath.Join(dir, "flow.json")

	if err := runCLI("layout", in, "-d", "LR"); err != nil {
		t.Fatalf("layout: %v", err)
	}

	g := loadFlow(t, filepath.Join(dir, "flow.layout.json"))
	s, _ := g.Node("s")
	u, _ := g.Node("u")
	e, _ := g.Node("e")
	if !(s.Position.X < u.Position.X && u.Position.X < e.Position.X) {
		t.Errorf("LR layout not left to right: s=%v u=%v e=%v", s.Position, u.Position, e.Position)
	}

	// The second run is served from the file cache.
	entries, err := os.ReadDir(filepath.Join(dir, "cache", appName))
	if err != nil || len(entries) == 0 {
		t.Errorf("cache dir should hold entries: %v", err)
	}
	if err := runCLI("layout", in, "-d", "LR", "-o", filepath.Join(dir, "again.json")); err != nil {
		t.Fatalf("second layout: %v", err)
	}
}

func TestLayoutCommandUsesConfig(t *testing.T) {
	dir := testEnv(t, map[string]string{
		"flow.json":   sampleFlow,
		"config.toml": "[layout]\ndirection = \"lr\"\n\n[cache]\nbackend = \"none\"\n",
	})
	in := filepath.Join(dir, "flow.json")
	cfg := filepath.Join(dir, "config.toml")

	out := filepath.Join(dir, "lr.json")
	if err := runCLI("--config", cfg, "layout", in, "-o", out); err != nil {
		t.Fatalf("layout: %v", err)
	}
	g := loadFlow(t, out)
	s, _ := g.Node("s")
	e, _ := g.Node("e")
	if !(s.Position.X < e.Position.X) {
		t.Errorf("config direction LR not applied: s=%v e=%v", s.Position, e.Position)
	}

	// An explicit flag wins over the config file.
	out = filepath.Join(dir, "tb.json")
	if err := runCLI("--config", cfg, "layout", in, "-d", "TB", "-o", out); err != nil {
		t.Fatalf("layout: %v", err)
	}
	g = loadFlow(t, out)
	s, _ = g.Node("s")
	e, _ = g.Node("e")
	if !(s.Position.Y < e.Position.Y) {
		t.Errorf("flag direction TB not applied: s=%v e=%v", s.Position, e.Position)
	}
	if _, err := os.Stat(filepath.Join(dir, "cache", appName)); !os.IsNotExist(err) {
		t.Errorf("backend none should not create a cache dir: %v", err)
	}
}

func TestLayoutCommandErrors(t *testing.T) {
	dir := testEnv(t, map[string]string{
		"flow.json": sampleFlow,
		"bad.toml":  "[layout]\nzoom = 2\n",
	})
	in := filepath.Join(dir, "flow.json")

	tests := []struct {
		name string
		args []string
		code perrors.Code
	}{
		{"bad direction", []string{"layout", in, "-d", "diagonal"}, perrors.ErrCodeInvalidDirection},
		{"unknown config key", []string{"--config", filepath.Join(dir, "bad.toml"), "layout", in}, perrors.ErrCodeInvalidConfig},
		{"missing config", []string{"--config", filepath.Join(dir, "nope.toml"), "layout", in}, perrors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runCLI(tt.args...)
			if !perrors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}

	if err := runCLI("layout", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing input should fail")
	}
}

func TestRenderCommand(t *testing.T) {
	dir := testEnv(t, map[string]string{"flow.json": sampleFlow})
	in := filepath.Join(dir, "flow.json")

	if err := runCLI("render", in, "-f", "svg,dot,json", "--layout"); err != nil {
		t.Fatalf("render: %v", err)
	}

	svg, err := os.ReadFile(filepath.Join(dir, "flow.svg"))
	if err != nil || !strings.HasPrefix(string(svg), "<svg") {
		t.Errorf("flow.svg = %.40q, err %v", svg, err)
	}
	dot, err := os.ReadFile(filepath.Join(dir, "flow.dot"))
	if err != nil || !strings.Contains(string(dot), "digraph flow") {
		t.Errorf("flow.dot = %.40q, err %v", dot, err)
	}
	g := loadFlow(t, filepath.Join(dir, "flow.render.json"))
	if g.NodeCount() != 3 || g.EdgeCount() != 2 {
		t.Errorf("json artifact has %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}

	// The input is never overwritten.
	orig := loadFlow(t, in)
	for _, n := range orig.Nodes() {
		if n.Position.X != 0 || n.Position.Y != 0 {
			t.Errorf("input node %s moved to %v", n.ID, n.Position)
		}
	}
}

func TestRenderCommandSingleOutput(t *testing.T) {
	dir := testEnv(t, map[string]string{"flow.json": sampleFlow})
	out := filepath.Join(dir, "drawing.svg")

	if err := runCLI("render", filepath.Join(dir, "flow.json"), "-o", out, "--no-cache"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("output not written: %v", err)
	}
}

func TestRenderCommandErrors(t *testing.T) {
	dir := testEnv(t, map[string]string{"flow.json": sampleFlow, "broken.json": brokenFlow})
	in := filepath.Join(dir, "flow.json")

	tests := []struct {
		name string
		args []string
		code perrors.Code
	}{
		{"png needs graphviz", []string{"render", in, "-f", "png"}, perrors.ErrCodeUnsupported},
		{"unknown format", []string{"render", in, "-f", "pdf"}, perrors.ErrCodeInvalidFormat},
		{"unknown engine", []string{"render", in, "--engine", "dagre"}, perrors.ErrCodeInvalidInput},
		{"strict validation", []string{"render", filepath.Join(dir, "broken.json"), "--strict"}, perrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runCLI(tt.args...)
			if !perrors.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	dir := testEnv(t, map[string]string{"flow.json": sampleFlow, "broken.json": brokenFlow})

	if err := runCLI("validate", filepath.Join(dir, "flow.json")); err != nil {
		t.Errorf("valid flow: %v", err)
	}
	err := runCLI("validate", filepath.Join(dir, "broken.json"))
	if !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("broken flow err = %v, want INVALID_INPUT", err)
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		output  string
		formats []string
		want    map[string]string
	}{
		{"default single", "flows/a.json", "", []string{"svg"}, map[string]string{"svg": "flows/a.svg"}},
		{"explicit single", "a.json", "out/x.svg", []string{"svg"}, map[string]string{"svg": "out/x.svg"}},
		{"multiple", "a.json", "", []string{"svg", "json"}, map[string]string{"svg": "a.svg", "json": "a.render.json"}},
		{"multiple with base", "a.json", "out/x.svg", []string{"svg", "dot"}, map[string]string{"svg": "out/x.svg", "dot": "out/x.dot"}},
		{"laid out input", "a.layout.json", "", []string{"svg"}, map[string]string{"svg": "a.svg"}},
		{"stdin", "-", "", []string{"svg"}, map[string]string{"svg": "flow.svg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputPaths(tt.input, tt.output, tt.formats)
			for f, want := range tt.want {
				if got[f] != want {
					t.Errorf("outputPaths(%q, %q)[%s] = %q, want %q", tt.input, tt.output, f, got[f], want)
				}
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "svg"},
		{"svg", "svg"},
		{"svg, dot", "svg,dot"},
		{"png,,json", "png,json"},
	}
	for _, tt := range tests {
		if got := strings.Join(parseFormats(tt.in), ","); got != tt.want {
			t.Errorf("parseFormats(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCatalogRow(t *testing.T) {
	start, err := flow.Lookup(flow.StartEvent)
	if err != nil {
		t.Fatal(err)
	}
	row := catalogRow(start)
	if row[0] != "2" || row[1] != "startEvent" || row[2] != "node" {
		t.Errorf("start event row = %v", row)
	}
	if !strings.Contains(row[5], "right:out") {
		t.Errorf("start event anchors = %q, want source anchors", row[5])
	}

	seq, err := flow.Lookup(flow.SequenceFlow)
	if err != nil {
		t.Fatal(err)
	}
	row = catalogRow(seq)
	if row[2] != "edge" || row[3] != "-" || row[5] != "-" {
		t.Errorf("sequence flow row = %v", row)
	}

	tbl, err := catalogTable()
	if err != nil {
		t.Fatalf("catalogTable: %v", err)
	}
	out := tbl.Render()
	for _, et := range flow.ElementTypes() {
		if !strings.Contains(out, et.String()) {
			t.Errorf("catalog table missing %s", et)
		}
	}
}

func TestCacheDescription(t *testing.T) {
	testEnv(t, nil)
	c := New(io.Discard, LogInfo)

	if got := c.cacheDescription(true); got != "disabled" {
		t.Errorf("no-cache description = %q", got)
	}
	c.cfg.Cache.Dir = "/var/cache/pf"
	if got := c.cacheDescription(false); got != "file /var/cache/pf" {
		t.Errorf("file description = %q", got)
	}
	c.cfg.Cache.Backend = "redis"
	if got := c.cacheDescription(false); got != "redis localhost:6379" {
		t.Errorf("redis description = %q", got)
	}
}

func TestNewCacheFileBackend(t *testing.T) {
	dir := testEnv(t, nil)
	c := New(io.Discard, LogInfo)
	c.cfg.Cache.TTL = "1h"

	cc, err := c.newCache(context.Background(), false)
	if err != nil {
		t.Fatalf("newCache: %v", err)
	}
	defer cc.Close()

	ctx := context.Background()
	if err := cc.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := cc.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "cache", appName)); err != nil {
		t.Errorf("file cache should live under XDG_CACHE_HOME: %v", err)
	}
}

func TestServerURL(t *testing.T) {
	tests := map[string]string{
		":8080":          "http://localhost:8080",
		"127.0.0.1:9000": "http://127.0.0.1:9000",
	}
	for addr, want := range tests {
		if got := serverURL(addr); got != want {
			t.Errorf("serverURL(%q) = %q, want %q", addr, got, want)
		}
	}
}
