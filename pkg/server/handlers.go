package server

import (
	"net/http"
	"strconv"

	"github.com/matzehuels/procflow/pkg/buildinfo"
	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/flowio"
	"github.com/matzehuels/procflow/pkg/layout"
	"github.com/matzehuels/procflow/pkg/pipeline"
)

var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	pipeline.FormatJSON: "application/json; charset=utf-8",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

type catalogEntry struct {
	Type         int           `json:"type"`
	Tag          string        `json:"tag"`
	ProducesNode bool          `json:"produces_node"`
	Width        float64       `json:"width,omitempty"`
	Height       float64       `json:"height,omitempty"`
	DefaultLabel string        `json:"default_label,omitempty"`
	Anchors      []anchorEntry `json:"anchors,omitempty"`
}

type anchorEntry struct {
	ID   string `json:"id"`
	Side string `json:"side"`
	Role string `json:"role"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	var entries []catalogEntry
	for _, t := range flow.ElementTypes() {
		spec, err := flow.Lookup(t)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		e := catalogEntry{
			Type:         int(spec.Type),
			Tag:          spec.Tag,
			ProducesNode: spec.ProducesNode,
			Width:        spec.DefaultSize.Width,
			Height:       spec.DefaultSize.Height,
			DefaultLabel: spec.DefaultLabel,
		}
		for _, a := range spec.Anchors {
			e.Anchors = append(e.Anchors, anchorEntry{ID: a.ID, Side: string(a.Side), Role: a.Role.String()})
		}
		entries = append(entries, e)
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleLayout positions the posted flow and returns it.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, dropped, err := s.runner.Load(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes), "request")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, hit, err := s.runner.Relayout(r.Context(), g, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("X-Cache", cacheHeader(hit))
	h.Set("X-Layout-Ranks", strconv.Itoa(res.Ranks))
	h.Set("X-Layout-Crossings", strconv.Itoa(res.Crossings))
	h.Set("X-Dropped-Edges", strconv.Itoa(dropped))
	writeJSON(w, http.StatusOK, flowio.FromGraph(g))
}

// handleRender runs the full pipeline and returns a single artifact.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	opts.Formats = []string{format}
	opts.Engine = q.Get("engine")
	for name, dst := range map[string]*bool{
		"relayout":    &opts.Relayout,
		"detailed":    &opts.Detailed,
		"strict":      &opts.Strict,
		"mark_errors": &opts.MarkErrors,
	} {
		if err := boolParam(r, name, dst); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	res, err := s.runner.Execute(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes), "request", opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("X-Cache", cacheHeader(res.CacheInfo.RenderHit))
	if res.FlowHash != "" {
		w.Header().Set("ETag", strconv.Quote(res.FlowHash))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[format])
}

type validateResponse struct {
	Valid   bool         `json:"valid"`
	Issues  []flow.Issue `json:"issues"`
	Dropped int          `json:"dropped,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	g, dropped, err := s.runner.Load(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes), "request")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := validateResponse{Valid: true, Issues: []flow.Issue{}, Dropped: dropped}
	for _, is := range s.runner.Validate(g, pipeline.Options{}) {
		if is.Severity == flow.SeverityError {
			resp.Valid = false
		}
		resp.Issues = append(resp.Issues, is)
	}
	writeJSON(w, http.StatusOK, resp)
}

// options reads the layout query parameters shared by every endpoint.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.Options{
		Direction: s.direction,
		Smart:     s.smart,
		Logger:    s.logger,
	}
	q := r.URL.Query()
	if v := q.Get("direction"); v != "" {
		dir, err := layout.ParseDirection(v)
		if err != nil {
			return opts, err
		}
		opts.Direction = dir
	}
	if err := boolParam(r, "smart", &opts.Smart); err != nil {
		return opts, err
	}
	if err := boolParam(r, "refresh", &opts.Refresh); err != nil {
		return opts, err
	}
	for name, dst := range map[string]*float64{"node_width": &opts.NodeWidth, "node_height": &opts.NodeHeight} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, perrors.New(perrors.ErrCodeInvalidInput, "%s: not a number: %q", name, v)
		}
		*dst = f
	}
	return opts, nil
}

func boolParam(r *http.Request, name string, dst *bool) error {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return perrors.New(perrors.ErrCodeInvalidInput, "%s: not a boolean: %q", name, v)
	}
	*dst = b
	return nil
}

func cacheHeader(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
