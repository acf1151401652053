package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/procflow/pkg/canvas"
	perrors "github.com/matzehuels/procflow/pkg/errors"
	"github.com/matzehuels/procflow/pkg/flow"
	"github.com/matzehuels/procflow/pkg/flowio"
	"github.com/matzehuels/procflow/pkg/observability"
	"github.com/matzehuels/procflow/pkg/render"
	"github.com/matzehuels/procflow/pkg/session"
)

type canvasCreated struct {
	ID      string `json:"id"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Dropped int    `json:"dropped,omitempty"`
}

func (s *Server) handleCreateCanvas(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var relayout bool
	if err := boolParam(r, "relayout", &relayout); err != nil {
		s.writeError(w, r, err)
		return
	}

	g, dropped, err := s.runner.Load(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes), "request")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctrl := canvas.New(g, canvas.WithLayout(opts.Direction, opts.Smart), canvas.WithLogger(s.logger))
	if relayout {
		if _, err := ctrl.Relayout(); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	sess, err := session.New(ctrl, s.sessionTTL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug("canvas created", "canvas", sess.ID, "nodes", g.NodeCount(), "edges", g.EdgeCount())

	w.Header().Set("Location", "/v1/canvases/"+sess.ID)
	writeJSON(w, http.StatusCreated, canvasCreated{
		ID:      sess.ID,
		Nodes:   g.NodeCount(),
		Edges:   g.EdgeCount(),
		Dropped: dropped,
	})
}

type canvasView struct {
	ID        string      `json:"id"`
	Direction string      `json:"direction"`
	Flow      flowio.Flow `json:"flow"`
	Selection []string    `json:"selection"`
	Hovered   []string    `json:"hovered"`
}

func (s *Server) handleGetCanvas(w http.ResponseWriter, r *http.Request) {
	s.withCanvas(w, r, func(id string, c *canvas.Controller) error {
		writeJSON(w, http.StatusOK, viewOf(id, c))
		return nil
	})
}

func (s *Server) handleDeleteCanvas(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "canvasID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type eventResponse struct {
	Result    canvas.ApplyResult `json:"result"`
	Selection []string           `json:"selection"`
	Hovered   []string           `json:"hovered"`
}

// handleCanvasEvent applies one gesture posted by the rendered canvas.
func (s *Server) handleCanvasEvent(w http.ResponseWriter, r *http.Request) {
	var ev canvas.Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&ev); err != nil {
		s.writeError(w, r, perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "decode event"))
		return
	}

	s.withCanvas(w, r, func(id string, c *canvas.Controller) error {
		hooks := observability.Canvas()
		hooks.OnEvent(r.Context(), id, string(ev.Kind), ev.ID)

		res, err := c.Dispatch(ev)
		if err != nil {
			return err
		}
		for _, del := range res.Deleted {
			hooks.OnDelete(r.Context(), id, del)
		}
		writeJSON(w, http.StatusOK, eventResponse{
			Result:    res,
			Selection: nonNil(c.Selection()),
			Hovered:   nonNil(c.Hovered()),
		})
		return nil
	})
}

func (s *Server) handleCanvasRelayout(w http.ResponseWriter, r *http.Request) {
	var selection bool
	if err := boolParam(r, "selection", &selection); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	explicitDir := r.URL.Query().Get("direction") != ""

	s.withCanvas(w, r, func(id string, c *canvas.Controller) error {
		if explicitDir {
			c.SetDirection(opts.Direction)
		}
		var moved int
		var err error
		if selection {
			moved, err = c.RelayoutSelection()
		} else {
			moved, err = c.Relayout()
		}
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]int{"moved": moved})
		return nil
	})
}

// nodePatch is the JSON form of flow.DataPatch.
type nodePatch struct {
	Name       *string        `json:"name"`
	Properties map[string]any `json:"properties"`
	HasError   *bool          `json:"hasError"`
}

func (s *Server) handleCanvasPatchNode(w http.ResponseWriter, r *http.Request) {
	var p nodePatch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		s.writeError(w, r, perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "decode patch"))
		return
	}
	nodeID := chi.URLParam(r, "nodeID")

	s.withCanvas(w, r, func(id string, c *canvas.Controller) error {
		// A failed update would stay queued, so reject unknown nodes up front.
		if _, ok := c.Graph().Node(nodeID); !ok {
			return perrors.New(perrors.ErrCodeNotFound, "node %q not found", nodeID)
		}
		c.Submit(canvas.Command{
			Kind:  canvas.CommandUpdate,
			ID:    nodeID,
			Patch: flow.DataPatch{Name: p.Name, Properties: p.Properties, HasError: p.HasError},
		})
		res, err := c.Apply()
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, res)
		return nil
	})
}

// handleCanvasSVG draws the canvas with scripts that post gestures back to
// the events endpoint.
func (s *Server) handleCanvasSVG(w http.ResponseWriter, r *http.Request) {
	s.withCanvas(w, r, func(id string, c *canvas.Controller) error {
		svg, err := c.Render(render.WithEventEndpoint("/v1/canvases/" + id + "/events"))
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(svg)
		return nil
	})
}

// withCanvas runs fn with exclusive access to the session's controller. fn
// writes the success response; a returned error is written instead.
func (s *Server) withCanvas(w http.ResponseWriter, r *http.Request, fn func(id string, c *canvas.Controller) error) {
	id := chi.URLParam(r, "canvasID")
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := sess.Do(func(c *canvas.Controller) error { return fn(id, c) }); err != nil {
		s.writeError(w, r, err)
	}
}

func viewOf(id string, c *canvas.Controller) canvasView {
	return canvasView{
		ID:        id,
		Direction: string(c.Direction()),
		Flow:      flowio.FromGraph(c.Graph()),
		Selection: nonNil(c.Selection()),
		Hovered:   nonNil(c.Hovered()),
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
