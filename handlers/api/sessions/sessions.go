// Package sessions exposes live design sessions over HTTP.
package sessions

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/export"
	"apparel-studio/imaging"
	"apparel-studio/shade"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	CreateResponse struct {
		ID string `json:"id"`
	}

	LayerResponse struct {
		ID          string         `json:"id"`
		Name        string         `json:"name"`
		Ready       bool           `json:"ready"`
		NaturalSize core.Size      `json:"naturalSize"`
		Transform   core.Transform `json:"transform"`
	}

	StateResponse struct {
		ID          string                        `json:"id"`
		Revision    uint64                        `json:"revision"`
		Color       string                        `json:"color"`
		ActiveView  core.View                     `json:"activeView"`
		GridVisible bool                          `json:"gridVisible"`
		SelectedID  string                        `json:"selectedId,omitempty"`
		Phase       string                        `json:"phase"`
		Views       map[core.View][]LayerResponse `json:"views"`
	}

	ColorRequest struct {
		Color string `json:"color"`
	}

	ViewRequest struct {
		View string `json:"view"`
	}

	GridRequest struct {
		Visible bool `json:"visible"`
	}

	TransformRequest struct {
		Position *core.Point `json:"position,omitempty"`
		Scale    *float64    `json:"scale,omitempty"`
		Rotation *float64    `json:"rotation,omitempty"`
		Opacity  *float64    `json:"opacity,omitempty"`
	}

	PointerRequest struct {
		Type string  `json:"type"` // "down" | "move" | "up" | "leave"
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}
)

// NewState describes snap for clients.
func NewState(id string, snap editor.Snapshot) StateResponse {
	state := StateResponse{
		ID:          id,
		Revision:    snap.Revision,
		Color:       shade.Hex(snap.BaseColor),
		ActiveView:  snap.ActiveView,
		GridVisible: snap.GridVisible,
		SelectedID:  snap.SelectedID,
		Phase:       snap.Phase.String(),
		Views:       make(map[core.View][]LayerResponse, len(core.Views)),
	}
	for _, v := range core.Views {
		layers := []LayerResponse{}
		for _, e := range snap.Elements(v) {
			layers = append(layers, LayerResponse{
				ID:          e.ID,
				Name:        e.Name,
				Ready:       e.Image != nil && e.Image.Ready(),
				NaturalSize: e.NaturalSize(),
				Transform:   e.Transform,
			})
		}
		state.Views[v] = layers
	}
	return state
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// lookup resolves the {id} URL parameter, answering 404 itself when the
// session does not exist.
func lookup(w http.ResponseWriter, r *http.Request, reg *editor.Registry) (*editor.Session, bool) {
	id := chi.URLParam(r, "id")
	s, err := reg.Get(id)
	if err != nil {
		logrus.WithField("session_id", id).Debug("Session not found")
		renderError(w, r, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return s, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logrus.WithError(err).Debug("Failed to decode request")
		renderError(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func renderState(w http.ResponseWriter, r *http.Request, s *editor.Session) {
	render.JSON(w, r, NewState(s.ID(), s.Snapshot()))
}

func HandleCreate(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := reg.Create()
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CreateResponse{ID: s.ID()})
	}
}

func HandleGet(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s, ok := lookup(w, r, reg); ok {
			renderState(w, r, s)
		}
	}
}

func HandleDelete(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := reg.Delete(chi.URLParam(r, "id")); err != nil {
			renderError(w, r, http.StatusNotFound, "Session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleSetColor(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok {
			return
		}
		var req ColorRequest
		if !decode(w, r, &req) {
			return
		}
		c, err := shade.ParseHex(req.Color)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		s.SetColor(c)
		renderState(w, r, s)
	}
}

func HandleSetView(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok {
			return
		}
		var req ViewRequest
		if !decode(w, r, &req) {
			return
		}
		v, err := core.ParseView(req.View)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		s.SetView(v)
		renderState(w, r, s)
	}
}

func HandleSetGrid(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok {
			return
		}
		var req GridRequest
		if !decode(w, r, &req) {
			return
		}
		s.SetGridVisible(req.Visible)
		renderState(w, r, s)
	}
}

// HandleUpload adds the multipart "image" file as a layer on the active view.
func HandleUpload(reg *editor.Registry, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				renderError(w, r, http.StatusRequestEntityTooLarge, "Image is too large")
				return
			}
			renderError(w, r, http.StatusBadRequest, "Expected a multipart form")
			return
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "Image file is required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "Failed to read image")
			return
		}

		id, err := s.AddUpload(data, header.Filename)
		if err != nil {
			if errors.Is(err, imaging.ErrDecode) {
				renderError(w, r, http.StatusUnprocessableEntity, "Unsupported or corrupt image")
				return
			}
			renderError(w, r, http.StatusInternalServerError, "Failed to add image")
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CreateResponse{ID: id})
	}
}

// selected answers 409 when the session has no selected layer.
func selected(w http.ResponseWriter, r *http.Request, s *editor.Session) bool {
	if s.Snapshot().SelectedID == "" {
		renderError(w, r, http.StatusConflict, "No layer selected")
		return false
	}
	return true
}

func HandlePatchSelected(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok {
			return
		}
		var req TransformRequest
		if !decode(w, r, &req) {
			return
		}
		if !selected(w, r, s) {
			return
		}
		s.Apply(editor.Patch{
			Position: req.Position,
			Scale:    req.Scale,
			Rotation: req.Rotation,
			Opacity:  req.Opacity,
		})
		renderState(w, r, s)
	}
}

func HandleResetSelected(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok || !selected(w, r, s) {
			return
		}
		s.ResetSelected()
		renderState(w, r, s)
	}
}

func HandleRemoveSelected(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok || !selected(w, r, s) {
			return
		}
		s.RemoveSelected()
		renderState(w, r, s)
	}
}

func HandlePointer(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok {
			return
		}
		var req PointerRequest
		if !decode(w, r, &req) {
			return
		}
		p := core.Point{X: req.X, Y: req.Y}
		switch req.Type {
		case "down":
			s.PointerDown(p)
		case "move":
			s.PointerMove(p)
		case "up":
			s.PointerUp()
		case "leave":
			s.PointerLeave()
		default:
			renderError(w, r, http.StatusBadRequest, "Unknown pointer event type")
			return
		}
		renderState(w, r, s)
	}
}

// HandlePreview renders the active view as the editor shows it, overlays
// included.
func HandlePreview(reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok {
			return
		}
		img, err := s.Render()
		if err != nil {
			logrus.WithError(err).WithField("session_id", s.ID()).Error("Failed to render preview")
			renderError(w, r, http.StatusInternalServerError, "Failed to render preview")
			return
		}
		var buf bytes.Buffer
		enc := export.PNGEncoder{}
		if err := enc.Encode(&buf, img); err != nil {
			renderError(w, r, http.StatusInternalServerError, "Failed to encode preview")
			return
		}
		w.Header().Set("Content-Type", enc.ContentType())
		w.Header().Set("Cache-Control", "no-store")
		w.Write(buf.Bytes())
	}
}
