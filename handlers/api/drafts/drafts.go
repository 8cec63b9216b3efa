// Package drafts lets signed-in customers park a design session and pick it
// up again later.
package drafts

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/export"
	"apparel-studio/middleware"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

// ThumbnailWidth is the pixel width of the stored front-view preview.
const ThumbnailWidth = 160

type (
	SaveRequest struct {
		SessionID string `json:"sessionId"`
		Name      string `json:"name"`
	}

	RestoreResponse struct {
		ID string `json:"id"`
	}
)

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// subject returns the owner of the request, answering 401 itself when the
// claims are missing.
func subject(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.Claims(r)
	if !ok {
		renderError(w, r, http.StatusUnauthorized, "User claims not found")
		return "", false
	}
	return claims.Subject, true
}

func key(w http.ResponseWriter, r *http.Request) (string, bool) {
	k := chi.URLParam(r, "key")
	if k == "" {
		renderError(w, r, http.StatusBadRequest, "Draft key is required")
		return "", false
	}
	return k, true
}

// Thumbnail renders the front of s without overlays and scales it down to a
// PNG data URL.
func Thumbnail(s *editor.Session) (string, error) {
	snap := s.Snapshot().Clean().WithView(core.ViewFront)
	img, err := s.Renderer().Render(snap.Frame())
	if err != nil {
		return "", err
	}

	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, ThumbnailWidth, b.Dy()*ThumbnailWidth/b.Dx()))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := (export.PNGEncoder{}).Encode(&buf, dst); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func HandleList(store core.DraftStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subject(w, r)
		if !ok {
			return
		}

		drafts, err := store.List(r.Context(), userID)
		if err != nil {
			logrus.WithError(err).WithField("userID", userID).Error("Failed to list drafts")
			renderError(w, r, http.StatusInternalServerError, "Failed to list drafts")
			return
		}
		if drafts == nil {
			drafts = []*core.Draft{}
		}
		render.JSON(w, r, drafts)
	}
}

// HandleGet returns the saved session payload.
func HandleGet(store core.DraftStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subject(w, r)
		if !ok {
			return
		}
		k, ok := key(w, r)
		if !ok {
			return
		}

		draft, err := store.Get(r.Context(), userID, k)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				renderError(w, r, http.StatusNotFound, "Draft not found")
				return
			}
			logrus.WithError(err).WithFields(logrus.Fields{"userID": userID, "key": k}).Error("Failed to get draft")
			renderError(w, r, http.StatusInternalServerError, "Failed to get draft")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(draft.Data)
	}
}

// HandleSave stores the current state of a live session under key.
func HandleSave(store core.DraftStore, reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subject(w, r)
		if !ok {
			return
		}
		k, ok := key(w, r)
		if !ok {
			return
		}

		var req SaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderError(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		s, err := reg.Get(req.SessionID)
		if err != nil {
			renderError(w, r, http.StatusNotFound, "Session not found")
			return
		}

		data, err := json.Marshal(s.Draft())
		if err != nil {
			renderError(w, r, http.StatusInternalServerError, "Failed to serialize session")
			return
		}
		thumbnail, err := Thumbnail(s)
		if err != nil {
			logrus.WithError(err).WithField("session_id", s.ID()).Warn("Saving draft without thumbnail")
		}

		name := req.Name
		if name == "" {
			name = k
		}
		draft := &core.Draft{
			ID:        k,
			UserID:    userID,
			Name:      name,
			Thumbnail: thumbnail,
			Data:      data,
		}
		if err := store.Save(r.Context(), draft); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{"userID": userID, "key": k}).Error("Failed to save draft")
			renderError(w, r, http.StatusInternalServerError, "Failed to save draft")
			return
		}

		draft.Data = nil
		render.JSON(w, r, draft)
	}
}

func HandleDelete(store core.DraftStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subject(w, r)
		if !ok {
			return
		}
		k, ok := key(w, r)
		if !ok {
			return
		}

		if err := store.Delete(r.Context(), userID, k); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				renderError(w, r, http.StatusNotFound, "Draft not found")
				return
			}
			logrus.WithError(err).WithFields(logrus.Fields{"userID": userID, "key": k}).Error("Failed to delete draft")
			renderError(w, r, http.StatusInternalServerError, "Failed to delete draft")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRestore opens a new live session from a saved draft.
func HandleRestore(store core.DraftStore, reg *editor.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := subject(w, r)
		if !ok {
			return
		}
		k, ok := key(w, r)
		if !ok {
			return
		}

		draft, err := store.Get(r.Context(), userID, k)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				renderError(w, r, http.StatusNotFound, "Draft not found")
				return
			}
			renderError(w, r, http.StatusInternalServerError, "Failed to get draft")
			return
		}

		var payload editor.DraftPayload
		if err := json.Unmarshal(draft.Data, &payload); err != nil {
			logrus.WithError(err).WithField("key", k).Error("Stored draft is corrupt")
			renderError(w, r, http.StatusUnprocessableEntity, "Draft is corrupt")
			return
		}
		s, err := reg.Restore(payload)
		if err != nil {
			renderError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, RestoreResponse{ID: s.ID()})
	}
}
