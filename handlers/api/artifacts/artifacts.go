package artifacts

import (
	"apparel-studio/core"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// HandleGet serves a stored export. Artifacts never change once written.
func HandleGet(store core.ArtifactStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		artifact, err := store.FindID(r.Context(), id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Artifact not found"})
				return
			}
			logrus.WithError(err).WithField("artifact_id", id).Error("Failed to load artifact")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to load artifact"})
			return
		}

		contentType := artifact.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(artifact.Data)
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		w.Write(artifact.Data)
	}
}
