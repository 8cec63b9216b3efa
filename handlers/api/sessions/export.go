package sessions

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/export"
	"apparel-studio/middleware"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	ExportRequest struct {
		Quantity int `json:"quantity"`
	}

	ExportResponse struct {
		Artifacts map[core.View]string `json:"artifacts"`
		Metadata  core.OrderMetadata   `json:"metadata"`
	}

	SubmitResponse struct {
		OrderID string `json:"orderId"`
	}
)

// HandleDownload sends the active view, without overlays, as an attachment.
func HandleDownload(reg *editor.Registry, p *export.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok {
			return
		}
		d, err := p.DownloadCurrentView(r.Context(), s)
		if err != nil {
			renderError(w, r, exportStatus(err), "Failed to export view")
			return
		}
		w.Header().Set("Content-Type", d.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
		w.Write(d.Data)
	}
}

// HandleExport renders every relevant view and stores each image as a
// shareable artifact.
func HandleExport(reg *editor.Registry, p *export.Pipeline, artifacts core.ArtifactStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok {
			return
		}
		req := ExportRequest{Quantity: 1}
		if r.ContentLength > 0 && !decode(w, r, &req) {
			return
		}
		if req.Quantity < 1 {
			req.Quantity = 1
		}

		b, err := p.ExportAll(r.Context(), s, export.Order{Quantity: req.Quantity})
		if err != nil {
			renderError(w, r, exportStatus(err), "Failed to export design")
			return
		}

		resp := ExportResponse{
			Artifacts: make(map[core.View]string, len(b.Views)),
			Metadata:  b.Metadata,
		}
		for _, v := range b.Views {
			id, err := artifacts.Create(r.Context(), &core.Artifact{ContentType: b.ContentType, Data: b.Images[v]})
			if err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"session_id": s.ID(),
					"view":       v,
				}).Error("Failed to store exported view")
				renderError(w, r, http.StatusInternalServerError, "Failed to store export")
				return
			}
			resp.Artifacts[v] = id
		}
		render.JSON(w, r, resp)
	}
}

// HandleSubmit places an order for the session, forwarding the caller's
// bearer token to the order service.
func HandleSubmit(reg *editor.Registry, p *export.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, reg)
		if !ok {
			return
		}
		var order export.Order
		if !decode(w, r, &order) {
			return
		}

		id, err := p.Submit(r.Context(), s, order, middleware.Token(r))
		if err != nil {
			var verr *export.ValidationError
			if errors.As(err, &verr) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]any{"error": "Please complete the order form", "fields": verr.Fields})
				return
			}
			renderError(w, r, exportStatus(err), err.Error())
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, SubmitResponse{OrderID: id})
	}
}

func exportStatus(err error) int {
	switch {
	case errors.Is(err, export.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrSubmit):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
