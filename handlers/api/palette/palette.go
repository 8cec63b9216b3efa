package palette

import (
	"apparel-studio/config"
	"net/http"

	"github.com/go-chi/render"
)

type Response struct {
	Default  string          `json:"default"`
	Swatches []config.Swatch `json:"swatches"`
}

// HandleList returns the preset garment colours.
func HandleList(canvas config.CanvasConfig) http.HandlerFunc {
	resp := Response{
		Default:  canvas.BaseColor,
		Swatches: canvas.Palette,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, resp)
	}
}
