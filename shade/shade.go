// Package shade holds the colour math used to derive garment accents from a
// single base colour.
package shade

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Shade scales every RGB channel by (100+percent)/100, truncating and
// clamping to [0,255]. Negative percentages darken, positive ones lighten.
// Alpha is preserved.
func Shade(c color.RGBA, percent float64) color.RGBA {
	f := (100 + percent) / 100
	return color.RGBA{
		R: channel(c.R, f),
		G: channel(c.G, f),
		B: channel(c.B, f),
		A: c.A,
	}
}

func channel(v uint8, f float64) uint8 {
	s := math.Trunc(float64(v) * f)
	if s < 0 || math.IsNaN(s) {
		return 0
	}
	if s > 255 {
		return 255
	}
	return uint8(s)
}

// Luminance is the perceptual brightness of c normalised to [0,1].
func Luminance(c color.RGBA) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}

// IsDark reports whether light accents read better than dark ones on c.
func IsDark(c color.RGBA) bool {
	return Luminance(c) < 0.5
}

// ParseHex parses "#rgb" or "#rrggbb" (leading '#' optional) into an opaque colour.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Hex formats c as "#rrggbb".
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
