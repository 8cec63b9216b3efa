// Package imaging turns uploaded bytes into decoded pixel data. The header is
// validated synchronously so callers learn about unsupported files before a
// layer is created; the full decode completes in the background.
package imaging

import (
	"apparel-studio/core"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds width*height of an accepted image so a small compressed
// upload cannot expand into gigabytes of RGBA.
const MaxPixels int64 = 25_000_000

// ErrDecode marks data that cannot be decoded as an image.
var ErrDecode = errors.New("image decode failed")

// Handle references an image whose decode may still be in flight.
type Handle struct {
	name   string
	format string
	size   core.Size
	source []byte

	done chan struct{}
	once sync.Once
	img  *image.RGBA
	err  error
}

// Decode validates data and starts decoding it. A non-nil error wraps ErrDecode.
func Decode(data []byte, name string) (*Handle, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, name, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %s: empty image", ErrDecode, name)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %s: %dx%d exceeds %d pixels", ErrDecode, name, cfg.Width, cfg.Height, MaxPixels)
	}

	h := newHandle(name, format, core.Size{W: float64(cfg.Width), H: float64(cfg.Height)}, data)
	go h.run()
	return h, nil
}

// FromImage wraps an already decoded image in a ready Handle.
func FromImage(img image.Image, name string) *Handle {
	b := img.Bounds()
	h := newHandle(name, "memory", core.Size{W: float64(b.Dx()), H: float64(b.Dy())}, nil)
	h.finish(toRGBA(img), nil)
	return h
}

// Pending returns a Handle that never finishes decoding until Fail or Resolve
// is called. It lets callers model slow uploads.
func Pending(name string, size core.Size) *Handle {
	return newHandle(name, "pending", size, nil)
}

func newHandle(name, format string, size core.Size, source []byte) *Handle {
	return &Handle{
		name:   name,
		format: format,
		size:   size,
		source: source,
		done:   make(chan struct{}),
	}
}

func (h *Handle) run() {
	img, _, err := image.Decode(bytes.NewReader(h.source))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"name":   h.name,
			"format": h.format,
		}).WithError(err).Warn("Image decode failed")
		h.finish(nil, fmt.Errorf("%w: %s: %v", ErrDecode, h.name, err))
		return
	}
	h.finish(toRGBA(img), nil)
	logrus.WithFields(logrus.Fields{
		"name":   h.name,
		"format": h.format,
		"width":  h.size.W,
		"height": h.size.H,
	}).Debug("Image decoded")
}

func (h *Handle) finish(img *image.RGBA, err error) {
	h.once.Do(func() {
		h.img = img
		h.err = err
		close(h.done)
	})
}

// Resolve completes a pending handle with img.
func (h *Handle) Resolve(img image.Image) {
	h.finish(toRGBA(img), nil)
}

// Fail completes a pending handle with an error.
func (h *Handle) Fail(err error) {
	h.finish(nil, fmt.Errorf("%w: %s: %v", ErrDecode, h.name, err))
}

func (h *Handle) Name() string {
	return h.name
}

// Format is the registered decoder name, e.g. "png" or "webp".
func (h *Handle) Format() string {
	return h.format
}

func (h *Handle) NaturalSize() core.Size {
	return h.size
}

// Source returns the original encoded bytes, nil for in-memory images.
func (h *Handle) Source() []byte { return h.source }

// Done is closed once decoding finished, successfully or not.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Ready reports whether the pixels are available for compositing.
func (h *Handle) Ready() bool {
	select {
	case <-h.done:
		return h.err == nil
	default:
		return false
	}
}

// Image returns the decoded pixels or nil while not Ready.
func (h *Handle) Image() *image.RGBA {
	if !h.Ready() {
		return nil
	}
	return h.img
}

// Wait blocks until decoding finished or ctx is done.
func (h *Handle) Wait(ctx context.Context) (*image.RGBA, error) {
	select {
	case <-h.done:
		if h.err != nil {
			return nil, h.err
		}
		return h.img, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for %s: %w", h.name, ctx.Err())
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
