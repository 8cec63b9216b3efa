package imaging

import (
	"apparel-studio/core"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	h, err := Decode(encodePNG(t, 40, 20), "logo.png")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got := h.NaturalSize(); got.W != 40 || got.H != 20 {
		t.Errorf("NaturalSize = %+v, want 40x20", got)
	}
	if h.Format() != "png" {
		t.Errorf("Format = %q, want png", h.Format())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	img, err := h.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if img.Bounds().Dx() != 40 || !h.Ready() {
		t.Errorf("decoded image not ready: %v", img.Bounds())
	}
	if c := img.RGBAAt(3, 3); c.R != 255 || c.A != 255 {
		t.Errorf("unexpected pixel %v", c)
	}
}

// withDimensions rewrites the IHDR of a PNG so its header claims w x h.
func withDimensions(data []byte, w, h uint32) []byte {
	out := bytes.Clone(data)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecodeRejectsOversizedImage(t *testing.T) {
	src := encodePNG(t, 4, 4)

	_, err := Decode(withDimensions(src, 60000, 60000), "bomb.png")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for 60000x60000, got %v", err)
	}

	_, err = Decode(withDimensions(src, 5001, 5000), "wide.png")
	if !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode just above the limit, got %v", err)
	}

	// A header that is merely patched still decodes as a valid config.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(withDimensions(src, 60000, 60000)))
	if err != nil || cfg.Width != 60000 {
		t.Fatalf("patched header unreadable: %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"), "notes.txt")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestPendingHandle(t *testing.T) {
	h := Pending("slow.png", core.Size{W: 10, H: 10})
	if h.Ready() || h.Image() != nil {
		t.Fatal("pending handle should not be ready")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := h.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}

	h.Fail(errors.New("corrupt"))
	if h.Ready() {
		t.Error("failed handle should not be ready")
	}
	if _, err := h.Wait(context.Background()); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode after Fail, got %v", err)
	}

	// Completing twice keeps the first outcome.
	h.Resolve(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if h.Ready() {
		t.Error("Resolve after Fail should be ignored")
	}
}

func TestFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 15, 25))
	h := FromImage(src, "mem")
	if !h.Ready() {
		t.Fatal("FromImage handle should be ready")
	}
	if b := h.Image().Bounds(); b.Min != (image.Point{}) || b.Dx() != 10 || b.Dy() != 20 {
		t.Errorf("unexpected bounds %v", b)
	}
}
