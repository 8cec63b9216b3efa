package export

import (
	"image"
	"image/png"
	"io"
)

// Encoder turns a rendered view into a portable image file.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
	ContentType() string
	Extension() string
}

// PNGEncoder writes lossless PNG files.
type PNGEncoder struct {
	CompressionLevel png.CompressionLevel
}

func (e PNGEncoder) Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: e.CompressionLevel}
	return enc.Encode(w, img)
}

func (PNGEncoder) ContentType() string {
	return "image/png"
}

func (PNGEncoder) Extension() string {
	return "png"
}
