package core

import (
	"fmt"
	"math"
)

// View names one independently editable face of the garment.
type View string

const (
	ViewFront    View = "front"
	ViewBack     View = "back"
	ViewLeftArm  View = "leftArm"
	ViewRightArm View = "rightArm"
)

// Views lists every garment view in export order.
var Views = []View{ViewFront, ViewBack, ViewLeftArm, ViewRightArm}

// ParseView validates a view name received from a client.
func ParseView(s string) (View, error) {
	for _, v := range Views {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown garment view %q", s)
}

// IsSleeve reports whether the view renders the arm template.
func (v View) IsSleeve() bool {
	return v == ViewLeftArm || v == ViewRightArm
}

type (
	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	Size struct {
		W float64 `json:"width"`
		H float64 `json:"height"`
	}

	// Transform places a design layer on the canvas. Position is the layer
	// centre, Rotation is in degrees.
	Transform struct {
		Position Point   `json:"position"`
		Scale    float64 `json:"scale"`
		Rotation float64 `json:"rotation"`
		Opacity  float64 `json:"opacity"`
	}

	// DesignRecord is the serialized, re-playable form of one layer.
	DesignRecord struct {
		Name     string  `json:"name"`
		Position Point   `json:"position"`
		Scale    float64 `json:"scale"`
		Rotation float64 `json:"rotation"`
		Opacity  float64 `json:"opacity"`
	}
)

// DefaultTransform is the placement of a freshly added or reset layer.
func DefaultTransform(center Point) Transform {
	return Transform{Position: center, Scale: 1, Rotation: 0, Opacity: 1}
}

// NormalizeRotation maps any angle in degrees into [0, 360).
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	if r >= 360 {
		r = 0
	}
	return r
}

// Radians returns the rotation in radians.
func (t Transform) Radians() float64 {
	return t.Rotation * math.Pi / 180
}

// Record pairs a transform with its display name.
func (t Transform) Record(name string) DesignRecord {
	return DesignRecord{
		Name:     name,
		Position: t.Position,
		Scale:    t.Scale,
		Rotation: t.Rotation,
		Opacity:  t.Opacity,
	}
}

// Transform returns the placement stored in the record.
func (r DesignRecord) Transform() Transform {
	return Transform{Position: r.Position, Scale: r.Scale, Rotation: r.Rotation, Opacity: r.Opacity}
}
