package main

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/export"
	"apparel-studio/garment"
	"apparel-studio/imaging"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"
)

func TestViewIndex(t *testing.T) {
	for i, v := range core.Views {
		if got := viewIndex(v); got != i {
			t.Errorf("viewIndex(%s) = %d, want %d", v, got, i)
		}
	}
	if len(viewLabels) != len(core.Views) {
		t.Fatalf("%d labels for %d views", len(viewLabels), len(core.Views))
	}
	if got := viewIndex("collar"); got != 0 {
		t.Errorf("unknown view index = %d, want 0", got)
	}
}

func TestSelectedElement(t *testing.T) {
	reg := editor.NewRegistry(editor.DefaultConfig(), garment.NewRenderer(garment.DefaultOptions()))
	s := reg.Create()

	if _, ok := selectedElement(s.Snapshot()); ok {
		t.Fatal("fresh session has a selection")
	}

	id := s.AddLayer(imaging.FromImage(image.NewRGBA(image.Rect(0, 0, 40, 40)), "logo.png"), "logo.png")
	e, ok := selectedElement(s.Snapshot())
	if !ok || e.ID != id {
		t.Errorf("selected = %q, %v; want %q", e.ID, ok, id)
	}
}

func TestWriteBundle(t *testing.T) {
	dir := t.TempDir()
	b := &export.Bundle{
		Views: []core.View{core.ViewFront, core.ViewBack},
		Images: map[core.View][]byte{
			core.ViewFront: []byte("front"),
			core.ViewBack:  []byte("back"),
		},
		Metadata: core.OrderMetadata{Quantity: 2, TotalPrice: 3000},
	}
	if err := writeBundle(dir, b); err != nil {
		t.Fatalf("writeBundle: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "custom-garment-back-design.png"))
	if err != nil || string(got) != "back" {
		t.Errorf("back image = %q, %v", got, err)
	}
	var meta core.OrderMetadata
	data, err := os.ReadFile(filepath.Join(dir, "order.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatal(err)
	}
	if meta.TotalPrice != 3000 || meta.Quantity != 2 {
		t.Errorf("metadata = %+v", meta)
	}
}
