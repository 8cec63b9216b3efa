// Package storetest holds the behaviour every store implementation shares,
// run against each backend from its own tests.
package storetest

import (
	"apparel-studio/core"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

// PNG header bytes, enough for content sniffing.
var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// Artifacts checks that created artifacts read back unchanged and that
// unknown ids report core.ErrNotFound.
func Artifacts(t *testing.T, store core.ArtifactStore) {
	t.Helper()
	ctx := context.Background()

	id, err := store.Create(ctx, &core.Artifact{ContentType: "image/png", Data: pngData})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if len(id) != 26 {
		t.Errorf("Create() returned invalid ID length: got %d, want 26", len(id))
	}

	other, err := store.Create(ctx, &core.Artifact{ContentType: "image/png", Data: pngData})
	if err != nil {
		t.Fatal(err)
	}
	if other == id {
		t.Error("artifact ids must be unique")
	}

	got, err := store.FindID(ctx, id)
	if err != nil {
		t.Fatalf("FindID() failed: %v", err)
	}
	if !bytes.Equal(got.Data, pngData) {
		t.Errorf("FindID() data mismatch: got %q", got.Data)
	}
	if got.ContentType != "image/png" {
		t.Errorf("content type = %q", got.ContentType)
	}

	if _, err := store.FindID(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("FindID() of unknown id should be ErrNotFound, got %v", err)
	}
}

// Drafts checks ownership scoping, list projection and timestamps.
func Drafts(t *testing.T, store core.DraftStore) {
	t.Helper()
	ctx := context.Background()

	draft := &core.Draft{
		ID:        "summer",
		UserID:    "github:alice",
		Name:      "Summer tee",
		Thumbnail: "data:image/png;base64,AAAA",
		Data:      []byte(`{"color":"#ff0000"}`),
	}
	if err := store.Save(ctx, draft); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	created := draft.CreatedAt
	if created.IsZero() || draft.UpdatedAt.IsZero() {
		t.Fatal("Save() should stamp the draft")
	}

	got, err := store.Get(ctx, "github:alice", "summer")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != "Summer tee" || string(got.Data) != `{"color":"#ff0000"}` || got.Thumbnail != draft.Thumbnail {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := store.Get(ctx, "github:bob", "summer"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("other users must not see the draft, got %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	draft.Name = "Summer tee v2"
	if err := store.Save(ctx, draft); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}
	if !draft.CreatedAt.Equal(created) {
		t.Errorf("update changed CreatedAt: %v -> %v", created, draft.CreatedAt)
	}
	if !draft.UpdatedAt.After(created) {
		t.Error("update should move UpdatedAt forward")
	}

	if err := store.Save(ctx, &core.Draft{ID: "winter", UserID: "github:alice", Name: "Winter", Data: []byte("{}")}); err != nil {
		t.Fatal(err)
	}
	list, err := store.List(ctx, "github:alice")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d drafts, want 2", len(list))
	}
	for _, d := range list {
		if d.Data != nil {
			t.Errorf("List() should omit data for %s", d.ID)
		}
	}
	if list[0].ID != "winter" {
		t.Errorf("List() should put the most recently updated draft first, got %s", list[0].ID)
	}

	empty, err := store.List(ctx, "github:carol")
	if err != nil || len(empty) != 0 {
		t.Errorf("List() for a user without drafts = %v, %v", empty, err)
	}

	if err := store.Delete(ctx, "github:alice", "summer"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(ctx, "github:alice", "summer"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted draft still readable: %v", err)
	}
	if err := store.Delete(ctx, "github:alice", "summer"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() should be ErrNotFound, got %v", err)
	}
}
