package filesystem

import (
	"apparel-studio/core"
	"apparel-studio/stores/storetest"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *fsStore {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	return store
}

func TestArtifacts(t *testing.T) {
	storetest.Artifacts(t, newTestStore(t))
}

func TestDrafts(t *testing.T) {
	storetest.Drafts(t, newTestStore(t))
}

func TestPathTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	secret := filepath.Join(store.basePath, "secret")
	if err := os.WriteFile(secret, []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"../secret", "../../secret", "..", ".", ""} {
		if _, err := store.FindID(ctx, id); err == nil {
			t.Errorf("FindID(%q) should be rejected", id)
		}
		if _, err := store.Get(ctx, "alice", id); err == nil {
			t.Errorf("Get(%q) should be rejected", id)
		}
	}
	if _, err := store.List(ctx, "../artifacts"); err == nil {
		t.Error("List() with a traversing user id should be rejected")
	}
	if err := store.Save(ctx, &core.Draft{ID: "../../escape", UserID: "alice"}); err == nil {
		t.Error("Save() with a traversing id should be rejected")
	}
}

func TestListSkipsCorruptFiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &core.Draft{ID: "ok", UserID: "alice", Name: "ok"}); err != nil {
		t.Fatal(err)
	}
	userPath := filepath.Join(store.basePath, "drafts", "alice")
	if err := os.WriteFile(filepath.Join(userPath, "broken"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := store.List(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != "ok" {
		t.Errorf("List() = %+v", list)
	}
}
