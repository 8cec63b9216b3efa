package drafts

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/garment"
	"apparel-studio/handlers/auth"
	"apparel-studio/middleware"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Mock draft store for testing
type mockDraftStore struct {
	mu     sync.Mutex
	drafts map[string]*core.Draft
}

func newMockStore() *mockDraftStore {
	return &mockDraftStore{drafts: make(map[string]*core.Draft)}
}

func (m *mockDraftStore) List(ctx context.Context, userID string) ([]*core.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*core.Draft
	for _, d := range m.drafts {
		if d.UserID == userID {
			out = append(out, &core.Draft{ID: d.ID, Name: d.Name})
		}
	}
	return out, nil
}

func (m *mockDraftStore) Get(ctx context.Context, userID, id string) (*core.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[userID+"/"+id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return d, nil
}

func (m *mockDraftStore) Save(ctx context.Context, d *core.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *d
	m.drafts[d.UserID+"/"+d.ID] = &stored
	return nil
}

func (m *mockDraftStore) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[userID+"/"+id]; !ok {
		return core.ErrNotFound
	}
	delete(m.drafts, userID+"/"+id)
	return nil
}

func request(method, key, body, subject string) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/drafts/"+key, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("key", key)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if subject != "" {
		claims := &auth.AppClaims{}
		claims.Subject = subject
		ctx = context.WithValue(ctx, middleware.ClaimsContextKey, claims)
	}
	return req.WithContext(ctx)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{0, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newRegistry() *editor.Registry {
	return editor.NewRegistry(editor.DefaultConfig(), garment.NewRenderer(garment.DefaultOptions()))
}

func TestRequiresClaims(t *testing.T) {
	store := newMockStore()
	rec := httptest.NewRecorder()
	HandleList(store)(rec, request(http.MethodGet, "", "", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestSaveAndRestore(t *testing.T) {
	store := newMockStore()
	reg := newRegistry()
	s := reg.Create()
	if _, err := s.AddUpload(pngBytes(t), "logo.png"); err != nil {
		t.Fatal(err)
	}
	s.SetRotation(45)

	rec := httptest.NewRecorder()
	HandleSave(store, reg)(rec, request(http.MethodPut, "summer", `{"sessionId":"`+s.ID()+`","name":"Summer tee"}`, "github:1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("save: got %d (%s)", rec.Code, rec.Body.String())
	}

	saved := store.drafts["github:1/summer"]
	if saved == nil || saved.Name != "Summer tee" {
		t.Fatalf("draft not stored: %+v", saved)
	}
	if !strings.HasPrefix(saved.Thumbnail, "data:image/png;base64,") {
		t.Fatalf("thumbnail = %.40q", saved.Thumbnail)
	}
	thumbPNG, _ := base64.StdEncoding.DecodeString(strings.TrimPrefix(saved.Thumbnail, "data:image/png;base64,"))
	thumb, err := png.Decode(bytes.NewReader(thumbPNG))
	if err != nil {
		t.Fatalf("thumbnail is not a PNG: %v", err)
	}
	if thumb.Bounds().Dx() != ThumbnailWidth {
		t.Errorf("thumbnail width = %d", thumb.Bounds().Dx())
	}

	rec = httptest.NewRecorder()
	HandleRestore(store, reg)(rec, request(http.MethodPost, "summer", "", "github:1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("restore: got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp RestoreResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	restored, err := reg.Get(resp.ID)
	if err != nil {
		t.Fatalf("restored session not registered: %v", err)
	}
	elems := restored.Snapshot().Elements(core.ViewFront)
	if len(elems) != 1 || elems[0].Transform.Rotation != 45 || elems[0].Name != "logo.png" {
		t.Errorf("restored layers = %+v", elems)
	}

	rec = httptest.NewRecorder()
	HandleRestore(store, reg)(rec, request(http.MethodPost, "summer", "", "github:2"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("other users must not restore the draft: got %d", rec.Code)
	}
}

func TestSaveUnknownSession(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleSave(newMockStore(), newRegistry())(rec, request(http.MethodPut, "k", `{"sessionId":"nope"}`, "github:1"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetListDelete(t *testing.T) {
	store := newMockStore()
	store.Save(context.Background(), &core.Draft{ID: "k1", UserID: "github:1", Name: "one", Data: []byte(`{"color":"#ff0000"}`)})

	rec := httptest.NewRecorder()
	HandleGet(store)(rec, request(http.MethodGet, "k1", "", "github:1"))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"color":"#ff0000"}` {
		t.Errorf("get: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	HandleList(store)(rec, request(http.MethodGet, "", "", "github:2"))
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty list should be [], got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	HandleDelete(store)(rec, request(http.MethodDelete, "k1", "", "github:1"))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	HandleDelete(store)(rec, request(http.MethodDelete, "k1", "", "github:1"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d", rec.Code)
	}
}

func TestRestoreCorruptDraft(t *testing.T) {
	store := newMockStore()
	store.Save(context.Background(), &core.Draft{ID: "bad", UserID: "github:1", Data: []byte("{broken")})

	rec := httptest.NewRecorder()
	HandleRestore(store, newRegistry())(rec, request(http.MethodPost, "bad", "", "github:1"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}
