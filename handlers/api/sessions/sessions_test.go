package sessions

import (
	"apparel-studio/core"
	"apparel-studio/editor"
	"apparel-studio/export"
	"apparel-studio/garment"
	"apparel-studio/middleware"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

type mockArtifactStore struct {
	mu        sync.Mutex
	artifacts map[string]*core.Artifact
	createErr error
}

func newMockArtifactStore() *mockArtifactStore {
	return &mockArtifactStore{artifacts: make(map[string]*core.Artifact)}
}

func (m *mockArtifactStore) Create(ctx context.Context, a *core.Artifact) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("artifact-%d", len(m.artifacts))
	m.artifacts[id] = a
	return id, nil
}

func (m *mockArtifactStore) FindID(ctx context.Context, id string) (*core.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return a, nil
}

type mockSubmitter struct {
	token  string
	called bool
}

func (m *mockSubmitter) Submit(ctx context.Context, b *export.Bundle, token string) (string, error) {
	m.called = true
	m.token = token
	return "order-42", nil
}

func newRegistry() *editor.Registry {
	return editor.NewRegistry(editor.DefaultConfig(), garment.NewRenderer(garment.DefaultOptions()))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 30, 30, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// withID attaches the {id} route parameter the way chi does.
func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func call(t *testing.T, h http.HandlerFunc, method, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := withID(httptest.NewRequest(method, "/api/v1/sessions/"+id, r), id)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) StateResponse {
	t.Helper()
	var state StateResponse
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	return state
}

func upload(t *testing.T, h http.HandlerFunc, id, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "logo.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	mw.Close()

	req := withID(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/layers", &body), id)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandleCreateAndGet(t *testing.T) {
	reg := newRegistry()

	rec := httptest.NewRecorder()
	HandleCreate(reg)(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusCreated)
	}
	var created CreateResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil || created.ID == "" {
		t.Fatalf("bad create response: %v %+v", err, created)
	}

	rec = call(t, HandleGet(reg), http.MethodGet, created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status code mismatch: got %d", rec.Code)
	}
	state := decodeState(t, rec)
	if state.ID != created.ID || state.ActiveView != core.ViewFront || state.Color != "#ffffff" || state.Phase != "idle" {
		t.Errorf("unexpected state %+v", state)
	}
	if len(state.Views) != 4 {
		t.Errorf("state should list every view, got %d", len(state.Views))
	}
}

func TestUnknownSession(t *testing.T) {
	reg := newRegistry()
	for name, h := range map[string]http.HandlerFunc{
		"get":     HandleGet(reg),
		"delete":  HandleDelete(reg),
		"preview": HandlePreview(reg),
	} {
		t.Run(name, func(t *testing.T) {
			if rec := call(t, h, http.MethodGet, "missing", ""); rec.Code != http.StatusNotFound {
				t.Errorf("Status code mismatch: got %d, want 404", rec.Code)
			}
		})
	}
}

func TestHandleSettings(t *testing.T) {
	reg := newRegistry()
	id := reg.Create().ID()

	if rec := call(t, HandleSetColor(reg), http.MethodPut, id, `{"color":"teal"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad colour: got %d", rec.Code)
	}
	if rec := call(t, HandleSetColor(reg), http.MethodPut, id, `{"color":`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: got %d", rec.Code)
	}
	rec := call(t, HandleSetColor(reg), http.MethodPut, id, `{"color":"#1E3A8A"}`)
	if state := decodeState(t, rec); state.Color != "#1e3a8a" {
		t.Errorf("color = %q", state.Color)
	}

	if rec := call(t, HandleSetView(reg), http.MethodPut, id, `{"view":"collar"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad view: got %d", rec.Code)
	}
	rec = call(t, HandleSetView(reg), http.MethodPut, id, `{"view":"leftArm"}`)
	if state := decodeState(t, rec); state.ActiveView != core.ViewLeftArm {
		t.Errorf("view = %q", state.ActiveView)
	}

	rec = call(t, HandleSetGrid(reg), http.MethodPut, id, `{"visible":true}`)
	if state := decodeState(t, rec); !state.GridVisible {
		t.Error("grid should be visible")
	}
}

func TestHandleUpload(t *testing.T) {
	reg := newRegistry()
	id := reg.Create().ID()
	h := HandleUpload(reg, 1<<20)

	rec := upload(t, h, id, "image", pngBytes(t, 40, 20))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	var created CreateResponse
	json.NewDecoder(rec.Body).Decode(&created)

	state := decodeState(t, call(t, HandleGet(reg), http.MethodGet, id, ""))
	front := state.Views[core.ViewFront]
	if len(front) != 1 || front[0].ID != created.ID || state.SelectedID != created.ID {
		t.Fatalf("uploaded layer not selected on the front: %+v", state)
	}
	if front[0].NaturalSize != (core.Size{W: 40, H: 20}) || front[0].Transform.Scale != 1 {
		t.Errorf("layer = %+v", front[0])
	}

	if rec := upload(t, h, id, "image", []byte("definitely not an image")); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("garbage upload: got %d, want 422", rec.Code)
	}
	if rec := upload(t, h, id, "file", pngBytes(t, 4, 4)); rec.Code != http.StatusBadRequest {
		t.Errorf("wrong field: got %d, want 400", rec.Code)
	}
	if rec := upload(t, HandleUpload(reg, 64), id, "image", pngBytes(t, 64, 64)); rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized upload: got %d, want 413", rec.Code)
	}

	state = decodeState(t, call(t, HandleGet(reg), http.MethodGet, id, ""))
	if len(state.Views[core.ViewFront]) != 1 {
		t.Error("rejected uploads must not add layers")
	}
}

func TestHandleSelectedLayer(t *testing.T) {
	reg := newRegistry()
	s := reg.Create()
	id := s.ID()

	if rec := call(t, HandlePatchSelected(reg), http.MethodPatch, id, `{"scale":1.5}`); rec.Code != http.StatusConflict {
		t.Errorf("patch without selection: got %d, want 409", rec.Code)
	}

	if _, err := s.AddUpload(pngBytes(t, 10, 10), "logo.png"); err != nil {
		t.Fatal(err)
	}
	rec := call(t, HandlePatchSelected(reg), http.MethodPatch, id, `{"scale":1.5,"rotation":90,"opacity":0.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: got %d", rec.Code)
	}
	tr := decodeState(t, rec).Views[core.ViewFront][0].Transform
	if tr.Scale != 1.5 || tr.Rotation != 90 || tr.Opacity != 0.5 {
		t.Errorf("transform = %+v", tr)
	}

	rec = call(t, HandleResetSelected(reg), http.MethodPost, id, "")
	tr = decodeState(t, rec).Views[core.ViewFront][0].Transform
	if tr != core.DefaultTransform(editor.DefaultConfig().Center) {
		t.Errorf("reset transform = %+v", tr)
	}

	rec = call(t, HandleRemoveSelected(reg), http.MethodDelete, id, "")
	state := decodeState(t, rec)
	if len(state.Views[core.ViewFront]) != 0 || state.SelectedID != "" {
		t.Errorf("layer not removed: %+v", state)
	}
	if rec := call(t, HandleRemoveSelected(reg), http.MethodDelete, id, ""); rec.Code != http.StatusConflict {
		t.Errorf("second remove: got %d, want 409", rec.Code)
	}
}

func TestHandlePointer(t *testing.T) {
	reg := newRegistry()
	s := reg.Create()
	id := s.ID()
	if _, err := s.AddUpload(pngBytes(t, 100, 100), "logo.png"); err != nil {
		t.Fatal(err)
	}
	center := editor.DefaultConfig().Center
	h := HandlePointer(reg)

	rec := call(t, h, http.MethodPost, id, fmt.Sprintf(`{"type":"down","x":%g,"y":%g}`, center.X, center.Y))
	if state := decodeState(t, rec); state.Phase != "dragging" {
		t.Errorf("phase after down = %q", state.Phase)
	}
	call(t, h, http.MethodPost, id, `{"type":"move","x":300,"y":150}`)
	rec = call(t, h, http.MethodPost, id, `{"type":"up"}`)
	state := decodeState(t, rec)
	if state.Phase != "selected" {
		t.Errorf("phase after up = %q", state.Phase)
	}
	if pos := state.Views[core.ViewFront][0].Transform.Position; pos != (core.Point{X: 300, Y: 150}) {
		t.Errorf("position = %+v", pos)
	}

	if rec := call(t, h, http.MethodPost, id, `{"type":"wheel"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown event: got %d", rec.Code)
	}
}

func TestHandlePreviewAndDownload(t *testing.T) {
	reg := newRegistry()
	id := reg.Create().ID()

	rec := call(t, HandlePreview(reg), http.MethodGet, id, "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("preview: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("preview is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != garment.DefaultWidth || b.Dy() != garment.DefaultHeight {
		t.Errorf("preview bounds %v", b)
	}

	p := export.New(garment.NewRenderer(garment.DefaultOptions()), export.Options{})
	rec = call(t, HandleDownload(reg, p), http.MethodGet, id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download: got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="custom-garment-front-design.png"` {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestHandleExport(t *testing.T) {
	reg := newRegistry()
	s := reg.Create()
	s.AddUpload(pngBytes(t, 10, 10), "logo.png")
	s.SetView(core.ViewRightArm)
	s.AddUpload(pngBytes(t, 10, 10), "sleeve.png")

	store := newMockArtifactStore()
	p := export.New(garment.NewRenderer(garment.DefaultOptions()), export.Options{UnitPrice: 1000})
	rec := call(t, HandleExport(reg, p, store), http.MethodPost, s.ID(), `{"quantity":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp ExportResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Artifacts) != 3 || len(store.artifacts) != 3 {
		t.Errorf("expected front, back and right arm artifacts, got %v", resp.Artifacts)
	}
	if _, ok := resp.Artifacts[core.ViewLeftArm]; ok {
		t.Error("empty sleeve must not be exported")
	}
	if resp.Metadata.TotalPrice != 3000 || len(resp.Metadata.Designs[core.ViewRightArm]) != 1 {
		t.Errorf("metadata = %+v", resp.Metadata)
	}

	if rec := call(t, HandleExport(reg, p, store), http.MethodPost, s.ID(), `{"quantity":1001}`); rec.Code != http.StatusBadRequest {
		t.Errorf("oversized quantity: got %d", rec.Code)
	}

	store.createErr = fmt.Errorf("disk full")
	if rec := call(t, HandleExport(reg, p, store), http.MethodPost, s.ID(), ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("store failure: got %d", rec.Code)
	}
}

func TestHandleSubmit(t *testing.T) {
	reg := newRegistry()
	s := reg.Create()
	sub := &mockSubmitter{}
	p := export.New(garment.NewRenderer(garment.DefaultOptions()), export.Options{Submitter: sub})
	h := HandleSubmit(reg, p)

	rec := call(t, h, http.MethodPost, s.ID(), `{"quantity":1,"shippingAddress":{"name":"Ada"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("incomplete order: got %d", rec.Code)
	}
	var verr struct {
		Fields []string `json:"fields"`
	}
	json.NewDecoder(rec.Body).Decode(&verr)
	if len(verr.Fields) != 5 || verr.Fields[0] != "address" {
		t.Errorf("fields = %v", verr.Fields)
	}
	if sub.called {
		t.Error("submitter must not be called for an invalid order")
	}

	body := `{"quantity":2,"shippingAddress":{"name":"Ada","address":"1 Loom St","city":"Leeds","postalCode":"LS1","country":"UK","phone":"0123"}}`
	req := withID(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+s.ID()+"/submit", strings.NewReader(body)), s.ID())
	req = req.WithContext(context.WithValue(req.Context(), middleware.TokenContextKey, "bearer-token"))
	rec = httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: got %d (%s)", rec.Code, rec.Body.String())
	}
	var resp SubmitResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.OrderID != "order-42" || sub.token != "bearer-token" {
		t.Errorf("order %q token %q", resp.OrderID, sub.token)
	}
}

func TestHandleDelete(t *testing.T) {
	reg := newRegistry()
	id := reg.Create().ID()

	if rec := call(t, HandleDelete(reg), http.MethodDelete, id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete: got %d", rec.Code)
	}
	if _, err := reg.Get(id); err == nil {
		t.Error("session still registered")
	}
}
