package web_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/dreamspace/internal/catalog"
	"github.com/vbonduro/dreamspace/internal/db"
	"github.com/vbonduro/dreamspace/internal/detection"
	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/filestore"
	"github.com/vbonduro/dreamspace/internal/filestore/local"
	"github.com/vbonduro/dreamspace/internal/layout"
	"github.com/vbonduro/dreamspace/internal/render/mock"
	"github.com/vbonduro/dreamspace/internal/service"
	"github.com/vbonduro/dreamspace/internal/store"
	"github.com/vbonduro/dreamspace/internal/web"
)

// stubModel reports a fixed set of raw detections for every image.
type stubModel struct {
	objects []domain.DetectedObject
}

func (m *stubModel) Detect(context.Context, detection.Image) ([]domain.DetectedObject, error) {
	return m.objects, nil
}

// newTestServer wires the real services over in-memory SQLite, a local file
// backend in a temp dir and the mock renderer.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)

	root := t.TempDir()
	backend, err := local.New(filepath.Join(root, "uploads"))
	require.NoError(t, err)
	files, err := filestore.NewManager(filepath.Join(root, "tmp"), backend, slog.Default())
	require.NoError(t, err)

	cat := catalog.Default()
	projects := store.NewProjectStore(database)
	layouts := layout.NewStore(projects, cat)
	model := &stubModel{objects: []domain.DetectedObject{
		{Name: "couch", Confidence: 0.87, BBox: domain.NewBoundingBox(5, 5, 60, 40)},
		{Name: "person", Confidence: 0.95},
	}}

	srv := httptest.NewServer(web.NewServer(
		service.NewProjectService(projects, layouts, slog.Default()),
		service.NewGenerationService(store.NewGenerationStore(database), layouts, mock.New(), files, nil, 5*time.Second, slog.Default()),
		service.NewUploadService(detection.NewAdapter(model), files, slog.Default()),
		service.NewFurnitureService(store.NewFurnitureStore(database), mock.New(), files, 5*time.Second, slog.Default()),
		files,
		cat,
		web.Options{MaxUploadSize: 5 << 20, MaxCanvasSize: 5 << 20, MetricsEnabled: true},
		slog.Default(),
	))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv
}

func canvasDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for y := range 300 {
		for x := range 400 {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func doJSON(t *testing.T, method, url string, body any, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestIntegration_GenerateAndFetchImage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/generate", map[string]any{
		"canvas_image": canvasDataURI(t),
		"furniture": []map[string]any{
			{"name": "sofa", "x": 10, "y": 20, "width": 100, "height": 50},
			{"name": "table", "x": 200, "y": 200, "width": 80, "height": 80},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["success"])
	genID, _ := body["generation_id"].(string)
	ref, _ := body["generated_image_ref"].(string)
	assert.Regexp(t, `^gen_[0-9a-f]{16}$`, genID)
	assert.Regexp(t, `^generated_[0-9a-f]{8}\.png$`, ref)

	fileResp, err := http.Get(srv.URL + "/files/" + ref)
	require.NoError(t, err)
	defer fileResp.Body.Close()
	require.Equal(t, http.StatusOK, fileResp.StatusCode)
	assert.Equal(t, "image/png", fileResp.Header.Get("Content-Type"))
	img, err := png.Decode(fileResp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 300), img.Bounds())

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/generations/"+genID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, ref, body["generated_image_ref"])
}

func TestIntegration_GenerateValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/generate", map[string]any{
		"canvas_image": canvasDataURI(t),
		"furniture":    []any{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body, "generation_id")

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/generate", map[string]any{
		"canvas_image": "data:image/png;base64,%%%",
		"furniture":    []map[string]any{{"name": "sofa", "width": 1, "height": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/generate", strings.NewReader("{not json"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestIntegration_ProjectLayoutFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/projects", map[string]any{"name": "Living Room", "room_type": "living_room"}, "X-User-Id", "u1")
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	project := body["project"].(map[string]any)
	id := project["id"].(string)
	assert.Equal(t, "u1", project["owner_id"])
	base := srv.URL + "/projects/" + id

	resp, body = doJSON(t, http.MethodPost, base+"/furniture", map[string]any{
		"furniture_id": "chair2",
		"position":     map[string]any{"x": 10, "y": 20, "z": 0},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, float64(1), body["entry_id"])

	resp, body = doJSON(t, http.MethodPost, base+"/furniture", map[string]any{"furniture_id": "table2"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, float64(2), body["entry_id"])
	assert.Len(t, body["furniture_layout"], 2)

	resp, _ = doJSON(t, http.MethodPost, base+"/furniture", map[string]any{"furniture_id": "spaceship"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPatch, base+"/furniture/2", map[string]any{"scale": map[string]any{"x": 2, "y": 2, "z": 1}})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	scale := body["furniture"].(map[string]any)["scale"].(map[string]any)
	assert.Equal(t, float64(2), scale["x"])

	resp, body = doJSON(t, http.MethodDelete, base+"/furniture/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "chair2", body["removed_furniture"].(map[string]any)["furniture_id"])
	assert.Len(t, body["furniture_layout"], 1)

	resp, _ = doJSON(t, http.MethodDelete, base+"/furniture/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, base+"/furniture/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/projects/missing/furniture/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, base+"/generate", map[string]any{"canvas_image": canvasDataURI(t)})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body["prompt"], "coffee table")

	resp, body = doJSON(t, http.MethodGet, base+"/generations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["generations"], 1)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/projects", nil, "X-User-Id", "u1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/projects", nil, "X-User-Id", "someone-else")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["total"])

	resp, body = doJSON(t, http.MethodPatch, base, map[string]any{"name": "Den"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Den", body["project"].(map[string]any)["name"])

	resp, _ = doJSON(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func uploadFile(t *testing.T, url, filename string, data []byte) (*http.Response, map[string]any) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := http.Post(url, w.FormDataContentType(), body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestIntegration_UploadPhoto(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	resp, body := uploadFile(t, srv.URL+"/upload", "living room.png", buf.Bytes())
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	ref := body["image_ref"].(string)
	assert.Regexp(t, `^[0-9a-f]{32}_living_room\.png$`, ref)

	analysis := body["analysis"].(map[string]any)
	assert.Equal(t, float64(1), analysis["total_objects"])
	dims := analysis["image_dimensions"].(map[string]any)
	assert.Equal(t, float64(64), dims["width"])
	assert.Equal(t, float64(48), dims["height"])

	fileResp, err := http.Get(srv.URL + "/files/" + ref)
	require.NoError(t, err)
	defer fileResp.Body.Close()
	assert.Equal(t, http.StatusOK, fileResp.StatusCode)
	got, err := io.ReadAll(fileResp.Body)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), got)

	resp, _ = uploadFile(t, srv.URL+"/upload", "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_AnalyzeStoredPhoto(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	resp, body := uploadFile(t, srv.URL+"/upload", "den.png", buf.Bytes())
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	ref := body["image_ref"].(string)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/analyze", map[string]any{"image_ref": ref})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	analysis := body["analysis"].(map[string]any)
	assert.Equal(t, float64(1), analysis["total_objects"])
	dims := analysis["image_dimensions"].(map[string]any)
	assert.Equal(t, float64(32), dims["width"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/analyze", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/analyze", map[string]any{"image_ref": "missing.png"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_FurnitureLibrary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/generate-furniture", map[string]any{
		"category": "table",
		"style":    "modern",
		"color":    "white",
		"material": "marble",
	}, "X-User-Id", "u1")
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	item := body["furniture"].(map[string]any)
	assert.Equal(t, "Modern Table", item["name"])
	assert.Equal(t, "stylish modern white marble table, white background, studio lighting, detailed texture", item["prompt_used"])
	ref := item["image_ref"].(string)

	fileResp, err := http.Get(srv.URL + "/files/" + ref)
	require.NoError(t, err)
	defer fileResp.Body.Close()
	require.Equal(t, http.StatusOK, fileResp.StatusCode)
	rendered, err := png.Decode(fileResp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 512, 512), rendered.Bounds())

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/generate-furniture", map[string]any{
		"category": "chair", "style": "cozy",
	}, "X-User-Id", "u2")
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/generate-furniture", map[string]any{"category": "chair"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/furniture-library", nil, "X-User-Id", "u1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(20), body["per_page"])

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/furniture-library?category=chair", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total"])
	list := body["furniture"].([]any)
	assert.Equal(t, "Cozy Chair", list[0].(map[string]any)["name"])
}

func TestIntegration_FileNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/files/generated_deadbeef.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_SuggestStyle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/suggest-style", map[string]any{
		"room_type":        "bedroom",
		"detected_objects": []map[string]any{{"name": "couch"}, {"name": "tv"}},
		"room_dimensions":  map[string]any{"width": 500, "height": 500},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	styles := body["suggested_styles"].([]any)
	require.Len(t, styles, 5)
	assert.Equal(t, "cozy", styles[0].(map[string]any)["style"])
	summary := body["analysis_summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["existing_furniture_count"])
}

func TestIntegration_Ambient(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", nil, "X-Request-Id", "trace-42")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "trace-42", resp.Header.Get("X-Request-Id"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Len(t, resp.Header.Get("X-Request-Id"), 32)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/catalog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["categories"], 4)

	metricsResp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)
	text, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), fmt.Sprintf("dreamspace_http_request_duration_seconds_count{method=%q,path=%q", "GET", "GET /health"))
}
