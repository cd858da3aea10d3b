package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-gallery/internal/config"
	"github.com/kozaktomas/face-gallery/internal/gallery"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Match: config.MatchConfig{Threshold: 0.4},
		Analyzer: config.AnalyzerConfig{
			Model:    "VGG-Face",
			Detector: "opencv",
		},
		Models: config.ModelsConfig{
			Models: map[string]config.ModelInfo{
				"VGG-Face":   {Dimension: 4096, Threshold: 0.68},
				"Facenet512": {Dimension: 512, Threshold: 0.30},
			},
		},
	}
}

// testGallery creates an empty gallery in a temp dir, optionally seeded
func testGallery(t *testing.T, identities ...gallery.Identity) *gallery.Store {
	t.Helper()
	store, err := gallery.Load(filepath.Join(t.TempDir(), "people_list.json"))
	if err != nil {
		t.Fatalf("failed to create gallery: %v", err)
	}
	for _, ident := range identities {
		if err := store.Append(ident); err != nil {
			t.Fatalf("failed to seed gallery: %v", err)
		}
	}
	return store
}

// testIdentity creates an identity enrolled at a fixed time plus offset minutes
func testIdentity(id, name string, offset int, vec ...float64) gallery.Identity {
	return gallery.Identity{
		ID:        id,
		Name:      name,
		Embedding: vec,
		AddedAt:   time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC).Add(time.Duration(offset) * time.Minute),
	}
}

// testImageBase64 returns a small PNG as a data URI
func testImageBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x * 40), B: uint8(y * 40), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// jsonRequest creates a request with a JSON-encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// bytesReader wraps a string body
func bytesReader(s string) *bytes.Reader {
	return bytes.NewReader([]byte(s))
}

// mustDecode decodes a data URI produced by testImageBase64
func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	_, payload, _ := strings.Cut(s, ",")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
