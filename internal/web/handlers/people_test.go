package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-gallery/internal/analyzer"
	"github.com/kozaktomas/face-gallery/internal/analyzer/mock"
	"github.com/kozaktomas/face-gallery/internal/enroll"
	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/kozaktomas/face-gallery/internal/metrics"
)

// createPeopleHandler creates a PeopleHandler backed by a temp gallery and a mock embedder.
func createPeopleHandler(t *testing.T, embedder analyzer.Embedder, seed ...gallery.Identity) (*PeopleHandler, *gallery.Store) {
	t.Helper()
	store := testGallery(t, seed...)
	svc := enroll.NewService(store, embedder, enroll.Options{
		ImageDir: filepath.Join(filepath.Dir(store.Path()), "people_database"),
	})
	return NewPeopleHandler(store, svc, metrics.New()), store
}

func TestPeopleHandler_List(t *testing.T) {
	handler, _ := createPeopleHandler(t, mock.NewMockEmbedder(1, 0),
		testIdentity("b", "Bob", 5, 0, 1),
		testIdentity("a", "Alice", 0, 1, 0),
	)

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/people", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var result []PersonResponse
	parseJSONResponse(t, recorder, &result)
	if len(result) != 2 {
		t.Fatalf("expected 2 people, got %d", len(result))
	}
	if result[0].Name != "Alice" || result[1].Name != "Bob" {
		t.Errorf("expected gallery order Alice, Bob; got %s, %s", result[0].Name, result[1].Name)
	}
}

func TestPeopleHandler_List_Empty(t *testing.T) {
	handler, _ := createPeopleHandler(t, mock.NewMockEmbedder(1))

	recorder := httptest.NewRecorder()
	handler.List(recorder, httptest.NewRequest("GET", "/api/v1/people", nil))

	if body := recorder.Body.String(); body != "[]\n" {
		t.Errorf("expected empty JSON array, got %q", body)
	}
}

func TestPeopleHandler_Get(t *testing.T) {
	handler, _ := createPeopleHandler(t, mock.NewMockEmbedder(1), testIdentity("a", "Alice", 0, 1, 0))

	t.Run("found", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/people/a", nil), map[string]string{"id": "a"})
		recorder := httptest.NewRecorder()
		handler.Get(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var result PersonResponse
		parseJSONResponse(t, recorder, &result)
		if result.ID != "a" || result.Name != "Alice" {
			t.Errorf("unexpected person %+v", result)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/people/zz", nil), map[string]string{"id": "zz"})
		recorder := httptest.NewRecorder()
		handler.Get(recorder, req)

		assertStatusCode(t, recorder, http.StatusNotFound)
	})
}

func TestPeopleHandler_Create(t *testing.T) {
	handler, store := createPeopleHandler(t, mock.NewMockEmbedder(0.6, 0.8))

	req := jsonRequest(t, "POST", "/api/v1/people", EnrollRequest{Name: "Alice", Image: testImageBase64(t)})
	recorder := httptest.NewRecorder()
	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var result PersonResponse
	parseJSONResponse(t, recorder, &result)
	if result.Name != "Alice" || result.ID == "" {
		t.Errorf("unexpected person %+v", result)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 identity in gallery, got %d", store.Len())
	}
}

func TestPeopleHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		embedder   *mock.MockEmbedder
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid json",
			body:       `{invalid json}`,
			embedder:   mock.NewMockEmbedder(1),
			wantStatus: http.StatusBadRequest,
			wantError:  errInvalidRequestBody,
		},
		{
			name:       "missing image",
			body:       `{"name": "Alice"}`,
			embedder:   mock.NewMockEmbedder(1),
			wantStatus: http.StatusBadRequest,
			wantError:  "image is required",
		},
		{
			name:       "bad base64",
			body:       `{"name": "Alice", "image": "data:image/png;base64,@@@"}`,
			embedder:   mock.NewMockEmbedder(1),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not an image",
			body:       `{"name": "Alice", "image": "aGVsbG8gd29ybGQ="}`,
			embedder:   mock.NewMockEmbedder(1),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "embedder unavailable",
			embedder:   &mock.MockEmbedder{RepresentError: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "no face",
			embedder:   mock.NewMockEmbedder(),
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  enroll.ErrNoFaceDetected.Error(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler, store := createPeopleHandler(t, tc.embedder)

			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest("POST", "/api/v1/people", bytesReader(tc.body))
			} else {
				req = jsonRequest(t, "POST", "/api/v1/people", EnrollRequest{Name: "Alice", Image: testImageBase64(t)})
			}
			recorder := httptest.NewRecorder()
			handler.Create(recorder, req)

			assertStatusCode(t, recorder, tc.wantStatus)
			if tc.wantError != "" {
				assertJSONError(t, recorder, tc.wantError)
			}
			if store.Len() != 0 {
				t.Errorf("expected empty gallery, got %d", store.Len())
			}
		})
	}
}

func TestPeopleHandler_Create_EmptyName(t *testing.T) {
	handler, _ := createPeopleHandler(t, mock.NewMockEmbedder(1))

	req := jsonRequest(t, "POST", "/api/v1/people", EnrollRequest{Name: "  ", Image: testImageBase64(t)})
	recorder := httptest.NewRecorder()
	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, enroll.ErrInvalidName.Error())
}

func TestPeopleHandler_Delete(t *testing.T) {
	handler, store := createPeopleHandler(t, mock.NewMockEmbedder(1, 0))

	created, err := handler.enroller.Enroll(context.Background(), "Alice", mustDecode(t, testImageBase64(t)))
	if err != nil {
		t.Fatal(err)
	}

	req := requestWithChiParams(httptest.NewRequest("DELETE", "/api/v1/people/"+created.ID, nil), map[string]string{"id": created.ID})
	recorder := httptest.NewRecorder()
	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusNoContent)
	if store.Len() != 0 {
		t.Errorf("expected empty gallery, got %d", store.Len())
	}
	if _, err := os.Stat(created.ImagePath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected image to be removed, stat err = %v", err)
	}

	// Deleting again is a 404.
	recorder = httptest.NewRecorder()
	handler.Delete(recorder, req)
	assertStatusCode(t, recorder, http.StatusNotFound)
}
