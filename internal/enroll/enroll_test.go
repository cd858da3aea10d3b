package enroll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-gallery/internal/analyzer"
	"github.com/kozaktomas/face-gallery/internal/analyzer/mock"
	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/kozaktomas/face-gallery/internal/match"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T, embedder analyzer.Embedder, opts Options) (*Service, *gallery.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := gallery.Load(filepath.Join(dir, "people_list.json"))
	if err != nil {
		t.Fatal(err)
	}
	imageDir := filepath.Join(dir, "people_database")
	opts.ImageDir = imageDir
	return NewService(store, embedder, opts), store, imageDir
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	return len(entries)
}

func TestEnroll(t *testing.T) {
	svc, store, imageDir := newTestService(t, mock.NewMockEmbedder(1, 0, 0), Options{})

	ident, err := svc.Enroll(context.Background(), "  Alice  ", testPNG(t))
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if ident.Name != "Alice" {
		t.Errorf("Name = %q; want Alice", ident.Name)
	}
	if ident.ID == "" {
		t.Error("ID is empty")
	}
	if want := filepath.Join(imageDir, "Alice.png"); ident.ImagePath != want {
		t.Errorf("ImagePath = %s; want %s", ident.ImagePath, want)
	}
	if ident.AddedAt.Location() != time.UTC {
		t.Errorf("AddedAt location = %v; want UTC", ident.AddedAt.Location())
	}

	data, err := os.ReadFile(ident.ImagePath)
	if err != nil {
		t.Fatalf("image not written: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("stored image is not a PNG: %v", err)
	}

	got, err := store.Get(ident.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Embedding) != 3 || got.Embedding[0] != 1 {
		t.Errorf("stored embedding = %v", got.Embedding)
	}
}

func TestEnroll_DuplicateNames(t *testing.T) {
	svc, store, imageDir := newTestService(t, mock.NewMockEmbedder(0, 1), Options{})

	first, err := svc.Enroll(context.Background(), "Bob", testPNG(t))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Enroll(context.Background(), "Bob", testPNG(t))
	if err != nil {
		t.Fatal(err)
	}

	if first.ID == second.ID {
		t.Error("duplicate names produced the same id")
	}
	if first.ImagePath == second.ImagePath {
		t.Error("duplicate names produced the same image path")
	}
	if want := filepath.Join(imageDir, "Bob_1.png"); second.ImagePath != want {
		t.Errorf("second ImagePath = %s; want %s", second.ImagePath, want)
	}
	if store.Len() != 2 {
		t.Errorf("gallery size = %d; want 2", store.Len())
	}
}

func TestEnroll_StorageName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Jan Novák", "Jan_Novak.png"},
		{"../../etc/passwd", "etcpasswd.png"},
		{"!!!", "person.png"},
		{strings.Repeat("a", 400), strings.Repeat("a", 100) + ".png"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, imageDir := newTestService(t, mock.NewMockEmbedder(1, 1), Options{})
			ident, err := svc.Enroll(context.Background(), tc.name, testPNG(t))
			if err != nil {
				t.Fatal(err)
			}
			if want := filepath.Join(imageDir, tc.want); ident.ImagePath != want {
				t.Errorf("ImagePath = %s; want %s", ident.ImagePath, want)
			}
			if ident.Name != tc.name {
				t.Errorf("Name = %q; want display name kept as %q", ident.Name, tc.name)
			}
		})
	}
}

func TestEnroll_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		person   string
		data     func(t *testing.T) []byte
		embedder *mock.MockEmbedder
		wantErr  error
	}{
		{
			name:     "empty name",
			person:   "   ",
			data:     testPNG,
			embedder: mock.NewMockEmbedder(1),
			wantErr:  ErrInvalidName,
		},
		{
			name:     "invalid image",
			person:   "Carol",
			data:     func(*testing.T) []byte { return []byte("not an image") },
			embedder: mock.NewMockEmbedder(1),
			wantErr:  ErrInvalidImage,
		},
		{
			name:     "no face",
			person:   "Carol",
			data:     testPNG,
			embedder: mock.NewMockEmbedder(),
			wantErr:  ErrNoFaceDetected,
		},
		{
			name:     "embedder failure",
			person:   "Carol",
			data:     testPNG,
			embedder: &mock.MockEmbedder{RepresentError: context.DeadlineExceeded},
			wantErr:  ErrEmbedding,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, imageDir := newTestService(t, tc.embedder, Options{})

			_, err := svc.Enroll(context.Background(), tc.person, tc.data(t))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Enroll() error = %v; want %v", err, tc.wantErr)
			}
			if store.Len() != 0 {
				t.Errorf("gallery size = %d; want 0", store.Len())
			}
			if n := countFiles(t, imageDir); n != 0 {
				t.Errorf("image dir holds %d files; want 0", n)
			}
		})
	}
}

func TestEnroll_EmbedderErrorKeepsCause(t *testing.T) {
	svc, _, _ := newTestService(t, &mock.MockEmbedder{RepresentError: context.DeadlineExceeded}, Options{})

	_, err := svc.Enroll(context.Background(), "Dave", testPNG(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Enroll() error = %v; want wrapped DeadlineExceeded", err)
	}
}

func TestEnroll_StorageExhausted(t *testing.T) {
	svc, store, imageDir := newTestService(t, mock.NewMockEmbedder(1), Options{MaxNameAttempts: 3})

	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Eve.png", "Eve_1.png", "Eve_2.png"} {
		if err := os.WriteFile(filepath.Join(imageDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	_, err := svc.Enroll(context.Background(), "Eve", testPNG(t))
	if !errors.Is(err, ErrStorageExhausted) {
		t.Fatalf("Enroll() error = %v; want ErrStorageExhausted", err)
	}
	if store.Len() != 0 {
		t.Errorf("gallery size = %d; want 0", store.Len())
	}
	if n := countFiles(t, imageDir); n != 3 {
		t.Errorf("image dir holds %d files; want 3", n)
	}
}

type failingGallery struct{ err error }

func (f failingGallery) Append(gallery.Identity) error { return f.err }

func TestEnroll_AppendFailureRemovesImage(t *testing.T) {
	imageDir := filepath.Join(t.TempDir(), "images")
	svc := NewService(failingGallery{err: gallery.ErrPersistence}, mock.NewMockEmbedder(1, 2), Options{ImageDir: imageDir})

	_, err := svc.Enroll(context.Background(), "Frank", testPNG(t))
	if !errors.Is(err, gallery.ErrPersistence) {
		t.Fatalf("Enroll() error = %v; want ErrPersistence", err)
	}
	if n := countFiles(t, imageDir); n != 0 {
		t.Errorf("image dir holds %d files; want 0", n)
	}
}

func TestEnroll_PersistenceFailureOnDisk(t *testing.T) {
	svc, store, imageDir := newTestService(t, mock.NewMockEmbedder(1, 2), Options{})

	// A directory in place of the catalog makes the atomic rename fail.
	if err := os.Mkdir(store.Path(), 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Enroll(context.Background(), "Grace", testPNG(t))
	if !errors.Is(err, gallery.ErrPersistence) {
		t.Fatalf("Enroll() error = %v; want ErrPersistence", err)
	}
	if store.Len() != 0 {
		t.Errorf("gallery size = %d; want 0", store.Len())
	}
	if n := countFiles(t, imageDir); n != 0 {
		t.Errorf("image dir holds %d files; want 0", n)
	}
}

func TestEnroll_DimensionMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder(1, 0, 0)
	svc, store, imageDir := newTestService(t, embedder, Options{})

	if _, err := svc.Enroll(context.Background(), "Heidi", testPNG(t)); err != nil {
		t.Fatal(err)
	}
	embedder.Embedding = []float64{1, 0}

	_, err := svc.Enroll(context.Background(), "Ivan", testPNG(t))
	if !errors.Is(err, gallery.ErrDimensionMismatch) {
		t.Fatalf("Enroll() error = %v; want ErrDimensionMismatch", err)
	}
	if store.Len() != 1 {
		t.Errorf("gallery size = %d; want 1", store.Len())
	}
	if n := countFiles(t, imageDir); n != 1 {
		t.Errorf("image dir holds %d files; want 1", n)
	}
}

func TestEnroll_ThenDelete(t *testing.T) {
	svc, store, _ := newTestService(t, mock.NewMockEmbedder(0.6, 0.8), Options{})

	ident, err := svc.Enroll(context.Background(), "Judy", testPNG(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Remove(ident.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(ident.ImagePath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("image still present after remove: %v", err)
	}

	engine, err := match.NewEngine(store, 0)
	if err != nil {
		t.Fatal(err)
	}
	res, err := engine.Match([]float64{0.6, 0.8})
	if err != nil {
		t.Fatal(err)
	}
	if res != nil {
		t.Errorf("Match() after delete = %+v; want nil", res)
	}
}

func TestEnroll_Concurrent(t *testing.T) {
	svc, store, imageDir := newTestService(t, mock.NewMockEmbedder(1, 1), Options{})
	data := testPNG(t)

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Enroll(context.Background(), "Same Name", data); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Enroll() error = %v", err)
	}

	if store.Len() != n {
		t.Errorf("gallery size = %d; want %d", store.Len(), n)
	}
	if got := countFiles(t, imageDir); got != n {
		t.Errorf("image dir holds %d files; want %d", got, n)
	}
	seen := make(map[string]bool)
	for _, ident := range store.Snapshot() {
		if seen[ident.ImagePath] {
			t.Errorf("image path %s used twice", ident.ImagePath)
		}
		seen[ident.ImagePath] = true
	}
	if !seen[filepath.Join(imageDir, fmt.Sprintf("Same_Name_%d.png", n-1))] {
		t.Errorf("expected suffixes up to _%d", n-1)
	}
}
