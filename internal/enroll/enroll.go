// Package enroll registers new identities: it stores the reference image,
// computes its embedding and appends the identity to the gallery.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-gallery/internal/analyzer"
	"github.com/kozaktomas/face-gallery/internal/facematch"
	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/kozaktomas/face-gallery/internal/imaging"
	"github.com/kozaktomas/face-gallery/internal/metrics"
)

// DefaultMaxNameAttempts bounds the filename collision loop.
const DefaultMaxNameAttempts = 10000

var (
	// ErrInvalidName is returned for an empty display name.
	ErrInvalidName = errors.New("name is required")

	// ErrInvalidImage is returned when the image cannot be decoded.
	ErrInvalidImage = imaging.ErrInvalidImage

	// ErrNoFaceDetected is returned when the embedder finds no usable face.
	ErrNoFaceDetected = errors.New("no face detected in the image")

	// ErrStorageExhausted is returned when no free image filename was found.
	ErrStorageExhausted = errors.New("no free image filename")

	// ErrEmbedding wraps any other embedder failure, including timeouts.
	ErrEmbedding = errors.New("embedding failed")
)

// Gallery is the write side of the gallery store.
type Gallery interface {
	Append(ident gallery.Identity) error
}

// Service enrolls identities. It is safe for concurrent use.
type Service struct {
	gallery         Gallery
	embedder        analyzer.Embedder
	imageDir        string
	maxNameAttempts int
	metrics         *metrics.Metrics

	now   func() time.Time
	newID func() string
}

// Options configures a Service.
type Options struct {
	ImageDir        string
	MaxNameAttempts int
	Metrics         *metrics.Metrics
}

// NewService creates an enrollment service.
func NewService(g Gallery, embedder analyzer.Embedder, opts Options) *Service {
	if opts.MaxNameAttempts <= 0 {
		opts.MaxNameAttempts = DefaultMaxNameAttempts
	}
	return &Service{
		gallery:         g,
		embedder:        embedder,
		imageDir:        opts.ImageDir,
		maxNameAttempts: opts.MaxNameAttempts,
		metrics:         opts.Metrics,
		now:             time.Now,
		newID:           uuid.NewString,
	}
}

// Enroll stores imageData under a filename derived from name, embeds it and
// appends a new identity. On any failure after the image file was created
// the file is removed again and the gallery is left unchanged.
func (s *Service) Enroll(ctx context.Context, name string, imageData []byte) (gallery.Identity, error) {
	ident, err := s.enroll(ctx, name, imageData)
	s.metrics.ObserveEnrollment(enrollStatus(err))
	return ident, err
}

func (s *Service) enroll(ctx context.Context, name string, imageData []byte) (gallery.Identity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return gallery.Identity{}, ErrInvalidName
	}

	img, _, err := imaging.Decode(imageData)
	if err != nil {
		return gallery.Identity{}, err
	}
	pngData, err := imaging.EncodePNG(img)
	if err != nil {
		return gallery.Identity{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	imagePath, err := s.writeImage(facematch.StorageName(name), pngData)
	if err != nil {
		return gallery.Identity{}, err
	}

	started := time.Now()
	result, err := s.embedder.Represent(ctx, pngData)
	s.metrics.ObserveEmbed("enroll", time.Since(started))
	if err != nil {
		s.discardImage(imagePath)
		if errors.Is(err, analyzer.ErrNoFace) {
			return gallery.Identity{}, ErrNoFaceDetected
		}
		return gallery.Identity{}, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if result == nil || len(result.Embedding) == 0 {
		s.discardImage(imagePath)
		return gallery.Identity{}, ErrNoFaceDetected
	}

	ident := gallery.Identity{
		ID:        s.newID(),
		Name:      name,
		Embedding: result.Embedding,
		ImagePath: imagePath,
		AddedAt:   s.now().UTC(),
	}
	if err := s.gallery.Append(ident); err != nil {
		s.discardImage(imagePath)
		return gallery.Identity{}, fmt.Errorf("failed to add %s to gallery: %w", name, err)
	}

	log.Printf("Enrolled %s as %s (%s)", name, ident.ID, imagePath)
	return ident, nil
}

// writeImage reserves <dir>/<base>.png, <base>_1.png, ... with an exclusive
// create and writes data to the first free name.
func (s *Service) writeImage(base string, data []byte) (string, error) {
	if err := os.MkdirAll(s.imageDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	for i := range s.maxNameAttempts {
		filename := base + ".png"
		if i > 0 {
			filename = fmt.Sprintf("%s_%d.png", base, i)
		}
		path := filepath.Join(s.imageDir, filename)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // name is sanitized
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			s.discardImage(path)
			return "", fmt.Errorf("failed to write %s: %w", path, errors.Join(werr, cerr))
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %d candidates for %q taken", ErrStorageExhausted, s.maxNameAttempts, base)
}

func (s *Service) discardImage(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: failed to remove %s: %v", path, err)
	}
}

func enrollStatus(err error) string {
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.Is(err, ErrInvalidName), errors.Is(err, ErrInvalidImage), errors.Is(err, ErrNoFaceDetected):
		return metrics.StatusRejected
	default:
		return metrics.StatusError
	}
}
