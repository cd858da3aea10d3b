// Package analyzer defines the contracts for the external face analysis
// model (detection, attributes and embeddings) and an HTTP client for a
// DeepFace-compatible API server.
package analyzer

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-gallery/internal/embedding"
	"github.com/kozaktomas/face-gallery/internal/facematch"
)

// ErrNoFace is returned by an Embedder when the image holds no usable face.
var ErrNoFace = errors.New("no face detected")

// DefaultActions are the attribute predictions requested from the detector.
var DefaultActions = []string{"emotion", "age", "gender"}

// Detection is one face found by the detector. Attribute fields are nil
// when the analyzer did not return them.
type Detection struct {
	Region          facematch.Region
	DominantEmotion *string
	Emotion         map[string]float64
	Age             *int
	DominantGender  *string
	FaceConfidence  *float64
}

// EmbeddingResult is the embedding of the most prominent face in an image.
type EmbeddingResult struct {
	Embedding      embedding.Vector
	Model          string
	FaceConfidence *float64
}

// Detector finds faces and predicts their attributes. Implementations must
// not fail when no face is found (detection is never enforced); they return
// an empty or degenerate detection list instead.
type Detector interface {
	Analyze(ctx context.Context, imageData []byte) ([]Detection, error)
}

// Embedder computes a face embedding for an image or face crop.
// It returns ErrNoFace when no usable face is present.
type Embedder interface {
	Represent(ctx context.Context, imageData []byte) (*EmbeddingResult, error)
}
