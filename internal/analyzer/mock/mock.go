// Package mock provides mock implementations of analyzer interfaces for testing.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-gallery/internal/analyzer"
	"github.com/kozaktomas/face-gallery/internal/embedding"
)

// MockDetector is a mock implementation of analyzer.Detector
type MockDetector struct {
	mu    sync.Mutex
	calls int

	Detections []analyzer.Detection

	// Error injection
	AnalyzeError error
}

// NewMockDetector creates a detector that always returns the given detections
func NewMockDetector(detections ...analyzer.Detection) *MockDetector {
	return &MockDetector{Detections: detections}
}

// Analyze returns the configured detections
func (m *MockDetector) Analyze(ctx context.Context, imageData []byte) ([]analyzer.Detection, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.AnalyzeError != nil {
		return nil, m.AnalyzeError
	}
	out := make([]analyzer.Detection, len(m.Detections))
	copy(out, m.Detections)
	return out, nil
}

// Calls returns how many times Analyze was called
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockEmbedder is a mock implementation of analyzer.Embedder
type MockEmbedder struct {
	mu    sync.Mutex
	calls int

	// RepresentFunc, when set, decides the result per call.
	RepresentFunc func(ctx context.Context, imageData []byte) (*analyzer.EmbeddingResult, error)

	// Embedding is returned when RepresentFunc is nil.
	Embedding embedding.Vector

	// Error injection
	RepresentError error
}

// NewMockEmbedder creates an embedder that always returns the given vector
func NewMockEmbedder(vec ...float64) *MockEmbedder {
	return &MockEmbedder{Embedding: embedding.Vector(vec)}
}

// Represent returns the configured embedding
func (m *MockEmbedder) Represent(ctx context.Context, imageData []byte) (*analyzer.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RepresentFunc != nil {
		return m.RepresentFunc(ctx, imageData)
	}
	if m.RepresentError != nil {
		return nil, m.RepresentError
	}
	if len(m.Embedding) == 0 {
		return nil, analyzer.ErrNoFace
	}
	return &analyzer.EmbeddingResult{Embedding: m.Embedding.Clone(), Model: "mock"}, nil
}

// Calls returns how many times Represent was called
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
