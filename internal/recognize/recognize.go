// Package recognize analyzes video frames: it asks the detector for faces
// and attributes, embeds every usable face crop and matches it against the
// gallery.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/kozaktomas/face-gallery/internal/analyzer"
	"github.com/kozaktomas/face-gallery/internal/embedding"
	"github.com/kozaktomas/face-gallery/internal/facematch"
	"github.com/kozaktomas/face-gallery/internal/imaging"
	"github.com/kozaktomas/face-gallery/internal/match"
	"github.com/kozaktomas/face-gallery/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Defaults for attributes the analyzer did not return.
const (
	UnknownName      = "Unknown"
	UnknownAttribute = "unknown"
)

// DefaultConcurrency is the number of faces embedded in parallel.
const DefaultConcurrency = 4

var (
	// ErrInvalidImage is returned by AnalyzeFrame for undecodable frames.
	ErrInvalidImage = imaging.ErrInvalidImage

	// ErrDetection wraps detector failures. The whole frame is unusable.
	ErrDetection = errors.New("face analysis failed")
)

// Matcher finds the gallery identity closest to an embedding.
type Matcher interface {
	Match(query embedding.Vector) (*match.Result, error)
}

// FaceResult is the analysis of one detected face.
type FaceResult struct {
	Region          facematch.Region   `json:"region"`
	Emotion         map[string]float64 `json:"emotion"`
	DominantEmotion string             `json:"dominant_emotion"`
	Age             int                `json:"age"`
	Gender          string             `json:"gender"`
	Name            string             `json:"name"`
	Confidence      *float64           `json:"confidence,omitempty"`
	IdentityID      string             `json:"identity_id,omitempty"`
}

// Coordinator runs frame analysis. It is safe for concurrent use.
type Coordinator struct {
	detector    analyzer.Detector
	embedder    analyzer.Embedder
	matcher     Matcher
	concurrency int
	metrics     *metrics.Metrics
}

// NewCoordinator creates a coordinator. concurrency <= 0 selects DefaultConcurrency.
func NewCoordinator(detector analyzer.Detector, embedder analyzer.Embedder, matcher Matcher, concurrency int, m *metrics.Metrics) *Coordinator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Coordinator{
		detector:    detector,
		embedder:    embedder,
		matcher:     matcher,
		concurrency: concurrency,
		metrics:     m,
	}
}

// AnalyzeFrame decodes frameData, detects faces and recognizes each of them.
// A detector failure fails the whole frame; per-face failures do not.
func (c *Coordinator) AnalyzeFrame(ctx context.Context, frameData []byte) ([]FaceResult, error) {
	started := time.Now()
	defer func() { c.metrics.ObserveFrame(time.Since(started)) }()

	frame, _, err := imaging.Decode(frameData)
	if err != nil {
		return nil, err
	}

	detections, err := c.detector.Analyze(ctx, frameData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetection, err)
	}
	return c.Process(ctx, frame, detections), nil
}

// Process recognizes every detection in frame. The result has one entry per
// detection, in detection order.
func (c *Coordinator) Process(ctx context.Context, frame image.Image, detections []analyzer.Detection) []FaceResult {
	results := make([]FaceResult, len(detections))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, det := range detections {
		results[i] = newFaceResult(det)
		if !det.Region.Usable() {
			c.metrics.ObserveFace(metrics.FaceSkipped)
			continue
		}
		g.Go(func() error {
			c.recognize(ctx, frame, &results[i])
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return results
}

// recognize fills in the identity of one face. Failures are logged and leave
// the face Unknown.
func (c *Coordinator) recognize(ctx context.Context, frame image.Image, face *FaceResult) {
	res, err := c.identify(ctx, frame, face.Region)
	switch {
	case err != nil:
		log.Printf("Face recognition failed for region %+v: %v", face.Region, err)
		c.metrics.ObserveFace(metrics.FaceError)
	case res == nil:
		c.metrics.ObserveFace(metrics.FaceUnknown)
	default:
		face.Name = res.Name
		face.IdentityID = res.ID
		confidence := res.Confidence
		face.Confidence = &confidence
		c.metrics.ObserveFace(metrics.FaceMatched)
	}
}

func (c *Coordinator) identify(ctx context.Context, frame image.Image, region facematch.Region) (*match.Result, error) {
	crop, err := imaging.Crop(frame, region.ClampTo(frame.Bounds()))
	if err != nil {
		return nil, err
	}
	data, err := imaging.EncodePNG(crop)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	emb, err := c.embedder.Represent(ctx, data)
	c.metrics.ObserveEmbed("recognize", time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("failed to embed face: %w", err)
	}
	if emb == nil {
		return nil, analyzer.ErrNoFace
	}
	return c.matcher.Match(emb.Embedding)
}

func newFaceResult(det analyzer.Detection) FaceResult {
	res := FaceResult{
		Region:          det.Region,
		Emotion:         det.Emotion,
		DominantEmotion: UnknownAttribute,
		Gender:          UnknownAttribute,
		Name:            UnknownName,
	}
	if res.Emotion == nil {
		res.Emotion = map[string]float64{}
	}
	if det.DominantEmotion != nil {
		res.DominantEmotion = *det.DominantEmotion
	}
	if det.DominantGender != nil {
		res.Gender = *det.DominantGender
	}
	if det.Age != nil {
		res.Age = *det.Age
	}
	return res
}
