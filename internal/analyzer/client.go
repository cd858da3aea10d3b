package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-gallery/internal/embedding"
	"github.com/kozaktomas/face-gallery/internal/facematch"
	"github.com/kozaktomas/face-gallery/internal/imaging"
	"golang.org/x/time/rate"
)

const (
	defaultAnalyzerURL = "http://localhost:5005"
	defaultModel       = "VGG-Face"
	defaultTimeout     = 60 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL         string
	Model           string        // embedding model name, e.g. VGG-Face, Facenet512, ArcFace
	DetectorBackend string        // empty leaves the server default
	ExpectedDim     int           // reject embeddings of another length; 0 disables the check
	Timeout         time.Duration // per request; surfaced as an error, never retried
	RateLimit       float64       // requests per second; 0 means unlimited
}

// Client talks to a DeepFace-compatible API server. It implements both
// Detector and Embedder.
type Client struct {
	baseURL     string
	model       string
	detector    string
	expectedDim int
	client      *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a new analyzer client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultAnalyzerURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	c := &Client{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		model:       opts.Model,
		detector:    opts.DetectorBackend,
		expectedDim: opts.ExpectedDim,
		client:      &http.Client{Timeout: opts.Timeout},
	}
	if opts.RateLimit > 0 {
		burst := max(1, int(math.Ceil(opts.RateLimit)))
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// Model returns the embedding model name being used
func (c *Client) Model() string {
	return c.model
}

type analyzeRequest struct {
	Img              string   `json:"img"`
	Actions          []string `json:"actions"`
	EnforceDetection bool     `json:"enforce_detection"`
	DetectorBackend  string   `json:"detector_backend,omitempty"`
}

type representRequest struct {
	Img              string `json:"img"`
	ModelName        string `json:"model_name"`
	EnforceDetection bool   `json:"enforce_detection"`
	DetectorBackend  string `json:"detector_backend,omitempty"`
}

type wireRegion struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type analyzeResult struct {
	Region          *wireRegion        `json:"region"`
	DominantEmotion *string            `json:"dominant_emotion"`
	Emotion         map[string]float64 `json:"emotion"`
	Age             *float64           `json:"age"`
	DominantGender  *string            `json:"dominant_gender"`
	FaceConfidence  *float64           `json:"face_confidence"`
}

type analyzeResponse struct {
	Results []analyzeResult `json:"results"`
}

type representResult struct {
	Embedding      []float64 `json:"embedding"`
	FaceConfidence *float64  `json:"face_confidence"`
}

type representResponse struct {
	Results []representResult `json:"results"`
}

// postJSON sends payload to the given endpoint and returns the response body.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// Analyze detects faces and predicts emotion, age and gender for each.
// Detection is never enforced, so an image without faces is not an error.
func (c *Client) Analyze(ctx context.Context, imageData []byte) ([]Detection, error) {
	body, err := c.postJSON(ctx, "/analyze", analyzeRequest{
		Img:              imaging.EncodeDataURI(imageData),
		Actions:          DefaultActions,
		EnforceDetection: false,
		DetectorBackend:  c.detector,
	})
	if err != nil {
		return nil, err
	}

	var resp analyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	detections := make([]Detection, len(resp.Results))
	for i, r := range resp.Results {
		d := Detection{
			DominantEmotion: r.DominantEmotion,
			Emotion:         r.Emotion,
			DominantGender:  r.DominantGender,
			FaceConfidence:  r.FaceConfidence,
		}
		if r.Region != nil {
			d.Region = facematch.Region{X: r.Region.X, Y: r.Region.Y, W: r.Region.W, H: r.Region.H}
		}
		if r.Age != nil {
			age := int(math.Round(*r.Age))
			d.Age = &age
		}
		detections[i] = d
	}
	return detections, nil
}

// Represent computes the embedding of the most prominent face in the image.
func (c *Client) Represent(ctx context.Context, imageData []byte) (*EmbeddingResult, error) {
	body, err := c.postJSON(ctx, "/represent", representRequest{
		Img:              imaging.EncodeDataURI(imageData),
		ModelName:        c.model,
		EnforceDetection: false,
		DetectorBackend:  c.detector,
	})
	if err != nil {
		return nil, err
	}

	var resp representResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Embedding) == 0 {
		return nil, ErrNoFace
	}

	first := resp.Results[0]
	if c.expectedDim > 0 && len(first.Embedding) != c.expectedDim {
		return nil, fmt.Errorf("model %s returned %d-d embedding, expected %d", c.model, len(first.Embedding), c.expectedDim)
	}

	return &EmbeddingResult{
		Embedding:      embedding.Vector(first.Embedding),
		Model:          c.model,
		FaceConfidence: first.FaceConfidence,
	}, nil
}
