package handlers

import (
	"context"
	"net/http"

	"github.com/kozaktomas/face-gallery/internal/imaging"
	"github.com/kozaktomas/face-gallery/internal/recognize"
)

// FrameAnalyzer recognizes the faces in one video frame.
type FrameAnalyzer interface {
	AnalyzeFrame(ctx context.Context, frameData []byte) ([]recognize.FaceResult, error)
}

// AnalyzeHandler handles frame analysis
type AnalyzeHandler struct {
	frames FrameAnalyzer
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(frames FrameAnalyzer) *AnalyzeHandler {
	return &AnalyzeHandler{frames: frames}
}

// AnalyzeRequest represents a frame analysis request
type AnalyzeRequest struct {
	Image string `json:"image"` // base64, optionally a data URI
}

// AnalyzeResponse represents the faces found in a frame
type AnalyzeResponse struct {
	Faces []recognize.FaceResult `json:"faces"`
}

// Analyze detects and recognizes the faces in a frame
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	faces, err := h.analyze(r.Context(), req.Image)
	if err != nil {
		respondDomainError(w, "analyze frame", err)
		return
	}
	respondJSON(w, http.StatusOK, AnalyzeResponse{Faces: faces})
}

func (h *AnalyzeHandler) analyze(ctx context.Context, image string) ([]recognize.FaceResult, error) {
	data, err := imaging.DecodeDataURI(image)
	if err != nil {
		return nil, err
	}
	faces, err := h.frames.AnalyzeFrame(ctx, data)
	if err != nil {
		return nil, err
	}
	if faces == nil {
		faces = []recognize.FaceResult{}
	}
	return faces, nil
}
