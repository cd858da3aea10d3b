// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Request constants
const (
	// MaxRequestBodySize caps JSON request bodies. Frames and reference
	// images arrive base64 encoded, so this is about 3/4 of it in pixels.
	MaxRequestBodySize = 32 << 20

	// DefaultSearchLimit is the default number of ranked identities returned by search
	DefaultSearchLimit = 10

	// MaxSearchLimit is the largest accepted search limit
	MaxSearchLimit = 1000
)

// Server constants
const (
	// RequestTimeout bounds a single API request including analyzer calls
	RequestTimeout = 5 * time.Minute

	// ReadTimeout is the HTTP server read timeout
	ReadTimeout = 30 * time.Second

	// IdleTimeout is the HTTP server keep-alive timeout
	IdleTimeout = 60 * time.Second

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout = 10 * time.Second
)

// Import constants
const (
	// ImportWorkers is the default number of parallel enrollments for bulk import
	ImportWorkers = 2
)
