// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Upload constants
const (
	// MaxUploadSize is the maximum multipart enrollment upload in bytes (64MB)
	MaxUploadSize = 64 << 20

	// MaxJSONBodySize bounds JSON request bodies; webcam frames arrive base64 encoded
	MaxJSONBodySize = 16 << 20

	// MaxEnrollImages is the maximum number of images accepted in one enrollment request
	MaxEnrollImages = 20

	// MaxImagePixels bounds the declared dimensions of a decoded image (40 megapixels)
	MaxImagePixels = 40_000_000
)

// Listing constants
const (
	// DefaultAttendanceLimit caps attendance listings returned by the API
	DefaultAttendanceLimit = 500
)

// Server constants
const (
	// ShutdownTimeout is how long serve waits for in-flight requests on SIGINT/SIGTERM
	ShutdownTimeout = 30 * time.Second

	// RequestTimeout bounds a single HTTP request, including face extraction
	RequestTimeout = 2 * time.Minute
)
