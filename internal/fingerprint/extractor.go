package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/kozaktomas/attendai/internal/facematch"
)

// ErrNoFaceDetected is returned in strict mode when an image contains no face.
var ErrNoFaceDetected = errors.New("no face detected")

// Extractor turns an image into zero or more normalized face embeddings.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) ([]facematch.Vector, error)
}

// FaceExtractor extracts embeddings through the embedding server.
type FaceExtractor struct {
	client  *EmbeddingClient
	strict  bool
	maxSize int
}

// NewFaceExtractor creates an extractor. In strict mode a frame without a
// face is an error; otherwise it yields no embeddings.
func NewFaceExtractor(client *EmbeddingClient, strict bool) *FaceExtractor {
	return &FaceExtractor{
		client:  client,
		strict:  strict,
		maxSize: DefaultMaxImageSize,
	}
}

// Extract detects faces in img and returns one normalized embedding per face,
// in the order the server reports them.
func (e *FaceExtractor) Extract(ctx context.Context, img image.Image) ([]facematch.Vector, error) {
	data, err := EncodeJPEG(img, e.maxSize)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.ComputeFaceEmbeddings(ctx, data, e.strict)
	if err != nil {
		if errors.Is(err, ErrNoFaceDetected) && !e.strict {
			return nil, nil
		}
		return nil, fmt.Errorf("compute face embeddings: %w", err)
	}

	vectors := make([]facematch.Vector, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		if len(face.Embedding) == 0 {
			continue
		}
		vectors = append(vectors, facematch.Normalize(face.Embedding))
	}

	if len(vectors) == 0 && e.strict {
		return nil, ErrNoFaceDetected
	}
	return vectors, nil
}
