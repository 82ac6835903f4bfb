package fingerprint

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/kozaktomas/attendai/internal/constants"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultMaxImageSize bounds the longer edge of images sent to the embedding server.
const DefaultMaxImageSize = 1280

// DecodeError reports a frame or upload that is not a decodable image.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode image: %s: %v", e.Reason, e.Err)
	}
	return "decode image: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeFrame decodes a base64 webcam frame, with or without a data URL
// prefix ("data:image/jpeg;base64,...").
func DecodeFrame(frame string) (image.Image, error) {
	data, err := DecodeBase64(frame)
	if err != nil {
		return nil, err
	}
	return DecodeImage(data)
}

// DecodeBase64 returns the raw bytes of a base64 payload or data URL.
func DecodeBase64(frame string) ([]byte, error) {
	frame = strings.TrimSpace(frame)
	if frame == "" {
		return nil, &DecodeError{Reason: "empty frame"}
	}
	if strings.HasPrefix(frame, "data:") {
		comma := strings.IndexByte(frame, ',')
		if comma < 0 {
			return nil, &DecodeError{Reason: "malformed data URL"}
		}
		frame = frame[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		// Some browsers strip padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(frame, "="))
		if err != nil {
			return nil, &DecodeError{Reason: "invalid base64", Err: err}
		}
	}
	return data, nil
}

// DecodeImage decodes raw image bytes (JPEG, PNG, GIF, BMP or WebP).
// Images declaring more than constants.MaxImagePixels are rejected before
// their pixels are allocated.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty image"}
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Reason: "unsupported or corrupt image", Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > constants.MaxImagePixels {
		return nil, &DecodeError{Reason: fmt.Sprintf("image dimensions %dx%d exceed the limit of %d pixels", cfg.Width, cfg.Height, constants.MaxImagePixels)}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Reason: "unsupported or corrupt image", Err: err}
	}
	return img, nil
}

// EncodeJPEG scales img to fit within maxSize (width or height) keeping the
// aspect ratio and encodes it as JPEG.
func EncodeJPEG(img image.Image, maxSize int) ([]byte, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if maxSize > 0 && (width > maxSize || height > maxSize) {
		var newWidth, newHeight int
		if width > height {
			newWidth = maxSize
			newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
		} else {
			newHeight = maxSize
			newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
		}

		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
