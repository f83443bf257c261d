package render

import (
	"errors"
	"fmt"
)

// ErrImageTooLarge is wrapped by ImageDecodeError when an image exceeds MaxImagePixels.
var ErrImageTooLarge = errors.New("image exceeds pixel limit")

// ErrUnsupportedImage is wrapped by ImageDecodeError for formats other than PNG, JPEG and WebP.
var ErrUnsupportedImage = errors.New("unsupported image format")

// RenderError is returned when a document cannot be serialized. No output
// bytes accompany it.
type RenderError struct {
	Format Format
	Op     string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %s: %v", e.Format, e.Op, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ImageDecodeError reports image bytes that could not be used. Synthesize
// recovers from it by leaving the image out.
type ImageDecodeError struct {
	Err error
}

func (e *ImageDecodeError) Error() string {
	return "image decode: " + e.Err.Error()
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }
