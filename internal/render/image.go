package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxImagePixels bounds decode memory for uploaded photos.
	MaxImagePixels = 40_000_000
	// maxEmbedPixelWidth caps the pixel width stored in the document.
	maxEmbedPixelWidth = 1200
)

var supportedImageFormats = map[string]bool{"png": true, "jpeg": true, "webp": true}

// PreparedImage is a decoded, downscaled image flattened to an opaque PNG,
// with its display size in points.
type PreparedImage struct {
	PNG           []byte
	Format        string
	Width, Height int
	DisplayWidth  float64
	DisplayHeight float64
}

// PrepareImage decodes PNG, JPEG or WebP bytes and sizes the image to
// maxWidth points, shrinking further if the height would exceed maxHeight.
// Aspect ratio is preserved. Any failure is an *ImageDecodeError.
func PrepareImage(data []byte, maxWidth, maxHeight float64) (*PreparedImage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageDecodeError{Err: err}
	}
	if !supportedImageFormats[format] {
		return nil, &ImageDecodeError{Err: fmt.Errorf("%w: %s", ErrUnsupportedImage, format)}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &ImageDecodeError{Err: fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)}
	}
	if cfg.Width*cfg.Height > MaxImagePixels {
		return nil, &ImageDecodeError{Err: fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ImageDecodeError{Err: err}
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w > maxEmbedPixelWidth {
		h = max(1, h*maxEmbedPixelWidth/w)
		w = maxEmbedPixelWidth
	}

	// Flatten onto white so transparency renders the same in every backend.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, dst); err != nil {
		return nil, &ImageDecodeError{Err: fmt.Errorf("re-encode: %w", err)}
	}

	dw, dh := fitBox(float64(cfg.Width), float64(cfg.Height), maxWidth, maxHeight)
	return &PreparedImage{
		PNG:           buf.Bytes(),
		Format:        format,
		Width:         w,
		Height:        h,
		DisplayWidth:  dw,
		DisplayHeight: dh,
	}, nil
}

// fitBox scales w x h to maxW wide, then caps the height at maxH.
func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	dw := maxW
	dh := maxW * h / w
	if maxH > 0 && dh > maxH {
		dh = maxH
		dw = maxH * w / h
	}
	return dw, dh
}
