// Package stitch concatenates capture segments vertically into one image.
//
// Segments are painted at the running sum of the heights of the segments
// before them, never at their declared offset, so a clamped last segment
// cannot leave a gap. The output keeps the format of the first segment.
package stitch

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
)

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"

	DefaultJPEGQuality = 92
)

// Stitcher combines segments. It is stateless and safe for concurrent use.
type Stitcher struct {
	quality int
}

// New creates a stitcher that re-encodes JPEG output at the given quality.
func New(jpegQuality int) *Stitcher {
	if jpegQuality < 1 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return &Stitcher{quality: jpegQuality}
}

// Stitch returns the composite of segments in order.
func (s *Stitcher) Stitch(segments []capture.Segment) (capture.Image, error) {
	if len(segments) == 0 {
		return capture.Image{}, &capture.Error{Kind: capture.ErrEmptyInput, Op: "stitch"}
	}

	format := mimetype.Detect(segments[0].Image)
	for i, seg := range segments[1:] {
		if got := mimetype.Detect(seg.Image); !got.Is(format.String()) {
			return capture.Image{}, capture.FormatMismatch("stitch", "segment %d is %s, want %s", i+1, got, format)
		}
	}

	if len(segments) == 1 {
		return capture.Image{Data: segments[0].Image, MIME: format.String()}, nil
	}

	mime := format.String()
	if mime != mimeJPEG && mime != mimePNG {
		return capture.Image{}, capture.FormatMismatch("stitch", "unsupported segment format %s", mime)
	}

	decoded := make([]image.Image, len(segments))
	totalHeight := 0
	for i, seg := range segments {
		img, _, err := image.Decode(bytes.NewReader(seg.Image))
		if err != nil {
			return capture.Image{}, capture.FormatMismatch("stitch", "decode segment %d: %v", i, err)
		}
		if i > 0 && img.Bounds().Dx() != decoded[0].Bounds().Dx() {
			return capture.Image{}, capture.FormatMismatch("stitch", "segment %d width %d, want %d",
				i, img.Bounds().Dx(), decoded[0].Bounds().Dx())
		}
		decoded[i] = img
		totalHeight += img.Bounds().Dy()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, decoded[0].Bounds().Dx(), totalHeight))
	y := 0
	for _, img := range decoded {
		b := img.Bounds()
		draw.Draw(canvas, image.Rect(0, y, b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
		y += b.Dy()
	}

	var buf bytes.Buffer
	var err error
	if mime == mimeJPEG {
		err = jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: s.quality})
	} else {
		err = png.Encode(&buf, canvas)
	}
	if err != nil {
		return capture.Image{}, fmt.Errorf("encode composite: %w", err)
	}
	return capture.Image{Data: buf.Bytes(), MIME: mime}, nil
}
