package stitch

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngSegment(t *testing.T, offsetY, w, h int, c color.Color) capture.Segment {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h, c)))
	return capture.Segment{Image: buf.Bytes(), OffsetY: offsetY, Width: w, Height: h}
}

func jpegSegment(t *testing.T, offsetY, w, h int) capture.Segment {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h, color.Gray{Y: 128}), nil))
	return capture.Segment{Image: buf.Bytes(), OffsetY: offsetY, Width: w, Height: h}
}

func TestStitchEmpty(t *testing.T) {
	_, err := New(0).Stitch(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, capture.ErrEmptyInput))
}

func TestStitchSingleSegmentUnchanged(t *testing.T) {
	seg := jpegSegment(t, 0, 40, 30)

	out, err := New(0).Stitch([]capture.Segment{seg})
	require.NoError(t, err)

	assert.Equal(t, seg.Image, out.Data)
	assert.Equal(t, "image/jpeg", out.MIME)
}

func TestStitchPaintsByAccumulatedHeight(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	// declared offsets are deliberately wrong; painting must ignore them
	segments := []capture.Segment{
		pngSegment(t, 0, 20, 10, red),
		pngSegment(t, 999, 20, 10, green),
		pngSegment(t, 5, 20, 5, blue),
	}

	out, err := New(0).Stitch(segments)
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.MIME)

	img, err := png.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())

	rgba := func(x, y int) color.RGBA {
		r, g, b, a := img.At(x, y).RGBA()
		return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
	}
	assert.Equal(t, red, rgba(0, 0))
	assert.Equal(t, red, rgba(19, 9))
	assert.Equal(t, green, rgba(0, 10))
	assert.Equal(t, green, rgba(10, 19))
	assert.Equal(t, blue, rgba(0, 20))
	assert.Equal(t, blue, rgba(19, 24))
}

func TestStitchJPEGDimensions(t *testing.T) {
	segments := []capture.Segment{
		jpegSegment(t, 0, 64, 100),
		jpegSegment(t, 100, 64, 100),
		jpegSegment(t, 200, 64, 50),
	}

	out, err := New(80).Stitch(segments)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", out.MIME)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 250, cfg.Height)
}

func TestStitchFormatMismatch(t *testing.T) {
	segments := []capture.Segment{
		jpegSegment(t, 0, 10, 10),
		pngSegment(t, 10, 10, 10, color.White),
	}

	_, err := New(0).Stitch(segments)
	require.Error(t, err)
	assert.True(t, errors.Is(err, capture.ErrFormatMismatch))
}

func TestStitchWidthMismatch(t *testing.T) {
	segments := []capture.Segment{
		pngSegment(t, 0, 10, 10, color.White),
		pngSegment(t, 10, 12, 10, color.White),
	}

	_, err := New(0).Stitch(segments)
	require.Error(t, err)
	assert.True(t, errors.Is(err, capture.ErrFormatMismatch))
}

func TestStitchUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, solid(4, 4, color.Black), nil))
	seg := capture.Segment{Image: buf.Bytes(), Width: 4, Height: 4}

	_, err := New(0).Stitch([]capture.Segment{seg, seg})
	require.Error(t, err)
	assert.True(t, errors.Is(err, capture.ErrFormatMismatch))
}
