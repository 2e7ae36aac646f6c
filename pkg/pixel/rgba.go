package pixel

import (
	"image/color"

	"github.com/pkg/errors"

	"loop-frame/pkg/video"
)

// BytesPerPixel is the size of one packed RGBA8888 pixel.
const BytesPerPixel = 4

var (
	ErrStride   = errors.New("stride smaller than one pixel")
	ErrNilFrame = errors.New("frame has no image")
)

// Converter writes a decoded frame into a packed pixel buffer.
type Converter interface {
	Convert(frame *video.Frame, dst []byte, stride int) error
}

// RGBA converts planar YCbCr frames to RGBA8888 with opaque alpha. Input is
// BT.601 studio swing (Y 16-235, chroma 16-240) as produced by MPEG decoders,
// or full range when the frame says so.
type RGBA struct{}

// Convert writes frame into dst, starting row y at y*stride bytes. Padding
// bytes between the end of a row and the next stride are left untouched. The
// written area is clipped to the frame, to stride/4 columns and to the rows
// that fit in dst.
func (RGBA) Convert(frame *video.Frame, dst []byte, stride int) error {
	if stride < BytesPerPixel {
		return errors.Wrapf(ErrStride, "stride=%d", stride)
	}
	if frame == nil || frame.Image == nil {
		return ErrNilFrame
	}

	img := frame.Image
	b := img.Rect
	width := b.Dx()
	if cols := stride / BytesPerPixel; width > cols {
		width = cols
	}
	height := b.Dy()
	if rows := rowsFitting(len(dst), stride, width); height > rows {
		height = rows
	}

	toRGB := studioToRGB
	if frame.FullRange {
		toRGB = fullToRGB
	}

	for y := 0; y < height; y++ {
		row := dst[y*stride : y*stride+width*BytesPerPixel]
		for x := 0; x < width; x++ {
			yi := img.YOffset(b.Min.X+x, b.Min.Y+y)
			ci := img.COffset(b.Min.X+x, b.Min.Y+y)
			p := row[x*BytesPerPixel : x*BytesPerPixel+BytesPerPixel]
			p[0], p[1], p[2] = toRGB(img.Y[yi], img.Cb[ci], img.Cr[ci])
			p[3] = 0xff
		}
	}
	return nil
}

// rowsFitting returns how many rows of width pixels fit in n bytes at stride.
func rowsFitting(n, stride, width int) int {
	need := width * BytesPerPixel
	if need == 0 || n < need {
		return 0
	}
	return (n-need)/stride + 1
}

// studioToRGB uses 16.16 fixed point coefficients for BT.601.
func studioToRGB(y, cb, cr uint8) (uint8, uint8, uint8) {
	l := ((int32(y) - 16) * 76309) >> 16
	u := int32(cb) - 128
	v := int32(cr) - 128

	r := l + (v*104597)>>16
	g := l - (u*25674+v*53278)>>16
	b := l + (u*132201)>>16
	return clamp(r), clamp(g), clamp(b)
}

// fullToRGB is the JFIF conversion, where Y already spans 0-255.
func fullToRGB(y, cb, cr uint8) (uint8, uint8, uint8) {
	return color.YCbCrToRGB(y, cb, cr)
}

func clamp(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
