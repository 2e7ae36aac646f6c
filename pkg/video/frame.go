package video

import (
	"image"
)

// Frame is one decoded picture in the decoder's native planar YCbCr layout.
// The plane memory belongs to the source and is reused for the next frame, so
// a Frame is only valid for the duration of the FrameSink call that receives it.
type Frame struct {
	Index int     // decode order within the current loop pass, starting at 0
	Pass  int     // number of completed rewinds before this frame
	Time  float64 // presentation time in seconds within the current pass
	Image *image.YCbCr

	// FullRange marks JPEG range samples (Y and chroma 0-255). The default
	// is studio swing, Y 16-235 and chroma 16-240.
	FullRange bool
}

// Width returns the frame width in pixels
func (f *Frame) Width() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Rect.Dx()
}

// Height returns the frame height in pixels
func (f *Frame) Height() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Rect.Dy()
}

// FrameSink receives decoded frames synchronously, in decode order.
type FrameSink interface {
	OnFrame(frame *Frame)
}

// Source produces frames one at a time. NextFrame returns io.EOF at the end of
// the stream; any other error means the frame was unusable and can be skipped.
type Source interface {
	NextFrame() (*Frame, error)
	Rewind() error
	Width() int
	Height() int
	FrameRate() float64
	Close() error
}

// AudioSwitch is implemented by sources that can drop audio at the demuxer.
type AudioSwitch interface {
	SetAudioEnabled(enabled bool)
}
