package surface

import (
	"fmt"

	"github.com/pkg/errors"
)

// PixelFormat identifies the packed layout of a back buffer.
type PixelFormat int

const (
	// RGBA8888 stores R, G, B, A bytes in memory order.
	RGBA8888 PixelFormat = iota
)

func (f PixelFormat) String() string {
	switch f {
	case RGBA8888:
		return "RGBA8888"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// MinBufferCount is the smallest buffer count that allows writing while a
// buffer is on screen.
const MinBufferCount = 2

var ErrBufferCount = errors.New("surface needs at least two buffers")

// Config describes a surface to create.
type Config struct {
	Width       int
	Height      int
	BufferCount int
	Format      PixelFormat
}

// Validate checks dimensions, buffer count and format.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("invalid surface size %dx%d", c.Width, c.Height)
	}
	if c.BufferCount < MinBufferCount {
		return errors.Wrapf(ErrBufferCount, "buffer count %d", c.BufferCount)
	}
	if c.Format != RGBA8888 {
		return errors.Errorf("unsupported pixel format %s", c.Format)
	}
	return nil
}

// BackBuffer is the writable memory of one buffer slot. Stride is in bytes and
// may be larger than Width*4. It is only valid until the matching End.
type BackBuffer struct {
	Pixels []byte
	Stride int
}

// Surface is a multi-buffered presentation target. Begin hands out a back
// buffer or reports false when none is free; every successful Begin must be
// followed by exactly one End before the next Begin.
type Surface interface {
	Begin() (BackBuffer, bool)
	End()
	Close() error
}

// ContentSizer is implemented by surfaces that present only the part of the
// back buffer the frame was written to. The size set before End applies to
// that submission and every later one until it changes.
type ContentSizer interface {
	SetContentSize(width, height int)
}
