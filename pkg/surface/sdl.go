package surface

import (
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

// SDL is a Surface backed by a ring of SDL2 streaming textures. Each End
// copies the written texture onto the window, letterboxed, and presents it.
type SDL struct {
	renderer *sdl.Renderer
	textures []*sdl.Texture
	cfg      Config
	pacer    *Pacer

	next    int  // slot handed out by the next Begin
	held    bool // a Begin is waiting for its End
	flips   uint64
	lockErr int

	// written area of the texture; zero means all of it
	contentW, contentH int

	closeOnce sync.Once
}

var _ ContentSizer = (*SDL)(nil)

// NewSDL creates cfg.BufferCount streaming textures on renderer. refresh is
// the display refresh interval used to pace Begin; zero disables pacing.
func NewSDL(renderer *sdl.Renderer, cfg Config, refresh time.Duration) (*SDL, error) {
	if renderer == nil {
		return nil, errors.New("surface: nil renderer")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &SDL{
		renderer: renderer,
		cfg:      cfg,
		pacer:    NewPacer(cfg.BufferCount, refresh),
	}
	for i := 0; i < cfg.BufferCount; i++ {
		tex, err := renderer.CreateTexture(uint32(sdl.PIXELFORMAT_RGBA32), sdl.TEXTUREACCESS_STREAMING, int32(cfg.Width), int32(cfg.Height))
		if err != nil {
			s.destroyTextures()
			return nil, errors.Wrapf(err, "create texture %d of %d", i+1, cfg.BufferCount)
		}
		s.textures = append(s.textures, tex)
	}

	log.Printf("Surface: %dx%d %s x%d buffers (refresh=%v)", cfg.Width, cfg.Height, cfg.Format, cfg.BufferCount, refresh)
	return s, nil
}

// SetContentSize limits presentation to the top-left width x height pixels
// of each texture. Rows below the frame in a height-scaled texture are never
// written and must not reach the screen.
func (s *SDL) SetContentSize(width, height int) {
	s.contentW, s.contentH = width, height
}

// Begin locks the next texture. It returns false when a buffer is already
// held, when the display has no free slot, or when the lock fails.
func (s *SDL) Begin() (BackBuffer, bool) {
	if s.held || len(s.textures) == 0 {
		return BackBuffer{}, false
	}
	if !s.pacer.Ready() {
		return BackBuffer{}, false
	}

	pixels, pitch, err := s.textures[s.next].Lock(nil)
	if err != nil {
		s.lockErr++
		if s.lockErr == 1 || s.lockErr%100 == 0 {
			log.Printf("Surface: texture lock failed (%d time(s)): %v", s.lockErr, err)
		}
		return BackBuffer{}, false
	}

	s.held = true
	return BackBuffer{Pixels: pixels, Stride: pitch}, true
}

// End submits the held buffer and rotates to the next slot. Without a held
// buffer it does nothing.
func (s *SDL) End() {
	if !s.held {
		return
	}
	tex := s.textures[s.next]
	tex.Unlock()
	s.held = false

	s.renderer.SetDrawColor(0, 0, 0, 255)
	s.renderer.Clear()

	var src, dst sdl.Rect
	if w, h, err := s.renderer.GetOutputSize(); err == nil {
		src, dst = presentRects(s.cfg, s.contentW, s.contentH, w, h)
	} else {
		src, _ = presentRects(s.cfg, s.contentW, s.contentH, 0, 0)
		dst = src
	}
	if err := s.renderer.Copy(tex, &src, &dst); err != nil {
		log.Printf("Surface: copy failed: %v", err)
	}
	s.renderer.Present()

	s.pacer.Submitted()
	s.flips++
	s.next = (s.next + 1) % len(s.textures)
}

// Close destroys the textures. The renderer belongs to the caller.
func (s *SDL) Close() error {
	s.closeOnce.Do(func() {
		if s.held {
			s.textures[s.next].Unlock()
			s.held = false
		}
		s.destroyTextures()
		log.Printf("Surface: closed after %d flip(s)", s.flips)
	})
	return nil
}

func (s *SDL) destroyTextures() {
	for _, tex := range s.textures {
		if tex != nil {
			tex.Destroy()
		}
	}
	s.textures = nil
}

// presentRects returns the texture area holding the frame and where it lands
// on a screenWidth x screenHeight output. The content size is clipped to the
// texture; zero selects the whole texture.
func presentRects(cfg Config, contentWidth, contentHeight int, screenWidth, screenHeight int32) (src, dst sdl.Rect) {
	w, h := cfg.Width, cfg.Height
	if contentWidth > 0 && contentWidth < w {
		w = contentWidth
	}
	if contentHeight > 0 && contentHeight < h {
		h = contentHeight
	}
	src = sdl.Rect{W: int32(w), H: int32(h)}
	return src, letterbox(src.W, src.H, screenWidth, screenHeight)
}

// letterbox fits a video rectangle inside the screen, preserving aspect ratio
// and centring it.
func letterbox(videoWidth, videoHeight, screenWidth, screenHeight int32) sdl.Rect {
	if videoWidth <= 0 || videoHeight <= 0 || screenWidth <= 0 || screenHeight <= 0 {
		return sdl.Rect{W: screenWidth, H: screenHeight}
	}

	scaleW := float64(screenWidth) / float64(videoWidth)
	scaleH := float64(screenHeight) / float64(videoHeight)
	scale := scaleW
	if scaleH < scaleW {
		scale = scaleH
	}

	renderWidth := int32(float64(videoWidth) * scale)
	renderHeight := int32(float64(videoHeight) * scale)

	return sdl.Rect{
		X: (screenWidth - renderWidth) / 2,
		Y: (screenHeight - renderHeight) / 2,
		W: renderWidth,
		H: renderHeight,
	}
}
