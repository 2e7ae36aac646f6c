package ui

import (
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/veandco/go-sdl2/ttf"
)

// ErrNoFont is returned when text is drawn without a loaded font.
var ErrNoFont = errors.New("font not available")

// RenderText draws one line at (x, y) and returns its rendered height
func RenderText(renderer *sdl.Renderer, text string, x, y int32, color sdl.Color, font *ttf.Font) (int32, error) {
	if font == nil {
		return 0, ErrNoFont
	}
	if text == "" {
		return int32(font.Height()), nil
	}

	surface, err := font.RenderUTF8Blended(text, color)
	if err != nil {
		return 0, errors.Wrapf(err, "render %q", text)
	}
	defer surface.Free()

	texture, err := renderer.CreateTextureFromSurface(surface)
	if err != nil {
		return 0, errors.Wrap(err, "text texture")
	}
	defer texture.Destroy()

	_, _, w, h, err := texture.Query()
	if err != nil {
		return 0, err
	}

	dstRect := sdl.Rect{X: x, Y: y, W: w, H: h}
	return h, renderer.Copy(texture, nil, &dstRect)
}

// RenderLines draws lines top to bottom with gap pixels between them and
// returns the y coordinate below the last line. Drawing stops at maxY.
func RenderLines(renderer *sdl.Renderer, lines []string, x, y, gap, maxY int32, color sdl.Color, font *ttf.Font) (int32, error) {
	for _, line := range lines {
		if y >= maxY {
			break
		}
		h, err := RenderText(renderer, line, x, y, color, font)
		if err != nil {
			return y, err
		}
		y += h + gap
	}
	return y, nil
}
