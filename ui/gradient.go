package ui

import "github.com/veandco/go-sdl2/sdl"

// DrawGradientRect draws a vertical gradient rectangle from top to bottom
func DrawGradientRect(renderer *sdl.Renderer, rect sdl.Rect, top, bottom sdl.Color) {
	for i := int32(0); i < rect.H; i++ {
		c := Lerp(top, bottom, i, rect.H)
		renderer.SetDrawColor(c.R, c.G, c.B, c.A)
		renderer.DrawLine(rect.X, rect.Y+i, rect.X+rect.W-1, rect.Y+i)
	}
}

// Lerp returns the colour of row i out of n rows. Single-row ranges use from.
func Lerp(from, to sdl.Color, i, n int32) sdl.Color {
	if n <= 1 {
		return from
	}
	t := float64(i) / float64(n-1)
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a)*(1-t) + float64(b)*t + 0.5)
	}
	return sdl.Color{R: mix(from.R, to.R), G: mix(from.G, to.G), B: mix(from.B, to.B), A: mix(from.A, to.A)}
}
