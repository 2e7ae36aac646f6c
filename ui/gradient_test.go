package ui

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/sdl"
)

func TestLerp(t *testing.T) {
	black := sdl.Color{R: 0, G: 0, B: 0, A: 255}
	white := sdl.Color{R: 255, G: 255, B: 255, A: 255}

	cases := []struct {
		i, n int32
		want sdl.Color
	}{
		{0, 3, black},
		{1, 3, sdl.Color{R: 128, G: 128, B: 128, A: 255}},
		{2, 3, white},
		{0, 1, black},
		{0, 0, black},
	}
	for _, tc := range cases {
		if got := Lerp(black, white, tc.i, tc.n); got != tc.want {
			t.Errorf("Lerp(%d/%d) = %+v, want %+v", tc.i, tc.n, got, tc.want)
		}
	}
}

func TestRenderLinesWithoutFont(t *testing.T) {
	white := sdl.Color{R: 255, G: 255, B: 255, A: 255}
	y, err := RenderLines(nil, []string{"Failed to open video.mpg"}, 32, 40, 6, 720, white, nil)
	if errors.Cause(err) != ErrNoFont {
		t.Fatalf("RenderLines error = %v, want ErrNoFont", err)
	}
	if y != 40 {
		t.Errorf("y = %d, want 40 when nothing was drawn", y)
	}
}
