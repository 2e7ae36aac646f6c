package ui

import (
	"github.com/pkg/errors"
	"github.com/veandco/go-sdl2/ttf"
)

// Fonts holds the two sizes the diagnostic console draws with
type Fonts struct {
	Title *ttf.Font // 32px heading
	Body  *ttf.Font // 18px message lines
}

var fontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
}

// LoadFonts initializes TTF and opens the first system font that exists.
// It fails only when no candidate can be opened at all.
func LoadFonts(extra ...string) (*Fonts, error) {
	if err := ttf.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialize TTF")
	}

	paths := append(append([]string{}, extra...), fontPaths...)
	fonts := &Fonts{
		Title: openFirst(paths, 32),
		Body:  openFirst(paths, 18),
	}
	if fonts.Title == nil && fonts.Body == nil {
		ttf.Quit()
		return nil, errors.Errorf("no usable font in %v", paths)
	}
	return fonts, nil
}

func openFirst(paths []string, size int) *ttf.Font {
	for _, path := range paths {
		if font, err := ttf.OpenFont(path, size); err == nil {
			return font
		}
	}
	return nil
}

// Close releases the fonts and shuts TTF down
func (f *Fonts) Close() {
	if f.Title != nil {
		f.Title.Close()
	}
	if f.Body != nil {
		f.Body.Close()
	}
	ttf.Quit()
}
