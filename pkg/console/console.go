package console

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/veandco/go-sdl2/sdl"

	"loop-frame/ui"
)

var (
	titleColor = sdl.Color{R: 255, G: 255, B: 255, A: 255}
	textColor  = sdl.Color{R: 200, G: 200, B: 210, A: 255}
	bgTop      = sdl.Color{R: 40, G: 12, B: 16, A: 255}
	bgBottom   = sdl.Color{R: 8, G: 8, B: 12, A: 255}
)

const (
	margin  = 32
	lineGap = 6
)

// Console shows diagnostic text when playback cannot start. Lines go to the
// SDL window when fonts are available and are always echoed to out.
type Console struct {
	renderer *sdl.Renderer
	fonts    *ui.Fonts
	title    string
	lines    []string

	out     io.Writer
	heading lipgloss.Style
	line    lipgloss.Style

	closeOnce sync.Once
}

// New creates a console. renderer may be nil for a terminal-only console.
func New(renderer *sdl.Renderer, title string, out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	c := &Console{
		renderer: renderer,
		title:    title,
		out:      out,
		heading: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F87")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1),
		line: r.NewStyle().Foreground(lipgloss.Color("#D0D0D8")).PaddingLeft(2),
	}

	if renderer != nil {
		fonts, err := ui.LoadFonts()
		if err != nil {
			log.Printf("Console: text rendering unavailable: %v", err)
		} else {
			c.fonts = fonts
		}
	}

	fmt.Fprintln(out, c.heading.Render(title))
	return c
}

// Printf appends a line and echoes it to the terminal.
func (c *Console) Printf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	c.lines = append(c.lines, line)
	fmt.Fprintln(c.out, c.line.Render(line))
}

// Lines returns the accumulated text.
func (c *Console) Lines() []string { return c.lines }

// Draw repaints the window. It is a no-op for terminal-only consoles.
func (c *Console) Draw() {
	if c.renderer == nil || c.fonts == nil {
		return
	}
	w, h, err := c.renderer.GetOutputSize()
	if err != nil {
		log.Printf("Console: output size: %v", err)
		return
	}

	c.renderer.SetDrawColor(0, 0, 0, 255)
	c.renderer.Clear()
	ui.DrawGradientRect(c.renderer, sdl.Rect{X: 0, Y: 0, W: w, H: h}, bgTop, bgBottom)

	y := int32(margin)
	if c.fonts.Title != nil {
		th, err := ui.RenderText(c.renderer, c.title, margin, y, titleColor, c.fonts.Title)
		if err == nil {
			y += th + 2*lineGap
		}
	}
	body := c.fonts.Body
	if body == nil {
		body = c.fonts.Title
	}
	if _, err := ui.RenderLines(c.renderer, c.lines, margin, y, lineGap, h-margin, textColor, body); err != nil {
		log.Printf("Console: render: %v", err)
	}

	c.renderer.Present()
}

// Close releases the fonts. The renderer belongs to the caller.
func (c *Console) Close() error {
	c.closeOnce.Do(func() {
		if c.fonts != nil {
			c.fonts.Close()
			c.fonts = nil
		}
	})
	return nil
}
