package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// palette styles terminal output. The zero value renders plain text, which
// is what pipes, files and tests get.
type palette struct {
	renderer *lipgloss.Renderer
}

func paletteFor(w io.Writer) palette {
	f, ok := w.(*os.File)
	if !ok || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return palette{}
	}
	return palette{renderer: lipgloss.NewRenderer(f)}
}

func (p palette) style(text string, apply func(lipgloss.Style) lipgloss.Style) string {
	if p.renderer == nil {
		return text
	}
	return apply(p.renderer.NewStyle()).Render(text)
}

func (p palette) header(text string) string {
	return p.style(text, func(s lipgloss.Style) lipgloss.Style {
		return s.Bold(true).Foreground(lipgloss.Color("#00CFCF"))
	})
}

func (p palette) total(text string) string {
	return p.style(text, func(s lipgloss.Style) lipgloss.Style { return s.Bold(true) })
}

func (p palette) muted(text string) string {
	return p.style(text, func(s lipgloss.Style) lipgloss.Style {
		return s.Foreground(lipgloss.Color("#808080"))
	})
}

func (p palette) warning(text string) string {
	return p.style(text, func(s lipgloss.Style) lipgloss.Style {
		return s.Foreground(lipgloss.Color("#FFFF00"))
	})
}

func (p palette) error(text string) string {
	return p.style(text, func(s lipgloss.Style) lipgloss.Style {
		return s.Foreground(lipgloss.Color("#FF0000"))
	})
}
