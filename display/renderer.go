package display

import (
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Defaults for Options.
const (
	DefaultWidth        = 80
	DefaultMaxWords     = 500
	DefaultImageMaxSide = 1200
)

// minWidth keeps room for the border, padding and a few characters.
const minWidth = 20

// Options configures terminal output.
type Options struct {
	// Width is the total box width in columns, borders included.
	Width int

	// MaxWords caps the words shown in a box. Longer text is cut and ends
	// with " ...". Conversation history is never affected.
	MaxWords int

	// ShowImages saves extracted plots when an image directory is set.
	ShowImages bool

	// ImageDir receives saved plots. Empty disables saving.
	ImageDir string

	// ImageMaxSide bounds saved plots; larger images are scaled down.
	ImageMaxSide int
}

// DefaultOptions returns the default terminal options.
func DefaultOptions() Options {
	return Options{
		Width:        DefaultWidth,
		MaxWords:     DefaultMaxWords,
		ShowImages:   true,
		ImageMaxSide: DefaultImageMaxSide,
	}
}

// Renderer draws boxed text.
type Renderer struct {
	width    int
	maxWords int
	box      lipgloss.Style
	title    lipgloss.Style
}

// NewRenderer creates a renderer. Non-positive fields use the defaults.
func NewRenderer(opts Options) *Renderer {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	if width < minWidth {
		width = minWidth
	}
	maxWords := opts.MaxWords
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &Renderer{
		width:    width,
		maxWords: maxWords,
		// lipgloss widths exclude the border.
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(width - 2),
		title: lipgloss.NewStyle().Bold(true),
	}
}

// Width returns the total box width.
func (r *Renderer) Width() int { return r.width }

// Box renders text under an icon and title inside a rounded border.
func (r *Renderer) Box(title, icon, text string) string {
	header := title
	if icon != "" {
		header = icon + " " + title
	}
	// Border and padding take four columns.
	header = runewidth.Truncate(header, r.width-4, "...")

	body := LimitWords(strings.TrimRight(text, "\n"), r.maxWords)
	return r.box.Render(r.title.Render(header) + "\n" + body)
}

// Rule returns a horizontal line of the box width.
func (r *Renderer) Rule(ch string) string {
	if ch == "" {
		ch = "-"
	}
	w := runewidth.StringWidth(ch)
	if w <= 0 {
		w = 1
	}
	return strings.Repeat(ch, r.width/w)
}

// LimitWords cuts text after max whitespace-separated words, keeping the
// original layout of the words it keeps, and appends " ...".
func LimitWords(text string, max int) string {
	if max <= 0 {
		return text
	}
	words := 0
	inWord := false
	end := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				inWord = false
				end = i
			}
			continue
		}
		if !inWord {
			if words == max {
				return text[:end] + " ..."
			}
			inWord = true
			words++
		}
	}
	return text
}
