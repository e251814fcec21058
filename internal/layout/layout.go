package layout

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"scrolla/internal/config"
	"scrolla/internal/services"
)

// Alignment selects where the caption block sits on the canvas.
type Alignment string

const (
	AlignTop    Alignment = "top"
	AlignCenter Alignment = "center"
	AlignBottom Alignment = "bottom"
)

// Heuristic glyph metrics relative to font size, plus the share of the line
// width captions may occupy.
const (
	charWidthRatio  = 0.6
	spaceWidthRatio = 0.3
	usableWidth     = 0.8
)

// ParseAlignment converts a configuration string into an Alignment.
func ParseAlignment(value string) (Alignment, error) {
	switch a := Alignment(strings.ToLower(strings.TrimSpace(value))); a {
	case AlignTop, AlignCenter, AlignBottom:
		return a, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "layout", "alignment", fmt.Sprintf("unknown vertical alignment %q", value), nil)
	}
}

// Config is the immutable caption layout shared by every scene of a run.
type Config struct {
	Font              string
	FontFile          string
	FontSize          int
	FontColor         string
	BorderWidth       float64
	BorderColor       string
	BoxColor          string
	XPositionExpr     string
	BottomGap         int
	Margin            int
	LineSpacing       int
	VerticalAlignment Alignment
	MaxWidth          int
	CanvasHeight      int
}

// FromConfig builds the caption layout from loaded configuration.
func FromConfig(cfg *config.Config) (Config, error) {
	alignment, err := ParseAlignment(cfg.Captions.VerticalAlignment)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Font:              cfg.Captions.Font,
		FontFile:          cfg.Captions.FontFile,
		FontSize:          cfg.Captions.FontSize,
		FontColor:         cfg.Captions.FontColor,
		BorderWidth:       cfg.Captions.BorderWidth,
		BorderColor:       cfg.Captions.BorderColor,
		BoxColor:          cfg.Captions.BoxColor,
		XPositionExpr:     cfg.Captions.XPosition,
		BottomGap:         cfg.Captions.BottomGap,
		Margin:            cfg.Captions.Margin,
		LineSpacing:       cfg.Captions.LineSpacing,
		VerticalAlignment: alignment,
		MaxWidth:          cfg.Canvas.Width - 2*cfg.Captions.SidePadding,
		CanvasHeight:      cfg.Canvas.Height,
	}, nil
}

// Block is a caption laid out for one scene.
type Block struct {
	Lines []string
	Top   int
	// LineY holds the y coordinate of each line, parallel to Lines.
	LineY  []int
	Height int
}

// Layout wraps text and positions the resulting lines. Empty text yields an
// empty block.
func (c Config) Layout(text string) (Block, error) {
	lines := Wrap(text, c.MaxWidth, c.FontSize)
	if len(lines) == 0 {
		return Block{}, nil
	}
	top, err := VerticalOffset(len(lines), c.FontSize, c.LineSpacing, c.CanvasHeight, c.VerticalAlignment, c.Margin, c.BottomGap)
	if err != nil {
		return Block{}, err
	}
	block := Block{
		Lines:  lines,
		Top:    top,
		LineY:  make([]int, len(lines)),
		Height: BlockHeight(len(lines), c.FontSize, c.LineSpacing),
	}
	for i := range lines {
		block.LineY[i] = top + i*(c.FontSize+c.LineSpacing)
	}
	return block, nil
}

// Wrap splits text into lines using a greedy fill against 80% of maxWidth.
// A word wider than the limit is placed alone on its own line.
func Wrap(text string, maxWidth, fontSize int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	limit := float64(maxWidth) * usableWidth
	charWidth := float64(fontSize) * charWidthRatio
	spaceWidth := float64(fontSize) * spaceWidthRatio

	var lines []string
	var current []string
	width := 0.0
	for _, word := range words {
		wordWidth := float64(utf8.RuneCountInString(word))*charWidth + spaceWidth
		if width+wordWidth <= limit {
			current = append(current, word)
			width += wordWidth
			continue
		}
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
		}
		current = []string{word}
		width = wordWidth
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}
	return lines
}

// BlockHeight returns the pixel height of n lines including inter-line spacing.
func BlockHeight(lines, fontSize, spacing int) int {
	if lines <= 0 {
		return 0
	}
	return lines*fontSize + (lines-1)*spacing
}

// VerticalOffset returns the y coordinate of the first caption line.
func VerticalOffset(lines, fontSize, spacing, canvasHeight int, alignment Alignment, margin, bottomGap int) (int, error) {
	height := BlockHeight(lines, fontSize, spacing)
	switch alignment {
	case AlignTop:
		return margin, nil
	case AlignCenter:
		return floorDiv(canvasHeight-height, 2), nil
	case AlignBottom:
		return canvasHeight - height - margin - bottomGap, nil
	default:
		return 0, services.Wrap(services.ErrConfiguration, "layout", "vertical offset", fmt.Sprintf("unknown vertical alignment %q", alignment), nil)
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
