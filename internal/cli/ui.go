package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/wnft/pkg/theme"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // primary actions
	colorGreen  = lipgloss.Color("35")  // success
	colorYellow = lipgloss.Color("220") // warnings
	colorRed    = lipgloss.Color("167") // errors
	colorWhite  = lipgloss.Color("255") // values
	colorGray   = lipgloss.Color("245") // secondary text
	colorDim    = lipgloss.Color("240") // muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconSwatch  = "██"
)

// =============================================================================
// Printer
// =============================================================================

// printer writes styled status lines to one writer.
type printer struct {
	w io.Writer
}

func (p printer) line(s string) { fmt.Fprintln(p.w, s) }

func (p printer) success(format string, args ...any) {
	p.line(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func (p printer) error(format string, args ...any) {
	p.line(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func (p printer) warning(format string, args ...any) {
	p.line(styleIconWarning.Render(iconWarning) + " " + styleWarning.Render(fmt.Sprintf(format, args...)))
}

func (p printer) info(format string, args ...any) {
	p.line(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// detail prints an indented, muted line.
func (p printer) detail(format string, args ...any) {
	p.line("  " + styleDim.Render(fmt.Sprintf(format, args...)))
}

// file prints an output path.
func (p printer) file(path string) {
	p.line("  " + styleDim.Render(iconArrow) + " " + styleValue.Render(path))
}

func (p printer) keyValue(key, value string) {
	p.line(styleKey.Render(key) + " " + styleValue.Render(value))
}

// stages prints durations on one line: "probe 120ms · compose 1ms · ...".
func (p printer) stages(parts ...string) {
	p.line("  " + styleDim.Render(strings.Join(parts, " · ")))
}

// =============================================================================
// Swatches
// =============================================================================

// swatch renders a block in c followed by label.
func swatch(c theme.Color, label string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(iconSwatch) + " " + label
}

// accentSwatch renders an accent in the colors of t.
func accentSwatch(t theme.Theme, a theme.Accent) string {
	styles, err := theme.Resolve(t)
	if err != nil {
		return string(a)
	}
	c, err := styles.Accent(a)
	if err != nil {
		return string(a)
	}
	return swatch(c, string(a))
}
