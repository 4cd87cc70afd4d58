// Package theme resolves a card theme into a concrete color palette.
//
// The palette tables are built once at package initialization and never
// mutated; [Resolve] hands out deep copies so callers cannot alter the
// shared tables.
//
//	styles, err := theme.Resolve(theme.Dark)
//	accent, err := styles.Accent(theme.AccentBlue)
package theme

import (
	"fmt"
	"maps"
	"strings"

	"github.com/matzehuels/wnft/pkg/errors"
)

// Theme selects the light or dark palette.
type Theme string

// Supported themes.
const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Accent names one of the fixed accent colors.
type Accent string

// Supported accents.
const (
	AccentBlue   Accent = "blue"
	AccentGreen  Accent = "green"
	AccentIndigo Accent = "indigo"
	AccentOrange Accent = "orange"
	AccentPink   Accent = "pink"
	AccentPurple Accent = "purple"
	AccentRed    Accent = "red"
	AccentTeal   Accent = "teal"
	AccentYellow Accent = "yellow"
)

var accents = []Accent{
	AccentBlue, AccentGreen, AccentIndigo, AccentOrange, AccentPink,
	AccentPurple, AccentRed, AccentTeal, AccentYellow,
}

// Accents returns every supported accent in a stable order.
func Accents() []Accent {
	out := make([]Accent, len(accents))
	copy(out, accents)
	return out
}

// Themes returns every supported theme in a stable order.
func Themes() []Theme {
	return []Theme{Light, Dark}
}

// Valid reports whether t is a supported theme.
func (t Theme) Valid() bool {
	return t == Light || t == Dark
}

// Valid reports whether a is a supported accent.
func (a Accent) Valid() bool {
	for _, v := range accents {
		if v == a {
			return true
		}
	}
	return false
}

// ParseTheme parses a caller-supplied theme name (case-insensitive).
func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid theme: %q (must be one of: light, dark)", s)
	}
	return t, nil
}

// ParseAccent parses a caller-supplied accent name (case-insensitive).
func ParseAccent(s string) (Accent, error) {
	a := Accent(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", errors.New(errors.ErrCodeInvalidInput, "invalid accent: %q (must be one of: %s)", s, accentList())
	}
	return a, nil
}

func accentList() string {
	names := make([]string, len(accents))
	for i, a := range accents {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// Styles is a resolved palette.
type Styles struct {
	Background          Color
	BackgroundNoOpacity Color // Background with alpha 0, used as gradient endpoint
	Foreground          Color
	ForegroundSecondary Color
	ForegroundTertiary  Color
	TextTertiary        Color
	Accents             map[Accent]Color
}

// Accent returns the concrete color for a.
func (s Styles) Accent(a Accent) (Color, error) {
	c, ok := s.Accents[a]
	if !ok {
		return Color{}, errors.New(errors.ErrCodeInvalidInput, "invalid accent: %q (must be one of: %s)", a, accentList())
	}
	return c, nil
}

// Resolve returns the palette for t. Unsupported themes are a caller bug and
// fail with INVALID_INPUT.
func Resolve(t Theme) (Styles, error) {
	var base Styles
	switch t {
	case Light:
		base = lightStyles
	case Dark:
		base = darkStyles
	default:
		return Styles{}, errors.New(errors.ErrCodeInvalidInput, "invalid theme: %q (must be one of: light, dark)", t)
	}
	base.Accents = maps.Clone(base.Accents)
	return base, nil
}

// String implements fmt.Stringer for log output.
func (s Styles) String() string {
	return fmt.Sprintf("bg=%s fg=%s", s.Background.CSS(), s.Foreground.CSS())
}
