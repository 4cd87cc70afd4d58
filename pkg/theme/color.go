package theme

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an sRGB color with a separate alpha channel.
type Color struct {
	RGB   colorful.Color
	Alpha float64
}

// ParseHex parses "#rgb" or "#rrggbb" into an opaque Color.
func ParseHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return Color{RGB: c, Alpha: 1}, nil
}

func mustHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// WithAlpha returns c with its alpha replaced, clamped to [0, 1].
func (c Color) WithAlpha(a float64) Color {
	c.Alpha = math.Max(0, math.Min(1, a))
	return c
}

// Hex returns the RGB part as "#rrggbb".
func (c Color) Hex() string {
	return c.RGB.Clamped().Hex()
}

// CSS returns "#rrggbb" for opaque colors and "rgba(r,g,b,a)" otherwise.
func (c Color) CSS() string {
	if c.Alpha >= 1 {
		return c.Hex()
	}
	r, g, b := c.RGB.Clamped().RGB255()
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, formatAlpha(c.Alpha))
}

// NRGBA converts c to a non-premultiplied image/color value.
func (c Color) NRGBA() color.NRGBA {
	r, g, b := c.RGB.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(c.Alpha * 255))}
}

func formatAlpha(a float64) string {
	return fmt.Sprintf("%.3g", a)
}
