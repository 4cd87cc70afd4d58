// Package fonts loads the typefaces used to draw card text.
//
// Cards never depend on fonts installed on the host. Text is converted to
// glyph outlines at markup time, so the faces here are the only fonts that
// can ever appear in an image. The default set is built from the Go fonts
// bundled with golang.org/x/image plus DejaVu Sans as the fallback for
// symbols (stars, check marks, chess pieces, weather signs) the Go fonts
// lack. [Config] swaps in TrueType or OpenType files from disk (the family
// the cards are designed for is Inter).
package fonts

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Primary is the family name card text asks for.
const Primary = "Inter"

// symbolsTTF is DejaVu Sans, distributed under the Bitstream Vera license
// (LICENSE-DejaVu.txt).
//
//go:embed DejaVuSans.ttf
var symbolsTTF []byte

// Weights served by a Set.
const (
	WeightRegular  = 400
	WeightSemiBold = 600
)

// Config points at font files. Empty paths use the bundled fonts.
type Config struct {
	Regular  string `toml:"regular"`
	SemiBold string `toml:"semibold"`
	Fallback string `toml:"fallback"`
}

// Face is one parsed font at one weight. A Face is safe for concurrent use;
// callers pass their own sfnt.Buffer to the glyph methods.
type Face struct {
	Family string
	Weight int
	Font   *sfnt.Font
}

// Glyph is one outline scaled to a pixel size. Segment coordinates are
// relative to the pen position with y growing downwards.
type Glyph struct {
	Index    sfnt.GlyphIndex
	Advance  float64
	Segments sfnt.Segments
}

// Has reports whether the face maps r to a glyph.
func (f *Face) Has(b *sfnt.Buffer, r rune) bool {
	x, err := f.Font.GlyphIndex(b, r)
	return err == nil && x != 0
}

// Glyph returns the outline for r at size pixels. ok is false when the face
// has no glyph for r.
func (f *Face) Glyph(b *sfnt.Buffer, r rune, size float64) (g Glyph, ok bool, err error) {
	x, err := f.Font.GlyphIndex(b, r)
	if err != nil || x == 0 {
		return Glyph{}, false, err
	}
	ppem := ppem(size)
	adv, err := f.Font.GlyphAdvance(b, x, ppem, font.HintingNone)
	if err != nil {
		return Glyph{}, false, fmt.Errorf("advance %q: %w", r, err)
	}
	segs, err := f.Font.LoadGlyph(b, x, ppem, nil)
	if err != nil {
		return Glyph{}, false, fmt.Errorf("outline %q: %w", r, err)
	}
	// LoadGlyph reuses b's storage.
	out := make(sfnt.Segments, len(segs))
	copy(out, segs)
	return Glyph{Index: x, Advance: fromFixed(adv), Segments: out}, true, nil
}

// Kern returns the kerning adjustment between two glyphs in pixels.
func (f *Face) Kern(b *sfnt.Buffer, a, c sfnt.GlyphIndex, size float64) float64 {
	k, err := f.Font.Kern(b, a, c, ppem(size), font.HintingNone)
	if err != nil {
		return 0
	}
	return fromFixed(k)
}

// Metrics returns the ascent and descent at size pixels, both positive.
func (f *Face) Metrics(b *sfnt.Buffer, size float64) (ascent, descent float64) {
	m, err := f.Font.Metrics(b, ppem(size), font.HintingNone)
	if err != nil {
		return size * 0.8, size * 0.2
	}
	return fromFixed(m.Ascent), fromFixed(m.Descent)
}

func ppem(size float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(size * 64))
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// Set is the collection of faces available to the markup generator.
type Set struct {
	faces    []*Face
	fallback *Face
}

// Load parses the configured fonts.
func Load(cfg Config) (*Set, error) {
	regular, err := loadFace(cfg.Regular, goregular.TTF, Primary, WeightRegular)
	if err != nil {
		return nil, err
	}
	semibold, err := loadFace(cfg.SemiBold, gomedium.TTF, Primary, WeightSemiBold)
	if err != nil {
		return nil, err
	}
	fallback, err := loadFace(cfg.Fallback, symbolsTTF, "fallback", WeightRegular)
	if err != nil {
		return nil, err
	}
	return &Set{faces: []*Face{regular, semibold}, fallback: fallback}, nil
}

func loadFace(path string, builtin []byte, family string, weight int) (*Face, error) {
	data := builtin
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		data = b
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		if path == "" {
			path = "builtin"
		}
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return &Face{Family: family, Weight: weight, Font: f}, nil
}

var (
	defaultSet  *Set
	defaultOnce sync.Once
)

// Default returns the bundled font set.
func Default() *Set {
	defaultOnce.Do(func() {
		s, err := Load(Config{})
		if err != nil {
			panic(err)
		}
		defaultSet = s
	})
	return defaultSet
}

// Lookup returns the face of family closest to weight. Unknown families
// resolve to the primary family.
func (s *Set) Lookup(family string, weight int) *Face {
	var best *Face
	for _, f := range s.faces {
		if f.Family != family {
			continue
		}
		if best == nil || abs(f.Weight-weight) < abs(best.Weight-weight) {
			best = f
		}
	}
	if best == nil && family != Primary {
		return s.Lookup(Primary, weight)
	}
	return best
}

// Fallback is consulted for characters the requested face lacks.
func (s *Set) Fallback() *Face { return s.fallback }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
