package markup

import (
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/image/font/sfnt"

	"github.com/matzehuels/wnft/pkg/fonts"
	"github.com/matzehuels/wnft/pkg/tree"
)

const defaultLineHeight = 1.2

// glyphItem is one drawable unit on a line: an outline or a substituted
// image.
type glyphItem struct {
	x     float64 // pen position from the line start
	size  float64
	glyph fonts.Glyph
	image string
}

type textLine struct {
	items []glyphItem
	width float64
}

// textBlock is a shaped and wrapped text node.
type textBlock struct {
	lines      []textLine
	width      float64
	height     float64
	lineHeight float64
	ascent     float64
	descent    float64
}

// word is a run of clusters between line break opportunities. Trailing
// whitespace is measured separately so it can hang at the end of a line.
type word struct {
	items    []glyphItem
	width    float64 // without trailing space
	space    float64 // trailing whitespace advance
	hardBrk  bool
	hasItems bool
}

func (l *layouter) shape(n *tree.Node, maxW float64) (*textBlock, error) {
	st := n.Style
	size := st.FontSize
	face := l.fonts.Lookup(st.FontFamily, st.FontWeight)
	fallback := l.fonts.Fallback()
	spacing := st.LetterSpacing * size

	lh := st.LineHeight
	if lh <= 0 {
		lh = defaultLineHeight
	}
	ascent, descent := face.Metrics(&l.buf, size)
	block := &textBlock{lineHeight: lh * size, ascent: ascent, descent: descent}

	var (
		words []word
		cur   word
		prev  sfnt.GlyphIndex
		pface *fonts.Face
		state = -1
		rest  = n.Text
	)
	for len(rest) > 0 {
		var cluster string
		var boundaries int
		cluster, rest, boundaries, state = uniseg.StepString(rest, state)

		if src, ok := l.glyphs.Lookup(cluster); ok {
			cur.items = append(cur.items, glyphItem{x: cur.width, size: size, image: src})
			cur.width += size + spacing
			cur.hasItems = true
			pface = nil
		} else {
			for _, r := range cluster {
				if r == '\n' || r == '\r' {
					continue
				}
				use := face
				if !face.Has(&l.buf, r) && fallback != nil && fallback.Has(&l.buf, r) {
					use = fallback
				}
				g, ok, err := use.Glyph(&l.buf, r, size)
				if err != nil {
					return nil, err
				}
				if !ok {
					// Joiners and variation selectors without a glyph take no space.
					continue
				}
				if pface == use {
					cur.width += use.Kern(&l.buf, prev, g.Index, size)
				}
				if unicode.IsSpace(r) {
					cur.space += g.Advance + spacing
				} else {
					if cur.space > 0 {
						// Space inside a word (non-breaking); fold it in.
						cur.width += cur.space
						cur.space = 0
					}
					cur.items = append(cur.items, glyphItem{x: cur.width, size: size, glyph: g})
					cur.width += g.Advance + spacing
					cur.hasItems = true
				}
				prev, pface = g.Index, use
			}
		}

		switch boundaries & uniseg.MaskLine {
		case uniseg.LineMustBreak:
			if len(rest) > 0 {
				cur.hardBrk = true
			}
			fallthrough
		case uniseg.LineCanBreak:
			words = append(words, cur)
			cur = word{}
		}
	}
	if cur.hasItems || cur.space > 0 {
		words = append(words, cur)
	}

	block.lines = wrap(words, maxW)
	for _, ln := range block.lines {
		block.width = max(block.width, ln.width)
	}
	block.height = float64(len(block.lines)) * block.lineHeight
	return block, nil
}

// wrap fills lines greedily. A word wider than maxW gets a line of its own.
func wrap(words []word, maxW float64) []textLine {
	lines := []textLine{{}}
	pen := 0.0 // includes trailing space of the previous word
	for _, w := range words {
		ln := &lines[len(lines)-1]
		if len(ln.items) > 0 && pen+w.width > maxW {
			lines = append(lines, textLine{})
			ln = &lines[len(lines)-1]
			pen = 0
		}
		for _, it := range w.items {
			it.x += pen
			ln.items = append(ln.items, it)
		}
		if w.hasItems {
			ln.width = pen + w.width
		}
		pen += w.width + w.space
		if w.hardBrk {
			lines = append(lines, textLine{})
			pen = 0
		}
	}
	return lines
}
