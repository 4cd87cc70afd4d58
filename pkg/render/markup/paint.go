package markup

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/matzehuels/wnft/pkg/theme"
	"github.com/matzehuels/wnft/pkg/tree"
)

type painter struct {
	canvas  *svg.SVG
	sources map[string]string
	ids     int
}

func (p *painter) nextID(prefix string) string {
	p.ids++
	return prefix + strconv.Itoa(p.ids)
}

// paint emits f and its children in tree order.
func (p *painter) paint(f *frame) {
	switch f.node.Kind {
	case tree.KindBox:
		p.box(f)
	case tree.KindText:
		p.box(f)
		p.text(f)
	case tree.KindImage:
		p.image(f)
	}
	for _, c := range f.children {
		p.paint(c)
	}
}

func (p *painter) box(f *frame) {
	st := f.node.Style
	x, y, w, h := ipx(f.x), ipx(f.y), ipx(f.w), ipx(f.h)
	r := ipx(math.Min(st.Radius, math.Min(f.w, f.h)/2))

	if g := st.Gradient; g != nil && len(g.Stops) > 0 {
		id := p.nextID("g")
		x1, y1, x2, y2 := gradientVector(g.Angle)
		stops := make([]svg.Offcolor, len(g.Stops))
		for i, s := range g.Stops {
			stops[i] = svg.Offcolor{
				Offset:  uint8(math.Round(clamp01(s.Offset) * 100)),
				Color:   s.Color.Hex(),
				Opacity: s.Color.Alpha,
			}
		}
		p.canvas.Def()
		p.canvas.LinearGradient(id, x1, y1, x2, y2, stops)
		p.canvas.DefEnd()
		p.rect(x, y, w, h, r, fmt.Sprintf(`fill="url(#%s)"`, id))
	}
	if bg := st.Background; bg != nil && bg.Alpha > 0 {
		p.rect(x, y, w, h, r, fill(*bg)...)
	}
	if f.node.Kind == tree.KindBox {
		p.border(f)
	}
}

func (p *painter) rect(x, y, w, h, r int, attrs ...string) {
	if r > 0 {
		p.canvas.Roundrect(x, y, w, h, r, r, attrs...)
		return
	}
	p.canvas.Rect(x, y, w, h, attrs...)
}

// border strokes inside the frame edge.
func (p *painter) border(f *frame) {
	b := f.node.Style.Border
	if b.Width <= 0 || b.Color.Alpha <= 0 {
		return
	}
	half := b.Width / 2
	r := math.Max(math.Min(f.node.Style.Radius, math.Min(f.w, f.h)/2)-half, 0)
	attrs := []string{
		`fill="none"`,
		fmt.Sprintf(`stroke="%s"`, b.Color.Hex()),
		fmt.Sprintf(`stroke-width="%s"`, num(b.Width)),
	}
	if b.Color.Alpha < 1 {
		attrs = append(attrs, fmt.Sprintf(`stroke-opacity="%s"`, num(b.Color.Alpha)))
	}
	p.rect(ipx(f.x+half), ipx(f.y+half), ipx(f.w-b.Width), ipx(f.h-b.Width), ipx(r), attrs...)
}

func (p *painter) image(f *frame) {
	st := f.node.Style
	src, ok := p.sources[f.node.Src]
	if !ok {
		src = f.node.Src
	}
	x, y, w, h := ipx(f.x), ipx(f.y), ipx(f.w), ipx(f.h)
	if w == 0 || h == 0 {
		return
	}
	r := ipx(math.Min(st.Radius, math.Min(f.w, f.h)/2))

	attrs := []string{`preserveAspectRatio="none"`}
	if st.ObjectFit == tree.FitCover {
		attrs[0] = `preserveAspectRatio="xMidYMid slice"`
	}
	if r > 0 {
		id := p.nextID("c")
		p.canvas.Def()
		p.canvas.ClipPath(fmt.Sprintf(`id="%s"`, id))
		p.canvas.Roundrect(x, y, w, h, r, r)
		p.canvas.ClipEnd()
		p.canvas.DefEnd()
		attrs = append(attrs, fmt.Sprintf(`clip-path="url(#%s)"`, id))
	}
	p.canvas.Image(x, y, w, h, html.EscapeString(src), attrs...)
	p.border(f)
}

func (p *painter) text(f *frame) {
	block := f.text
	if block == nil {
		return
	}
	st := f.node.Style
	pad := st.Padding
	contentW := f.w - pad.Horizontal()

	var d strings.Builder
	type sub struct {
		x, y, size float64
		src        string
	}
	var subs []sub
	for i, ln := range block.lines {
		top := f.y + pad.Top + float64(i)*block.lineHeight
		baseline := top + (block.lineHeight-(block.ascent+block.descent))/2 + block.ascent
		left := f.x + pad.Left
		switch st.TextAlign {
		case tree.TextCenter:
			left += (contentW - ln.width) / 2
		case tree.TextRight:
			left += contentW - ln.width
		}
		for _, it := range ln.items {
			if it.image != "" {
				subs = append(subs, sub{x: left + it.x, y: top + (block.lineHeight-it.size)/2, size: it.size, src: it.image})
				continue
			}
			writeOutline(&d, it.glyph.Segments, left+it.x, baseline)
		}
	}
	if d.Len() > 0 && st.Color.Alpha > 0 {
		p.canvas.Path(d.String(), fill(st.Color)...)
	}
	for _, s := range subs {
		p.canvas.Image(ipx(s.x), ipx(s.y), ipx(s.size), ipx(s.size), html.EscapeString(s.src))
	}
}

// writeOutline appends glyph segments as absolute path commands.
func writeOutline(d *strings.Builder, segs sfnt.Segments, ox, oy float64) {
	pt := func(v fixed.Point26_6) string {
		return num(ox+float64(v.X)/64) + " " + num(oy+float64(v.Y)/64)
	}
	open := false
	for _, s := range segs {
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			if open {
				d.WriteString("Z")
			}
			d.WriteString("M" + pt(s.Args[0]))
			open = true
		case sfnt.SegmentOpLineTo:
			d.WriteString("L" + pt(s.Args[0]))
		case sfnt.SegmentOpQuadTo:
			d.WriteString("Q" + pt(s.Args[0]) + " " + pt(s.Args[1]))
		case sfnt.SegmentOpCubeTo:
			d.WriteString("C" + pt(s.Args[0]) + " " + pt(s.Args[1]) + " " + pt(s.Args[2]))
		}
	}
	if open {
		d.WriteString("Z")
	}
}

// gradientVector maps a CSS gradient angle to bounding-box percentages.
func gradientVector(angle float64) (x1, y1, x2, y2 uint8) {
	rad := angle * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	pct := func(v float64) uint8 { return uint8(math.Round(50 + v*50)) }
	return pct(-dx), pct(-dy), pct(dx), pct(dy)
}

func fill(c theme.Color) []string {
	attrs := []string{fmt.Sprintf(`fill="%s"`, c.Hex())}
	if c.Alpha < 1 {
		attrs = append(attrs, fmt.Sprintf(`fill-opacity="%s"`, num(c.Alpha)))
	}
	return attrs
}

func num(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // drop negative zero
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func ipx(v float64) int { return int(math.Round(v)) }

func clamp01(v float64) float64 { return math.Max(0, math.Min(1, v)) }
