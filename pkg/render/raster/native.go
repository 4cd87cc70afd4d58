package raster

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/wnft/pkg/theme"
)

// Native paints markup with gg. Elements outside the supported subset are
// skipped.
type Native struct{}

// Rasterize implements Rasterizer.
func (Native) Rasterize(ctx context.Context, svg []byte, opts Options) ([]byte, error) {
	if err := checkFonts(svg, opts); err != nil {
		return nil, err
	}
	r := &run{
		opts:      opts,
		gradients: make(map[string]*gradient),
		clips:     make(map[string]rrect),
	}
	dec := xml.NewDecoder(bytes.NewReader(svg))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse markup: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := r.start(t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			r.end(t)
		}
	}
	if r.dc == nil {
		return nil, fmt.Errorf("parse markup: no <svg> element")
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, r.dc.Image(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

type stop struct {
	offset float64
	color  color.NRGBA
}

// gradient holds bounding-box percentages in [0, 1].
type gradient struct {
	x1, y1, x2, y2 float64
	stops          []stop
}

type rrect struct {
	x, y, w, h, r float64
}

// run is the state of one rasterization.
type run struct {
	opts      Options
	dc        *gg.Context
	scale     float64
	gradients map[string]*gradient
	clips     map[string]rrect
	defs      int
	grad      *gradient
	clip      string
}

type attrs map[string]string

func attrsOf(se xml.StartElement) attrs {
	a := make(attrs, len(se.Attr))
	for _, at := range se.Attr {
		a[at.Name.Local] = at.Value
	}
	return a
}

func (a attrs) num(key string) float64 {
	v := strings.TrimSpace(a[key])
	v = strings.TrimSuffix(v, "px")
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

// pct reads "50%" or "0.5" as a fraction.
func (a attrs) pct(key string, def float64) float64 {
	v := strings.TrimSpace(a[key])
	if v == "" {
		return def
	}
	if strings.HasSuffix(v, "%") {
		f, _ := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		return f / 100
	}
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

func (a attrs) opacity(key string) float64 {
	if _, ok := a[key]; !ok {
		return 1
	}
	return a.num(key)
}

func (r *run) start(se xml.StartElement) error {
	a := attrsOf(se)
	switch se.Name.Local {
	case "svg":
		return r.begin(a)
	case "defs":
		r.defs++
	case "linearGradient":
		r.grad = &gradient{
			x1: a.pct("x1", 0), y1: a.pct("y1", 0),
			x2: a.pct("x2", 1), y2: a.pct("y2", 0),
		}
		r.gradients[a["id"]] = r.grad
	case "stop":
		if r.grad != nil {
			c, err := parseColor(a["stop-color"], a.opacity("stop-opacity"))
			if err != nil {
				return err
			}
			r.grad.stops = append(r.grad.stops, stop{offset: a.pct("offset", 0), color: c})
		}
	case "clipPath":
		r.clip = a["id"]
	case "rect":
		if r.dc == nil {
			return fmt.Errorf("parse markup: <rect> outside <svg>")
		}
		if r.clip != "" {
			r.clips[r.clip] = rrect{a.num("x"), a.num("y"), a.num("width"), a.num("height"), a.num("rx")}
			return nil
		}
		if r.defs == 0 {
			return r.rect(a)
		}
	case "path":
		if r.dc != nil && r.defs == 0 {
			return r.path(a)
		}
	case "image":
		if r.dc != nil && r.defs == 0 {
			return r.image(a)
		}
	}
	return nil
}

func (r *run) end(ee xml.EndElement) {
	switch ee.Name.Local {
	case "defs":
		r.defs--
	case "linearGradient":
		r.grad = nil
	case "clipPath":
		r.clip = ""
	}
}

// begin sizes the output from the root element.
func (r *run) begin(a attrs) error {
	if r.dc != nil {
		return nil
	}
	w, h := a.num("width"), a.num("height")
	if vb := strings.Fields(strings.ReplaceAll(a["viewBox"], ",", " ")); len(vb) == 4 {
		vw, _ := strconv.ParseFloat(vb[2], 64)
		vh, _ := strconv.ParseFloat(vb[3], 64)
		if vw > 0 && vh > 0 {
			w, h = vw, vh
		}
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("parse markup: invalid size %gx%g", w, h)
	}
	outW := r.opts.TargetWidth
	if outW <= 0 {
		outW = int(math.Round(w))
	}
	r.scale = float64(outW) / w
	outH := int(math.Round(h * r.scale))
	r.dc = gg.NewContext(outW, outH)
	r.dc.Scale(r.scale, r.scale)
	return nil
}

func (r *run) rect(a attrs) error {
	x, y, w, h, rx := a.num("x"), a.num("y"), a.num("width"), a.num("height"), a.num("rx")
	if w <= 0 || h <= 0 {
		return nil
	}
	dc := r.dc
	if rx > 0 {
		dc.DrawRoundedRectangle(x, y, w, h, rx)
	} else {
		dc.DrawRectangle(x, y, w, h)
	}
	defer dc.ClearPath()

	if a["fill"] != "none" {
		if err := r.setFill(a, x, y, w, h); err != nil {
			return err
		}
		dc.FillPreserve()
	}
	if s := a["stroke"]; s != "" && s != "none" {
		c, err := parseColor(s, a.opacity("stroke-opacity"))
		if err != nil {
			return err
		}
		sw := a.num("stroke-width")
		if _, ok := a["stroke-width"]; !ok {
			sw = 1
		}
		dc.SetColor(c)
		dc.SetLineWidth(sw * r.scale)
		dc.StrokePreserve()
	}
	return nil
}

// setFill configures the fill style for a shape with the given bounds.
func (r *run) setFill(a attrs, x, y, w, h float64) error {
	f := strings.TrimSpace(a["fill"])
	switch {
	case f == "none":
		return nil
	case strings.HasPrefix(f, "url(#"):
		id := strings.TrimSuffix(strings.TrimPrefix(f, "url(#"), ")")
		g, ok := r.gradients[id]
		if !ok || len(g.stops) == 0 {
			return fmt.Errorf("parse markup: unknown gradient %q", id)
		}
		x1, y1 := r.dc.TransformPoint(x+w*g.x1, y+h*g.y1)
		x2, y2 := r.dc.TransformPoint(x+w*g.x2, y+h*g.y2)
		lg := gg.NewLinearGradient(x1, y1, x2, y2)
		for _, s := range g.stops {
			lg.AddColorStop(s.offset, s.color)
		}
		r.dc.SetFillStyle(lg)
		return nil
	}
	if f == "" {
		f = "#000000"
	}
	c, err := parseColor(f, a.opacity("fill-opacity"))
	if err != nil {
		return err
	}
	r.dc.SetColor(c)
	return nil
}

func (r *run) path(a attrs) error {
	if a["fill"] == "none" {
		return nil
	}
	if err := tracePath(r.dc, a["d"]); err != nil {
		return err
	}
	if err := r.setFill(a, 0, 0, 0, 0); err != nil {
		r.dc.ClearPath()
		return err
	}
	r.dc.SetFillRule(gg.FillRuleWinding)
	r.dc.Fill()
	return nil
}

func (r *run) image(a attrs) error {
	x, y, w, h := a.num("x"), a.num("y"), a.num("width"), a.num("height")
	dw, dh := int(math.Round(w*r.scale)), int(math.Round(h*r.scale))
	if dw <= 0 || dh <= 0 {
		return nil
	}
	href := a["href"]
	data, ctype, err := decodeDataURI(href)
	if err != nil {
		return err
	}
	cover := strings.HasSuffix(strings.TrimSpace(a["preserveAspectRatio"]), "slice")
	img, err := decodeImage(data, ctype, dw, dh, cover)
	if err != nil {
		return err
	}

	dc := r.dc
	dx, dy := dc.TransformPoint(x, y)
	dc.Push()
	if cp := a["clip-path"]; strings.HasPrefix(cp, "url(#") {
		id := strings.TrimSuffix(strings.TrimPrefix(cp, "url(#"), ")")
		if c, ok := r.clips[id]; ok {
			dc.DrawRoundedRectangle(c.x, c.y, c.w, c.h, c.r)
			dc.Clip()
		}
	}
	dc.Identity()
	dc.DrawImage(img, int(math.Round(dx)), int(math.Round(dy)))
	dc.ResetClip()
	dc.Pop()
	return nil
}

// parseColor reads "#rgb" or "#rrggbb".
func parseColor(s string, opacity float64) (color.NRGBA, error) {
	c, err := theme.ParseHex(strings.TrimSpace(s))
	if err != nil {
		return color.NRGBA{}, err
	}
	return c.WithAlpha(opacity).NRGBA(), nil
}
