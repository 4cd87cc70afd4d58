package httputil

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// SVGSize reads the intrinsic size of an SVG document from the root
// element's width and height, falling back to its viewBox. Only absolute
// lengths (unitless or px) count; percentages yield the viewBox size.
func SVGSize(doc []byte) (width, height int, err error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Strict = false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return 0, 0, fmt.Errorf("no <svg> root element")
		}
		if err != nil {
			return 0, 0, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "svg" {
			return 0, 0, fmt.Errorf("root element is <%s>, not <svg>", se.Name.Local)
		}
		return svgRootSize(se)
	}
}

func svgRootSize(se xml.StartElement) (int, int, error) {
	var w, h float64
	var vb []float64
	for _, a := range se.Attr {
		switch a.Name.Local {
		case "width":
			w = parseSVGLength(a.Value)
		case "height":
			h = parseSVGLength(a.Value)
		case "viewBox":
			vb = parseViewBox(a.Value)
		}
	}
	if len(vb) == 4 {
		switch {
		case w == 0 && h == 0:
			w, h = vb[2], vb[3]
		case w == 0 && vb[3] > 0:
			w = h * vb[2] / vb[3]
		case h == 0 && vb[2] > 0:
			h = w * vb[3] / vb[2]
		}
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("svg has no usable width/height or viewBox")
	}
	return int(math.Ceil(w)), int(math.Ceil(h)), nil
}

func parseSVGLength(v string) float64 {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func parseViewBox(v string) []float64 {
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' })
	if len(fields) != 4 {
		return nil
	}
	out := make([]float64, 4)
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil
		}
		out[i] = n
	}
	return out
}
