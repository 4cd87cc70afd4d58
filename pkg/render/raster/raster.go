// Package raster converts card markup into PNG bytes.
//
// Two backends are available. [Native] is pure Go and understands exactly
// the SVG subset the markup package writes: rects (optionally rounded,
// filled or stroked), linear gradients, absolute outline paths and embedded
// data-URI images with rounded clips. [Rsvg] shells out to librsvg's
// rsvg-convert for full SVG support.
//
//	r, err := raster.New("native")
//	png, err := r.Rasterize(ctx, svg, raster.Options{TargetWidth: 1024})
package raster

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Backend names accepted by New.
const (
	BackendNative = "native"
	BackendRsvg   = "rsvg"
)

// ErrSystemFonts is returned for markup with <text> elements when system
// fonts are disabled.
var ErrSystemFonts = errors.New("markup requires system fonts")

// Options controls one rasterization.
type Options struct {
	// TargetWidth is the output width in pixels; the height follows the
	// markup's aspect ratio. Zero keeps the markup width.
	TargetWidth int
	// DisableSystemFonts rejects markup that would need host fonts.
	DisableSystemFonts bool
}

// Rasterizer turns SVG markup into PNG bytes.
type Rasterizer interface {
	Rasterize(ctx context.Context, svg []byte, opts Options) ([]byte, error)
}

// New returns the backend called name. Empty selects the native backend.
func New(name string) (Rasterizer, error) {
	switch strings.ToLower(name) {
	case "", BackendNative:
		return Native{}, nil
	case BackendRsvg:
		return Rsvg{}, nil
	}
	return nil, fmt.Errorf("unknown rasterizer %q (must be native or rsvg)", name)
}

// checkFonts fails when opts forbid system fonts and svg contains text.
func checkFonts(svg []byte, opts Options) error {
	if !opts.DisableSystemFonts {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(svg))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse markup: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok && isTextElement(se.Name.Local) {
			return fmt.Errorf("%w: <%s> element", ErrSystemFonts, se.Name.Local)
		}
	}
}

func isTextElement(name string) bool {
	switch name {
	case "text", "tspan", "textPath":
		return true
	}
	return false
}
