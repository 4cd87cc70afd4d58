// Package markup turns a card tree into a self-contained SVG document.
//
// The generator runs a small flexbox layout over the tree, converts all text
// to glyph outlines with the configured fonts, replaces table-listed
// grapheme clusters with their images, and inlines every remote image as a
// data URI. The output never contains <text> elements or external
// references, so any SVG rasterizer produces the same pixels without access
// to fonts or the network.
//
// Output is deterministic for a given tree, font set and image bytes.
package markup

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/wnft/pkg/fonts"
	"github.com/matzehuels/wnft/pkg/graphemes"
	"github.com/matzehuels/wnft/pkg/httputil"
	"github.com/matzehuels/wnft/pkg/tree"
)

// maxConcurrentFetches bounds image downloads per document.
const maxConcurrentFetches = 4

// ImageSource loads image bytes for a URL.
type ImageSource interface {
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// Options configures one Generate call.
type Options struct {
	Width, Height int
	Fonts         *fonts.Set       // nil uses fonts.Default()
	Graphemes     *graphemes.Table // nil disables substitution
	Images        ImageSource      // nil leaves non-data sources as links
}

type layouter struct {
	fonts  *fonts.Set
	glyphs *graphemes.Table
	buf    sfnt.Buffer
}

// Generate lays out root and returns the SVG document.
func Generate(ctx context.Context, root *tree.Node, opts Options) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("markup: nil tree")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("markup: invalid size %dx%d", opts.Width, opts.Height)
	}
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("markup: %w", err)
	}
	if opts.Fonts == nil {
		opts.Fonts = fonts.Default()
	}

	sources, err := inlineImages(ctx, root, opts.Images)
	if err != nil {
		return nil, err
	}

	l := &layouter{fonts: opts.Fonts, glyphs: opts.Graphemes}
	w, h := float64(opts.Width), float64(opts.Height)
	f, err := l.layout(root, free(w, h, true))
	if err != nil {
		return nil, fmt.Errorf("markup: layout: %w", err)
	}
	place(f, 0, 0)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	p := &painter{canvas: svg.New(&buf), sources: sources}
	p.canvas.Start(opts.Width, opts.Height, fmt.Sprintf(`viewBox="0 0 %d %d"`, opts.Width, opts.Height))
	p.paint(f)
	p.canvas.End()
	return buf.Bytes(), nil
}

// inlineImages resolves every image source of root to a data URI.
func inlineImages(ctx context.Context, root *tree.Node, src ImageSource) (map[string]string, error) {
	out := make(map[string]string)
	var pending []string
	for _, s := range root.Images() {
		if _, seen := out[s]; seen {
			continue
		}
		out[s] = s
		if src != nil && !strings.HasPrefix(s, "data:") {
			pending = append(pending, s)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, url := range pending {
		url := url
		g.Go(func() error {
			data, ctype, err := src.Fetch(ctx, url)
			if err != nil {
				return fmt.Errorf("markup: load image %s: %w", url, err)
			}
			uri := httputil.DataURI(ctype, data)
			mu.Lock()
			out[url] = uri
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
