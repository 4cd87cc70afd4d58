package gatekeeper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/srwiley/oksvg"

	"github.com/matzehuels/wnft/pkg/card"
	"github.com/matzehuels/wnft/pkg/httputil"
)

// verify downloads an image that passed the header check and decodes it
// in full.
func (g *Gatekeeper) verify(ctx context.Context, kind Kind, c Checked, required card.Dimensions) (Checked, *Rejection) {
	data, ctype, err := g.fetcher.Fetch(ctx, c.URL)
	if err != nil {
		return Checked{}, &Rejection{Kind: kind, Reason: classify(err), Err: err}
	}
	if !AcceptedTypes[ctype] {
		return Checked{}, &Rejection{Kind: kind, Reason: ReasonUnsupportedType, Err: fmt.Errorf("fetched content type %q", ctype)}
	}

	got, err := decodeSize(data, ctype)
	if err != nil {
		return Checked{}, &Rejection{Kind: kind, Reason: ReasonUndecodable, Err: err}
	}
	if reason, err := g.fits(got, required); err != nil {
		return Checked{}, &Rejection{Kind: kind, Reason: reason, Err: err}
	}
	if ctype != "image/svg+xml" {
		if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
			return Checked{}, &Rejection{Kind: kind, Reason: ReasonUndecodable, Err: fmt.Errorf("%w: %v", httputil.ErrUndecodable, err)}
		}
	}
	return Checked{URL: c.URL, Width: got.Width, Height: got.Height, ContentType: ctype, Data: data}, nil
}

// decodeSize reads the pixel size of a downloaded image. SVG documents are
// parsed in full; raster formats only up to their header so the caller can
// refuse oversized images before decoding them.
func decodeSize(data []byte, ctype string) (card.Dimensions, error) {
	if ctype == "image/svg+xml" {
		w, h, err := httputil.SVGSize(data)
		if err != nil {
			return card.Dimensions{}, err
		}
		if _, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode); err != nil {
			return card.Dimensions{}, fmt.Errorf("%w: %v", httputil.ErrUndecodable, err)
		}
		return card.Dimensions{Width: w, Height: h}, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return card.Dimensions{}, fmt.Errorf("%w: %v", httputil.ErrUndecodable, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return card.Dimensions{}, errors.New("image has no pixels")
	}
	return card.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}
