package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/wnft/pkg/card"
)

// decodeDataURI splits a data URI into payload and media type.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", fmt.Errorf("image source is not inlined: %.60q", uri)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URI")
	}
	ctype, isBase64 := strings.CutSuffix(meta, ";base64")
	if i := strings.IndexByte(ctype, ';'); i >= 0 {
		ctype = ctype[:i]
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("malformed data URI: %w", err)
		}
		return data, ctype, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("malformed data URI: %w", err)
	}
	return []byte(s), ctype, nil
}

// decodeImage returns an image of exactly w×h pixels. cover scales to fill
// and crops the overflow around the center; otherwise the image stretches.
func decodeImage(data []byte, ctype string, w, h int, cover bool) (image.Image, error) {
	if ctype == "image/svg+xml" || (ctype == "" && bytes.Contains(data[:min(len(data), 512)], []byte("<svg"))) {
		return drawSVG(data, w, h, cover)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if px := (card.Dimensions{Width: cfg.Width, Height: cfg.Height}).Pixels(); px > card.MaxImagePixels {
		return nil, fmt.Errorf("decode image: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, card.MaxImagePixels)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cover {
		return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos), nil
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

func drawSVG(data []byte, w, h int, cover bool) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("decode svg image: %w", err)
	}
	tw, th := w, h
	if vw, vh := icon.ViewBox.W, icon.ViewBox.H; cover && vw > 0 && vh > 0 {
		s := math.Max(float64(w)/vw, float64(h)/vh)
		tw, th = int(math.Ceil(vw*s)), int(math.Ceil(vh*s))
	}
	icon.SetTarget(0, 0, float64(tw), float64(th))

	img := image.NewRGBA(image.Rect(0, 0, tw, th))
	scanner := rasterx.NewScannerGV(tw, th, img, img.Bounds())
	dasher := rasterx.NewDasher(tw, th, scanner)
	icon.Draw(dasher, 1.0)

	if tw == w && th == h {
		return img, nil
	}
	return imaging.CropCenter(img, w, h), nil
}

var pathArgs = map[string]int{"M": 2, "L": 2, "Q": 4, "C": 6, "Z": 0}

// tracePath adds absolute M, L, Q, C and Z commands to dc's current path.
func tracePath(dc *gg.Context, d string) error {
	fields := strings.FieldsFunc(d, func(r rune) bool { return r == ' ' || r == ',' || r == '\n' || r == '\t' })
	var toks []string
	for _, f := range fields {
		// Commands are glued to their first number: "M1 2L3 4Z".
		start := 0
		for i, r := range f {
			if strings.ContainsRune("MLQCZmlqcz", r) {
				if i > start {
					toks = append(toks, f[start:i])
				}
				toks = append(toks, string(r))
				start = i + 1
			}
		}
		if start < len(f) {
			toks = append(toks, f[start:])
		}
	}

	var cmd string
	nums := make([]float64, 0, 6)
	flush := func() error {
		if len(nums) != pathArgs[cmd] {
			return fmt.Errorf("parse markup: path command %s with %d arguments", cmd, len(nums))
		}
		switch cmd {
		case "M":
			dc.MoveTo(nums[0], nums[1])
		case "L":
			dc.LineTo(nums[0], nums[1])
		case "Q":
			dc.QuadraticTo(nums[0], nums[1], nums[2], nums[3])
		case "C":
			dc.CubicTo(nums[0], nums[1], nums[2], nums[3], nums[4], nums[5])
		case "Z":
			dc.ClosePath()
		}
		nums = nums[:0]
		return nil
	}
	for _, t := range toks {
		if len(t) == 1 && strings.Contains("MLQCZ", t) {
			if cmd != "" {
				if err := flush(); err != nil {
					return err
				}
			}
			cmd = t
			continue
		}
		if cmd == "" {
			return fmt.Errorf("parse markup: path data must start with a command")
		}
		if len(t) == 1 && strings.Contains("mlqcz", t) {
			return fmt.Errorf("parse markup: relative path command %s not supported", t)
		}
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return fmt.Errorf("parse markup: path number %q", t)
		}
		nums = append(nums, v)
	}
	if cmd != "" {
		return flush()
	}
	return nil
}
