// Package card holds the request types and the fixed canvas geometry shared
// by every stage of card generation.
//
// A [Canvas] is built once with [DefaultCanvas] and passed by value to the
// composition builder, the image gatekeeper callers and the render pipeline.
// Nothing in the card tree is positioned with a literal that does not come
// from it.
package card

import (
	"fmt"
	"strings"

	"github.com/matzehuels/wnft/pkg/errors"
	"github.com/matzehuels/wnft/pkg/theme"
	"github.com/matzehuels/wnft/pkg/tree"
)

// MaxRenderSize is the largest output width accepted in RenderOptions.
const MaxRenderSize = 4096

// MaxImagePixels caps the decoded area of an embedded image. At four bytes
// per pixel this bounds one decode to 160 MB.
const MaxImagePixels = 40_000_000

// Request describes one card. Empty image URLs mean "no image".
type Request struct {
	Title            string       `json:"title"`
	Accent           theme.Accent `json:"accent"`
	Theme            theme.Theme  `json:"theme"`
	Address          string       `json:"address"`
	DisplayName      string       `json:"display_name"`
	FeaturedImageURL string       `json:"featured_image_url,omitempty"`
	AvatarURL        string       `json:"avatar_url,omitempty"`
}

// Validate checks the enumerated fields. Text fields are free-form and may be
// empty.
func (r Request) Validate() error {
	if !r.Theme.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "invalid theme: %q (must be one of: light, dark)", r.Theme)
	}
	if !r.Accent.Valid() {
		names := make([]string, 0, len(theme.Accents()))
		for _, a := range theme.Accents() {
			names = append(names, string(a))
		}
		return errors.New(errors.ErrCodeInvalidInput, "invalid accent: %q (must be one of: %s)", r.Accent, strings.Join(names, ", "))
	}
	return nil
}

// HasFeaturedImage reports whether a featured image URL was supplied. It says
// nothing about whether the image will be accepted.
func (r Request) HasFeaturedImage() bool { return r.FeaturedImageURL != "" }

// RenderOptions tune the output of a render.
type RenderOptions struct {
	// Size is the output width in pixels. Zero selects the canvas size.
	Size int `json:"size,omitempty"`
}

// Validate rejects negative and oversized widths.
func (o RenderOptions) Validate() error {
	if o.Size < 0 || o.Size > MaxRenderSize {
		return errors.New(errors.ErrCodeInvalidInput, "invalid size: %d (must be between 1 and %d)", o.Size, MaxRenderSize)
	}
	return nil
}

// Width resolves the output width against c.
func (o RenderOptions) Width(c Canvas) int {
	if o.Size == 0 {
		return c.Size
	}
	return o.Size
}

// Dimensions is a pixel width and height.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string { return fmt.Sprintf("%dx%d", d.Width, d.Height) }

// Covers reports whether d is at least as large as req on both axes.
func (d Dimensions) Covers(req Dimensions) bool {
	return d.Width >= req.Width && d.Height >= req.Height
}

// Pixels is the area of d.
func (d Dimensions) Pixels() int64 { return int64(d.Width) * int64(d.Height) }

// TextBlock is the typography of one text node.
type TextBlock struct {
	Padding       tree.Edges
	FontSize      float64 // zero when the size is chosen per request
	LineHeight    float64 // multiple of the font size
	LetterSpacing float64 // multiple of the font size
}

// Canvas is the fixed geometry of a card.
type Canvas struct {
	Size                 int
	FeaturedImage        Dimensions
	AvatarImage          Dimensions
	FooterGradientHeight int
	// ScrimOverlap pulls the scrim this many pixels into the footer so no
	// seam shows between the two at fractional scales.
	ScrimOverlap int

	HeroTitle     TextBlock  // title below a featured image
	CenteredTitle TextBlock  // title alone in the hero
	CenteredInset tree.Edges // padding of the centered hero row

	FooterPadding tree.Edges
	AvatarBorder  float64

	IdentityInset float64 // gap between the avatar and the name column
	DisplayName   TextBlock
	Address       TextBlock
}

// DefaultCanvas returns the 1600px card geometry.
func DefaultCanvas() Canvas {
	return Canvas{
		Size:                 1600,
		FeaturedImage:        Dimensions{Width: 1600, Height: 840},
		AvatarImage:          Dimensions{Width: 168, Height: 168},
		FooterGradientHeight: 160,
		ScrimOverlap:         2,

		HeroTitle: TextBlock{
			Padding:       tree.Edges{Top: 90, Right: 103, Left: 103},
			LineHeight:    1.13,
			LetterSpacing: -0.02,
		},
		CenteredTitle: TextBlock{
			Padding:       tree.Edges{Bottom: 128},
			LineHeight:    1.21,
			LetterSpacing: -0.02,
		},
		CenteredInset: tree.Edges{Right: 108, Left: 108},

		FooterPadding: tree.Edges{Bottom: 112, Left: 112},
		AvatarBorder:  4,

		IdentityInset: 52,
		DisplayName: TextBlock{
			Padding:       tree.Edges{Top: 19},
			FontSize:      75,
			LineHeight:    1.2,
			LetterSpacing: -0.02,
		},
		Address: TextBlock{
			Padding:       tree.Edges{Top: 4},
			FontSize:      61,
			LineHeight:    1.2,
			LetterSpacing: -0.013,
		},
	}
}

// Validate checks the canvas is square-consistent: every sub-region fits
// inside it.
func (c Canvas) Validate() error {
	switch {
	case c.Size <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "canvas size must be positive, got %d", c.Size)
	case c.FeaturedImage.Width > c.Size || c.FeaturedImage.Height > c.Size:
		return errors.New(errors.ErrCodeInvalidInput, "featured image %s exceeds canvas %d", c.FeaturedImage, c.Size)
	case c.AvatarImage.Width <= 0 || c.AvatarImage.Height <= 0:
		return errors.New(errors.ErrCodeInvalidInput, "avatar size must be positive, got %s", c.AvatarImage)
	case c.FooterGradientHeight < 0 || c.FooterGradientHeight > c.Size:
		return errors.New(errors.ErrCodeInvalidInput, "footer gradient height %d out of range", c.FooterGradientHeight)
	case c.ScrimOverlap < 0 || c.ScrimOverlap > c.FooterGradientHeight:
		return errors.New(errors.ErrCodeInvalidInput, "scrim overlap %d out of range", c.ScrimOverlap)
	}
	return nil
}

// ScrimTop is the scrim's offset from the top of the footer.
func (c Canvas) ScrimTop() float64 {
	return float64(-c.FooterGradientHeight + c.ScrimOverlap)
}
