// Package compose assembles the card node tree.
//
// A card has two regions. The hero is one of two layouts, picked once by
// [ChooseHero]: an [ImageHero] stacks the featured image over the title, a
// [CenteredHero] centers the title in the accent color. The footer is always
// present and absolutely positioned at the bottom: a gradient scrim fading
// into the hero, the avatar (or a solid accent circle) and the name and
// address.
//
// Building is pure. All geometry comes from the injected card.Canvas.
package compose

import (
	"github.com/matzehuels/wnft/pkg/card"
	"github.com/matzehuels/wnft/pkg/fonts"
	"github.com/matzehuels/wnft/pkg/gatekeeper"
	"github.com/matzehuels/wnft/pkg/theme"
	"github.com/matzehuels/wnft/pkg/tree"
)

// Node names, usable with tree.Node.Find.
const (
	NodeRoot           = "card"
	NodeHero           = "hero"
	NodeFeaturedFrame  = "featured-frame"
	NodeFeaturedImage  = "featured-image"
	NodeTitle          = "title"
	NodeFooter         = "footer"
	NodeScrim          = "scrim"
	NodeAvatarFrame    = "avatar-frame"
	NodeAvatarImage    = "avatar-image"
	NodeAvatarFallback = "avatar-fallback"
	NodeIdentity       = "identity"
	NodeDisplayName    = "display-name"
	NodeAddress        = "address"
)

// FamilyPrimary is the family of every text node.
const FamilyPrimary = fonts.Primary

// Input is everything one card needs.
type Input struct {
	Request   card.Request
	Styles    theme.Styles
	Featured  gatekeeper.Checked
	Avatar    gatekeeper.Checked
	TitleSize float64 // pixels
}

// Hero is the tagged variant of the hero layout.
type Hero interface {
	hero()
}

// ImageHero puts the featured image above a left-aligned title.
type ImageHero struct{ Src string }

// CenteredHero centers the title alone.
type CenteredHero struct{}

func (ImageHero) hero()    {}
func (CenteredHero) hero() {}

// ChooseHero picks the hero layout from the featured image check.
func ChooseHero(featured gatekeeper.Checked) Hero {
	if featured.OK() {
		return ImageHero{Src: featured.Src()}
	}
	return CenteredHero{}
}

// Builder builds card trees for one canvas.
type Builder struct {
	canvas card.Canvas
}

// NewBuilder returns a Builder for c.
func NewBuilder(c card.Canvas) *Builder {
	return &Builder{canvas: c}
}

// Canvas returns the builder's geometry.
func (b *Builder) Canvas() card.Canvas { return b.canvas }

// Build returns the card tree. It fails only for an accent the palette does
// not define.
func (b *Builder) Build(in Input) (*tree.Node, error) {
	accent, err := in.Styles.Accent(in.Request.Accent)
	if err != nil {
		return nil, err
	}
	size := float64(b.canvas.Size)
	bg := in.Styles.Background

	var hero *tree.Node
	switch h := ChooseHero(in.Featured).(type) {
	case ImageHero:
		hero = b.imageHero(h, in)
	case CenteredHero:
		hero = b.centeredHero(in, accent)
	}

	root := tree.Box(NodeRoot, tree.Style{
		Width:      tree.Px(size),
		Height:     tree.Px(size),
		Direction:  tree.Column,
		Background: &bg,
	},
		hero,
		b.footer(in, accent),
	)
	return root, nil
}

func (b *Builder) imageHero(h ImageHero, in Input) *tree.Node {
	c := b.canvas
	img := c.FeaturedImage
	return tree.Box(NodeHero, tree.Style{Direction: tree.Column},
		tree.Box(NodeFeaturedFrame, tree.Style{
			Width:  tree.Px(float64(img.Width)),
			Height: tree.Px(float64(img.Height)),
		},
			tree.Image(NodeFeaturedImage, tree.Style{
				Position:  tree.Absolute,
				Width:     tree.Pct(100),
				Height:    tree.Pct(100),
				ObjectFit: tree.FitCover,
			}, h.Src),
		),
		tree.Text(NodeTitle, b.textStyle(c.HeroTitle, in.TitleSize, tree.WeightSemiBold, in.Styles.Foreground), in.Request.Title),
	)
}

func (b *Builder) centeredHero(in Input, accent theme.Color) *tree.Node {
	c := b.canvas
	title := b.textStyle(c.CenteredTitle, in.TitleSize, tree.WeightSemiBold, accent)
	title.TextAlign = tree.TextCenter
	return tree.Box(NodeHero, tree.Style{
		Direction:      tree.Row,
		FlexGrow:       1,
		Width:          tree.Px(float64(c.Size)),
		Padding:        c.CenteredInset,
		AlignItems:     tree.AlignCenter,
		JustifyContent: tree.AlignCenter,
		TextAlign:      tree.TextCenter,
	},
		tree.Text(NodeTitle, title, in.Request.Title),
	)
}

func (b *Builder) footer(in Input, accent theme.Color) *tree.Node {
	c := b.canvas
	s := in.Styles
	bg := s.Background
	gh := float64(c.FooterGradientHeight)

	scrim := tree.Box(NodeScrim, tree.Style{
		Position: tree.Absolute,
		Top:      tree.Px(c.ScrimTop()),
		Left:     tree.Px(0),
		Right:    tree.Px(0),
		Height:   tree.Px(gh),
		Gradient: &tree.Gradient{
			Angle: 0,
			Stops: []tree.Stop{
				{Offset: 0, Color: s.Background},
				{Offset: 1, Color: s.BackgroundNoOpacity},
			},
		},
	})

	identity := tree.Box(NodeIdentity, tree.Style{
		Direction: tree.Column,
		Padding:   tree.Edges{Left: c.IdentityInset},
	},
		tree.Text(NodeDisplayName, b.textStyle(c.DisplayName, c.DisplayName.FontSize, tree.WeightSemiBold, s.Foreground), in.Request.DisplayName),
		tree.Text(NodeAddress, b.textStyle(c.Address, c.Address.FontSize, tree.WeightRegular, s.TextTertiary), in.Request.Address),
	)

	return tree.Box(NodeFooter, tree.Style{
		Position:   tree.Absolute,
		Bottom:     tree.Px(0),
		Left:       tree.Px(0),
		Right:      tree.Px(0),
		Direction:  tree.Row,
		Padding:    c.FooterPadding,
		Background: &bg,
	},
		scrim,
		b.avatar(in, accent),
		identity,
	)
}

func (b *Builder) avatar(in Input, accent theme.Color) *tree.Node {
	c := b.canvas
	w, h := float64(c.AvatarImage.Width), float64(c.AvatarImage.Height)
	radius := w / 2

	fill := tree.Style{
		Position: tree.Absolute,
		Top:      tree.Px(0),
		Left:     tree.Px(0),
		Width:    tree.Pct(100),
		Height:   tree.Pct(100),
		Radius:   radius,
	}

	var inner *tree.Node
	if in.Avatar.OK() {
		border := in.Styles.ForegroundTertiary
		if in.Request.Theme == theme.Light {
			border = in.Styles.ForegroundSecondary
		}
		fill.ObjectFit = tree.FitCover
		fill.Border = tree.Border{Width: c.AvatarBorder, Color: border}
		inner = tree.Image(NodeAvatarImage, fill, in.Avatar.Src())
	} else {
		fill.Background = &accent
		inner = tree.Box(NodeAvatarFallback, fill)
	}

	return tree.Box(NodeAvatarFrame, tree.Style{
		Width:  tree.Px(w),
		Height: tree.Px(h),
	}, inner)
}

func (b *Builder) textStyle(tb card.TextBlock, size float64, weight int, color theme.Color) tree.Style {
	return tree.Style{
		Padding:       tb.Padding,
		FontFamily:    FamilyPrimary,
		FontWeight:    weight,
		FontSize:      size,
		LineHeight:    tb.LineHeight,
		LetterSpacing: tb.LetterSpacing,
		Color:         color,
	}
}
