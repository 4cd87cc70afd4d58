package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/png"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/wnft/pkg/buildinfo"
	"github.com/matzehuels/wnft/pkg/card"
	"github.com/matzehuels/wnft/pkg/compose"
	apperr "github.com/matzehuels/wnft/pkg/errors"
	"github.com/matzehuels/wnft/pkg/fonts"
	"github.com/matzehuels/wnft/pkg/gatekeeper"
	"github.com/matzehuels/wnft/pkg/graphemes"
	"github.com/matzehuels/wnft/pkg/httputil"
	"github.com/matzehuels/wnft/pkg/observability"
	"github.com/matzehuels/wnft/pkg/render/markup"
	"github.com/matzehuels/wnft/pkg/render/raster"
	"github.com/matzehuels/wnft/pkg/theme"
	"github.com/matzehuels/wnft/pkg/tree"
	"github.com/matzehuels/wnft/pkg/typography"
)

// Runner generates cards with a fixed set of collaborators.
//
// The Runner holds no per-request state. Multiple goroutines can safely use
// the same Runner.
type Runner struct {
	Logger     *log.Logger
	Canvas     card.Canvas
	Gatekeeper *gatekeeper.Gatekeeper
	Sizer      *typography.Sizer
	Builder    *compose.Builder
	Fonts      *fonts.Set
	Graphemes  *graphemes.Table
	Images     markup.ImageSource
	Rasterizer raster.Rasterizer
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(r *Runner) { r.Logger = l } }

// WithCanvas sets the card geometry.
func WithCanvas(c card.Canvas) Option { return func(r *Runner) { r.Canvas = c } }

// WithGatekeeper sets the image gatekeeper.
func WithGatekeeper(g *gatekeeper.Gatekeeper) Option { return func(r *Runner) { r.Gatekeeper = g } }

// WithSizer sets the title sizer.
func WithSizer(s *typography.Sizer) Option { return func(r *Runner) { r.Sizer = s } }

// WithFonts sets the font set used for text outlines.
func WithFonts(f *fonts.Set) Option { return func(r *Runner) { r.Fonts = f } }

// WithGraphemes sets the glyph substitution table.
func WithGraphemes(t *graphemes.Table) Option { return func(r *Runner) { r.Graphemes = t } }

// WithImages sets where accepted images are downloaded from.
func WithImages(src markup.ImageSource) Option { return func(r *Runner) { r.Images = src } }

// WithRasterizer sets the PNG backend.
func WithRasterizer(rz raster.Rasterizer) Option { return func(r *Runner) { r.Rasterizer = rz } }

// NewRunner returns a Runner. Collaborators not set by an option get
// defaults: a public-hosts-only HTTP client shared by the gatekeeper and the
// image loader, the built-in typography, the bundled fonts and glyph table,
// and the native rasterizer.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = log.Default()
	}
	if r.Canvas == (card.Canvas{}) {
		r.Canvas = card.DefaultCanvas()
	}
	var client *httputil.Client
	if r.Gatekeeper == nil || r.Images == nil {
		client = httputil.NewClient(httputil.Options{
			UserAgent:    buildinfo.UserAgent(),
			BlockPrivate: true,
		})
	}
	if r.Gatekeeper == nil {
		r.Gatekeeper = gatekeeper.New(client, gatekeeper.Options{Logger: r.Logger})
	}
	if r.Images == nil {
		r.Images = client
	}
	if r.Sizer == nil {
		r.Sizer = typography.Default()
	}
	if r.Builder == nil {
		r.Builder = compose.NewBuilder(r.Canvas)
	}
	if r.Fonts == nil {
		r.Fonts = fonts.Default()
	}
	if r.Graphemes == nil {
		r.Graphemes = graphemes.Default()
	}
	if r.Rasterizer == nil {
		r.Rasterizer = raster.Native{}
	}
	return r
}

// Generate renders req and returns the PNG bytes.
func (r *Runner) Generate(ctx context.Context, req card.Request, opts card.RenderOptions) ([]byte, error) {
	res, err := r.Execute(ctx, req, opts)
	if err != nil {
		return nil, err
	}
	return res.PNG, nil
}

// Execute runs all stages and reports what happened along the way.
func (r *Runner) Execute(ctx context.Context, req card.Request, opts card.RenderOptions) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	styles, err := theme.Resolve(req.Theme)
	if err != nil {
		return nil, err
	}
	res := &Result{}

	// Stage 1: Probe
	var pair gatekeeper.Pair
	res.Stats.ProbeTime, err = r.stage(ctx, StageProbe, func() error {
		var err error
		pair, err = r.Gatekeeper.CheckPair(ctx, r.Canvas, req.FeaturedImageURL, req.AvatarURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Featured, res.Avatar = pair.Featured, pair.Avatar
	r.Logger.Info("checked images",
		"featured", pair.Featured.OK(),
		"avatar", pair.Avatar.OK(),
		"duration", res.Stats.ProbeTime)

	// Stage 2: Compose
	var root *tree.Node
	res.Stats.ComposeTime, err = r.stage(ctx, StageCompose, func() error {
		hasImage := pair.Featured.OK()
		length := typography.Length(req.Title)
		res.TitleSize = r.Sizer.Size(hasImage, length)
		res.TitlePixels = r.Sizer.Pixels(hasImage, length)
		var err error
		root, err = r.Builder.Build(compose.Input{
			Request:   req,
			Styles:    styles,
			Featured:  pair.Featured,
			Avatar:    pair.Avatar,
			TitleSize: res.TitlePixels,
		})
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternal, err, "compose card")
	}
	res.Hero = HeroCentered
	if _, ok := compose.ChooseHero(pair.Featured).(compose.ImageHero); ok {
		res.Hero = HeroImage
	}
	r.Logger.Info("composed card",
		"hero", res.Hero,
		"title_size", res.TitleSize,
		"duration", res.Stats.ComposeTime)

	// Stages 3 and 4: Render
	out, err := r.render(ctx, root, opts.Width(r.Canvas), &res.Stats)
	if err != nil {
		return nil, err
	}
	res.Output = out
	return res, nil
}

// Render converts a card tree to SVG and PNG at width pixels.
func (r *Runner) Render(ctx context.Context, root *tree.Node, width int) (Output, error) {
	var stats Stats
	return r.render(ctx, root, width, &stats)
}

func (r *Runner) render(ctx context.Context, root *tree.Node, width int, stats *Stats) (Output, error) {
	size := r.Canvas.Size
	out := Output{}

	var err error
	stats.MarkupTime, err = r.stage(ctx, StageMarkup, func() error {
		var err error
		out.SVG, err = markup.Generate(ctx, root, markup.Options{
			Width:     size,
			Height:    size,
			Fonts:     r.Fonts,
			Graphemes: r.Graphemes,
			Images:    r.Images,
		})
		return err
	})
	if err != nil {
		return Output{}, renderError(ctx, err, "generate markup")
	}
	r.Logger.Info("generated markup",
		"bytes", len(out.SVG),
		"duration", stats.MarkupTime)

	stats.RasterTime, err = r.stage(ctx, StageRaster, func() error {
		var err error
		out.PNG, err = r.Rasterizer.Rasterize(ctx, out.SVG, raster.Options{
			TargetWidth:        width,
			DisableSystemFonts: true,
		})
		return err
	})
	if err != nil {
		return Output{}, renderError(ctx, err, "rasterize")
	}
	out.Width, out.Height = width, width
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(out.PNG)); err == nil {
		out.Width, out.Height = cfg.Width, cfg.Height
	}
	r.Logger.Info("rasterized card",
		"size", card.Dimensions{Width: out.Width, Height: out.Height},
		"bytes", len(out.PNG),
		"duration", stats.RasterTime)
	return out, nil
}

// stage runs fn between the pipeline hooks and returns its duration.
func (r *Runner) stage(ctx context.Context, name string, fn func() error) (time.Duration, error) {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	err := fn()
	d := time.Since(start)
	hooks.OnStageComplete(ctx, name, d, err)
	return d, err
}

// renderError keeps cancellation distinguishable from a render failure.
func renderError(ctx context.Context, err error, what string) error {
	if ctxErr := ctx.Err(); ctxErr != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return ctxErr
	}
	return apperr.Wrap(apperr.ErrCodeRenderFailure, err, "%s", what)
}
