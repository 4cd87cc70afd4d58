// Package pipeline generates identity cards end to end.
//
// A card moves through four stages:
//
//  1. Probe: the featured image and avatar URLs are checked concurrently by
//     the gatekeeper. Rejected or absent images simply drop out.
//  2. Compose: the title size is chosen and the card tree is built.
//  3. Markup: the tree is laid out and written as self-contained SVG.
//  4. Raster: the SVG is rasterized to PNG at the requested width.
//
// Every stage reports to the observability pipeline hooks and logs its
// duration. Invalid requests fail with errors.ErrCodeInvalidInput before any
// network access; failures in the last two stages are
// errors.ErrCodeRenderFailure and produce no output.
//
// # Usage
//
//	png, err := pipeline.GenerateCard(ctx, card.Request{
//	    Title:       "ETHDenver 2025",
//	    Accent:      theme.AccentPurple,
//	    Theme:       theme.Dark,
//	    Address:     "0x71C7…976F",
//	    DisplayName: "vitalik.eth",
//	}, card.RenderOptions{Size: 1024})
//
// Long-lived callers build their own Runner:
//
//	runner := pipeline.NewRunner(
//	    pipeline.WithLogger(logger),
//	    pipeline.WithRasterizer(raster.Rsvg{}),
//	)
//	result, err := runner.Execute(ctx, req, card.RenderOptions{})
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/matzehuels/wnft/pkg/card"
	"github.com/matzehuels/wnft/pkg/gatekeeper"
	"github.com/matzehuels/wnft/pkg/typography"
)

// Stage names reported to observability hooks.
const (
	StageProbe   = "probe"
	StageCompose = "compose"
	StageMarkup  = "markup"
	StageRaster  = "raster"
)

// Hero layouts reported in Result.
const (
	HeroImage    = "image"
	HeroCentered = "centered"
)

// Stats holds per-stage durations.
type Stats struct {
	ProbeTime   time.Duration `json:"probe_time"`
	ComposeTime time.Duration `json:"compose_time"`
	MarkupTime  time.Duration `json:"markup_time"`
	RasterTime  time.Duration `json:"raster_time"`
}

// Total is the sum of all stages.
func (s Stats) Total() time.Duration {
	return s.ProbeTime + s.ComposeTime + s.MarkupTime + s.RasterTime
}

// Output is the product of the render stages.
type Output struct {
	SVG    []byte
	PNG    []byte
	Width  int
	Height int
}

// Result is everything Execute learned while generating a card.
type Result struct {
	Output
	Featured    gatekeeper.Checked
	Avatar      gatekeeper.Checked
	Hero        string
	TitleSize   typography.TitleSize
	TitlePixels float64
	Stats       Stats
}

var (
	defaultRunner     *Runner
	defaultRunnerOnce sync.Once
)

// Default returns the shared runner used by GenerateCard.
func Default() *Runner {
	defaultRunnerOnce.Do(func() {
		defaultRunner = NewRunner()
	})
	return defaultRunner
}

// GenerateCard renders req to PNG bytes with the default runner.
func GenerateCard(ctx context.Context, req card.Request, opts card.RenderOptions) ([]byte, error) {
	return Default().Generate(ctx, req, opts)
}
