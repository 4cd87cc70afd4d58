package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wnft/internal/config"
	"github.com/matzehuels/wnft/pkg/card"
	"github.com/matzehuels/wnft/pkg/gatekeeper"
	"github.com/matzehuels/wnft/pkg/observability"
	"github.com/matzehuels/wnft/pkg/pipeline"
	"github.com/matzehuels/wnft/pkg/theme"
)

const defaultOutput = "card.png"

// generateOpts holds the flags of the generate command.
type generateOpts struct {
	title       string
	accent      string
	theme       string
	address     string
	name        string
	featured    string
	avatar      string
	size        int
	output      string
	svgOutput   string
	interactive bool
	rasterizer  string
	noCache     bool
}

// stageMessages label the spinner while a stage runs.
var stageMessages = map[string]string{
	pipeline.StageProbe:   "Checking images...",
	pipeline.StageCompose: "Composing card...",
	pipeline.StageMarkup:  "Drawing outlines...",
	pipeline.StageRaster:  "Rasterizing...",
}

// spinnerHooks moves the spinner along with the pipeline.
type spinnerHooks struct {
	observability.NoopPipelineHooks
	s *spinner
}

func (h spinnerHooks) OnStageStart(_ context.Context, stage string) {
	if msg, ok := stageMessages[stage]; ok {
		h.s.SetMessage(msg)
	}
}

// generateCommand renders one card.
func (c *CLI) generateCommand() *cobra.Command {
	opts := generateOpts{output: defaultOutput}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a card to PNG",
		Long: `Render a card to PNG.

Theme and accent are required. With --interactive, missing ones are picked
from a list. Image URLs that are unreachable, too small or not images are
dropped silently; use "wnft probe" to see why.`,
		Example: `  wnft generate --title "ETHDenver 2025" --theme dark --accent purple \
    --name vitalik.eth --address 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 \
    --featured https://example.com/banner.png --size 1024 -o card.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.title, "title", "", "card title")
	f.StringVar(&opts.accent, "accent", "", "accent color (blue, green, indigo, orange, pink, purple, red, teal, yellow)")
	f.StringVar(&opts.theme, "theme", "", "theme (light, dark)")
	f.StringVar(&opts.address, "address", "", "owner address shown in the footer")
	f.StringVar(&opts.name, "name", "", "owner display name")
	f.StringVar(&opts.featured, "featured", "", "featured image URL (at least 1600x840)")
	f.StringVar(&opts.avatar, "avatar", "", "avatar image URL (at least 168x168)")
	f.IntVar(&opts.size, "size", 0, "output width in pixels (default 1600)")
	f.StringVarP(&opts.output, "output", "o", defaultOutput, "PNG output path")
	f.StringVar(&opts.svgOutput, "svg", "", "also write the SVG markup to this path")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "pick theme and accent interactively")
	f.StringVar(&opts.rasterizer, "rasterizer", "", "PNG backend (native, rsvg)")
	f.BoolVar(&opts.noCache, "no-cache", false, "do not read or write the probe cache")

	cmd.RegisterFlagCompletionFunc("theme", cobra.FixedCompletions([]string{"light", "dark"}, cobra.ShellCompDirectiveNoFileComp))
	accents := make([]string, 0, len(theme.Accents()))
	for _, a := range theme.Accents() {
		accents = append(accents, string(a))
	}
	cmd.RegisterFlagCompletionFunc("accent", cobra.FixedCompletions(accents, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func (c *CLI) runGenerate(cmd *cobra.Command, opts generateOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := printer{w: cmd.OutOrStdout()}

	if opts.interactive {
		if err := c.pickMissing(cmd, &opts); err != nil {
			return err
		}
	}
	req, err := opts.request()
	if err != nil {
		return err
	}

	comps, err := c.build(ctx, func(cfg *config.Config) {
		if opts.rasterizer != "" {
			cfg.Render.Rasterizer = opts.rasterizer
		}
		if opts.noCache {
			cfg.Cache.Backend = config.CacheNone
		}
	})
	if err != nil {
		return err
	}
	defer comps.Close()

	spin := newSpinner(ctx, c.Err, "Starting...")
	previous := observability.Pipeline()
	observability.SetPipelineHooks(spinnerHooks{s: spin})
	defer observability.SetPipelineHooks(previous)

	spin.Start()
	res, err := comps.Runner.Execute(ctx, req, card.RenderOptions{Size: opts.size})
	spin.Stop()
	if err != nil {
		if spin.Cancelled() {
			return ctx.Err()
		}
		out.error("Card failed")
		return err
	}
	logRendered(logger, res)

	if err := writeOutput(opts.output, res.PNG); err != nil {
		return err
	}
	if opts.svgOutput != "" {
		if err := writeOutput(opts.svgOutput, res.SVG); err != nil {
			return err
		}
	}

	out.success("Generated %s card", accentSwatch(req.Theme, req.Accent))
	out.file(opts.output)
	if opts.svgOutput != "" {
		out.file(opts.svgOutput)
	}
	printResult(out, res)
	return nil
}

// pickMissing fills theme and accent from pickers when the flags are empty.
func (c *CLI) pickMissing(cmd *cobra.Command, opts *generateOpts) error {
	if opts.theme == "" {
		v, err := pick(newPickModel("Theme", themeItems(), string(theme.Dark)), cmd.InOrStdin(), c.Err)
		if err != nil {
			return err
		}
		opts.theme = v
	}
	if opts.accent == "" {
		t, err := theme.ParseTheme(opts.theme)
		if err != nil {
			return err
		}
		v, err := pick(newPickModel("Accent", accentItems(t), string(theme.AccentBlue)), cmd.InOrStdin(), c.Err)
		if err != nil {
			return err
		}
		opts.accent = v
	}
	return nil
}

func (o generateOpts) request() (card.Request, error) {
	t, err := theme.ParseTheme(o.theme)
	if err != nil {
		return card.Request{}, err
	}
	a, err := theme.ParseAccent(o.accent)
	if err != nil {
		return card.Request{}, err
	}
	return card.Request{
		Title:            o.title,
		Accent:           a,
		Theme:            t,
		Address:          o.address,
		DisplayName:      o.name,
		FeaturedImageURL: o.featured,
		AvatarURL:        o.avatar,
	}, nil
}

func printResult(out printer, res *pipeline.Result) {
	out.keyValue("size", card.Dimensions{Width: res.Width, Height: res.Height}.String())
	out.keyValue("hero", res.Hero)
	out.keyValue("title", fmt.Sprintf("%s (%gpx)", res.TitleSize, res.TitlePixels))
	out.keyValue("featured", imageStatus(res.Featured))
	out.keyValue("avatar", imageStatus(res.Avatar))
	out.stages(
		"probe "+ms(res.Stats.ProbeTime),
		"compose "+ms(res.Stats.ComposeTime),
		"markup "+ms(res.Stats.MarkupTime),
		"raster "+ms(res.Stats.RasterTime),
	)
}

func imageStatus(c gatekeeper.Checked) string {
	if !c.OK() {
		return "none"
	}
	return fmt.Sprintf("%dx%d %s", c.Width, c.Height, c.ContentType)
}

func ms(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
