// Package cli implements the wnft command-line interface.
//
// # Commands
//
//   - generate: render a card to PNG (and optionally SVG)
//   - probe: run the image gatekeeper on one URL and print its verdict
//   - serve: start the HTTP API
//   - cache: inspect or clear the file probe cache
//
// All commands accept --config and --verbose (-v). The command's logger
// rides on its context, so stage logs from the pipeline land in the same
// stream as the CLI's own lines.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/wnft/pkg/pipeline"
)

// newLogger writes leveled lines with a short clock and level labels in the
// CLI palette.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
	styles := log.DefaultStyles()
	styles.Levels[log.DebugLevel] = styles.Levels[log.DebugLevel].Foreground(colorDim)
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].Foreground(colorCyan)
	styles.Levels[log.WarnLevel] = styles.Levels[log.WarnLevel].Foreground(colorYellow)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].Foreground(colorRed)
	styles.Keys["hero"] = lipgloss.NewStyle().Foreground(colorGreen)
	l.SetStyles(styles)
	return l
}

// logRendered reports a finished card with its stage timings.
func logRendered(l *log.Logger, res *pipeline.Result) {
	ms := func(d time.Duration) time.Duration { return d.Round(time.Millisecond) }
	l.Info("Rendered card",
		"size", res.Width,
		"hero", res.Hero,
		"title", res.TitleSize,
		"images", ms(res.Stats.ProbeTime),
		"markup", ms(res.Stats.MarkupTime),
		"raster", ms(res.Stats.RasterTime),
		"total", ms(res.Stats.Total()))
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
