package raster

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Rsvg rasterizes with librsvg's rsvg-convert.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
type Rsvg struct {
	// Command overrides the executable name or path.
	Command string
}

func (r Rsvg) command() string {
	if r.Command != "" {
		return r.Command
	}
	return "rsvg-convert"
}

// Rasterize implements Rasterizer.
func (r Rsvg) Rasterize(ctx context.Context, svg []byte, opts Options) ([]byte, error) {
	if err := checkFonts(svg, opts); err != nil {
		return nil, err
	}
	bin, err := exec.LookPath(r.command())
	if err != nil {
		return nil, fmt.Errorf("png export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin")
	}

	args := []string{"-f", "png"}
	if opts.TargetWidth > 0 {
		args = append(args, "-w", strconv.Itoa(opts.TargetWidth))
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("rsvg-convert: %v: %s", err, errBuf.String())
	}
	return out.Bytes(), nil
}
