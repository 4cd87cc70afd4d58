package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wnft/internal/config"
	"github.com/matzehuels/wnft/pkg/card"
	"github.com/matzehuels/wnft/pkg/gatekeeper"
	"github.com/matzehuels/wnft/pkg/observability"
)

// verdictHooks captures the gatekeeper's rejection for display.
type verdictHooks struct {
	mu     sync.Mutex
	reason string
	err    error
}

func (h *verdictHooks) OnImageAccepted(context.Context, string, int, int) {}

func (h *verdictHooks) OnImageRejected(_ context.Context, _, reason string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reason, h.err = reason, err
}

// probeCommand runs the gatekeeper on one URL.
func (c *CLI) probeCommand() *cobra.Command {
	var kind string
	var allowPrivate bool

	cmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Check whether an image URL would be used on a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			required, err := requiredSize(gatekeeper.Kind(kind))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			comps, err := c.build(ctx, func(cfg *config.Config) {
				if allowPrivate {
					cfg.HTTP.AllowPrivateHosts = true
				}
			})
			if err != nil {
				return err
			}
			defer comps.Close()

			hooks := &verdictHooks{}
			previous := observability.Gatekeeper()
			observability.SetGatekeeperHooks(hooks)
			defer observability.SetGatekeeperHooks(previous)

			checked := comps.Gatekeeper.Check(ctx, gatekeeper.Kind(kind), args[0], required)
			if err := ctx.Err(); err != nil {
				return err
			}

			out := printer{w: cmd.OutOrStdout()}
			out.keyValue("url", args[0])
			out.keyValue("kind", kind)
			out.keyValue("required", required.String())
			if checked.OK() {
				out.keyValue("size", fmt.Sprintf("%dx%d", checked.Width, checked.Height))
				out.keyValue("type", checked.ContentType)
				out.success("Accepted")
				return nil
			}
			hooks.mu.Lock()
			defer hooks.mu.Unlock()
			out.warning("Rejected: %s", hooks.reason)
			if hooks.err != nil {
				out.detail("%v", hooks.err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(gatekeeper.KindFeatured), "image slot (featured, avatar)")
	cmd.Flags().BoolVar(&allowPrivate, "allow-private", false, "allow loopback and private network hosts")
	cmd.RegisterFlagCompletionFunc("kind", cobra.FixedCompletions([]string{"featured", "avatar"}, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

func requiredSize(kind gatekeeper.Kind) (card.Dimensions, error) {
	canvas := card.DefaultCanvas()
	switch kind {
	case gatekeeper.KindFeatured:
		return canvas.FeaturedImage, nil
	case gatekeeper.KindAvatar:
		return canvas.AvatarImage, nil
	}
	return card.Dimensions{}, fmt.Errorf("unknown kind %q (must be featured or avatar)", kind)
}
