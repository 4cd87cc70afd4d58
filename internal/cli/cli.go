package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/wnft/internal/config"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "wnft"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	// Out receives command output; Err receives spinners and prompts.
	Out io.Writer
	Err io.Writer

	configPath string
	// lookupEnv overrides the environment in tests.
	lookupEnv func(string) (string, bool)
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
		Err:    w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the configuration layers below command-line flags.
func (c *CLI) loadConfig() (*config.Config, error) {
	return config.Loader{
		Path:      c.configPath,
		EnvFile:   ".env",
		LookupEnv: c.lookupEnv,
	}.Load()
}

// build loads the configuration, lets the command apply its flags and wires
// the components.
func (c *CLI) build(ctx context.Context, apply func(*config.Config)) (*config.Components, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if apply != nil {
		apply(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg.Build(ctx, loggerFromContext(ctx))
}

// commandContext attaches the CLI logger unless one is already present.
func (c *CLI) commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Value(loggerKey{}).(*log.Logger); !ok {
		ctx = withLogger(ctx, c.Logger)
	}
	return ctx
}
