package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/livegraph/pkg/config"
)

// setup runs before every command. It applies --verbose, loads the --config
// file when given, and attaches the logger to the command context.
//
// Config values are defaults for the commands: flags the user sets
// explicitly take precedence (see layoutFlags.apply).
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	level := LogInfo
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))

	if c.configPath == "" {
		c.cfg = config.Default()
		return nil
	}
	loader, err := config.NewLoader(c.configPath, c.Logger)
	if err != nil {
		return err
	}
	c.loader = loader
	c.cfg = loader.Config()
	c.Logger.Debug("config loaded", "path", c.configPath)
	return nil
}

// config returns the active configuration.
func (c *CLI) config() config.Config {
	if c.loader != nil {
		return c.loader.Config()
	}
	return c.cfg
}
