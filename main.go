// Command media-dedupe finds duplicate photos and videos and moves the
// redundant exact copies into a review folder.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/luinbytes/media-dedupe/config"
	"github.com/luinbytes/media-dedupe/logging"
)

const version = "1.0.0"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, newPalette(os.Stderr, false).fail("Error: ")+err.Error())
		os.Exit(1)
	}
}

// commandContext carries the persistent flags and the lazily loaded
// configuration shared by all subcommands.
type commandContext struct {
	configFlag string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "media-dedupe",
		Short:         "Find duplicate photos and videos and move exact copies aside for review",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "", "Config file path (TOML). Also checks ./.deduprc.toml and ~/.config/media-dedupe/config.toml")
	flags.StringVar(&ctx.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&ctx.logFormat, "log-format", "console", "Log format: console or json")
	flags.BoolVar(&ctx.noColor, "no-color", false, "Disable coloured output")

	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newCompareCommand(ctx))
	rootCmd.AddCommand(newReviewCommand(ctx))
	rootCmd.AddCommand(newDemoCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// load reads the config file and builds the logger. Flags given on the
// command line win over file values.
func (c *commandContext) load(cmd *cobra.Command) error {
	cfg, path, exists, err := config.Load(c.configFlag)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = c.logFormat
	}
	if flags.Changed("no-color") {
		cfg.NoColor = c.noColor
	}

	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Writer:  cmd.ErrOrStderr(),
		NoColor: cfg.NoColor || !isTerminal(cmd.ErrOrStderr()),
	})
	if err != nil {
		return err
	}
	if exists {
		logger.Debug("loaded config", "path", path)
	}

	c.cfg = cfg
	c.cfgPath = path
	c.logger = logger
	return nil
}

func (c *commandContext) palette(w io.Writer) palette {
	return newPalette(w, c.cfg != nil && c.cfg.NoColor)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// The version needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "media-dedupe %s\n", version)
			return nil
		},
	}
}
