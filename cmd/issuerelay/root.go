package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/charlesng35/issuerelay/internal/app"
	"github.com/charlesng35/issuerelay/pkg/logger"
)

// options are shared by every subcommand.
type options struct {
	configPath string
}

func newRootCommand(version string) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "issuerelay",
		Short: "Relay GitHub issues into Discord",
		Long: `issuerelay watches Discord channels for GitHub issue references such as
owner/repo#123 and replies with a summary of each issue. Issues are served from a
two-tier cache backed by the configured database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration directory or file")

	root.AddCommand(
		newServeCommand(opts),
		newCacheCommand(opts),
		newTokenCommand(opts),
		newHashPasswordCommand(),
	)
	return root
}

// load reads configuration and configures the global logger.
func (o *options) load() (*app.Config, error) {
	cfg, err := loadApplicationConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := app.ConfigureLogging(cfg.Server); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
	if info.IsDir() {
		return app.LoadConfig(path)
	}
	return app.LoadConfigFile(path)
}

func syncLogger() {
	_ = logger.Sync() // best effort
}
