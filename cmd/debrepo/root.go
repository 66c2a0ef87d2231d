// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/debrepo/cmd/debrepo/cli"
	"github.com/bureau-foundation/debrepo/lib/config"
	"github.com/bureau-foundation/debrepo/lib/version"
)

// rootCommand builds the command tree. Command output goes to stdout;
// logs and help go to stderr.
func rootCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "debrepo",
		Description: `debrepo: signed APT repositories from release assets.

Collects .deb files from the latest GitHub releases of a repository (or
a local directory), writes Packages and a signed Release, and publishes
the tree under repos/<owner>/<repo> in the configured object store.`,
		Subcommands: []*cli.Command{
			buildCommand(stdout),
			keygenCommand(stdout),
			exportKeyCommand(stdout),
			inspectCommand(stdout),
			verifyCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(context.Context, []string) error {
					fmt.Fprintf(stdout, "debrepo %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Build and publish the latest release of a repository",
				Command:     "debrepo build --owner acme --repo widget",
			},
			{
				Description: "Build the last three releases into a local directory without publishing",
				Command:     "debrepo build --owner acme --repo widget --limit 3 --output ./widget-repo --no-publish",
			},
			{
				Description: "Check a built tree",
				Command:     "debrepo verify ./widget-repo",
			},
		},
	}
}

// globalFlags are shared by every command that loads configuration.
type globalFlags struct {
	configPath string
	verbose    bool
}

func (g *globalFlags) add(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&g.configPath, "config", "", "configuration file (default $DEBREPO_CONFIG)")
	flagSet.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
}

// load reads and validates the configuration named by --config or
// DEBREPO_CONFIG.
func (g *globalFlags) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if g.configPath != "" {
		cfg, err = config.LoadFile(g.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *globalFlags) logger() *slog.Logger {
	return cli.NewCommandLogger(g.verbose)
}
