// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/debrepo/cmd/debrepo/cli"
	"github.com/bureau-foundation/debrepo/lib/assemble"
	"github.com/bureau-foundation/debrepo/lib/repobuild"
	"github.com/bureau-foundation/debrepo/lib/source"
)

type buildParams struct {
	globalFlags

	owner     string
	repo      string
	limit     int
	output    string
	noPublish bool
	fromDir   string
	name      string
	json      bool
}

func buildCommand(stdout io.Writer) *cli.Command {
	var params buildParams
	command := &cli.Command{
		Name:    "build",
		Summary: "Build a repository and publish it",
		Description: `Build an APT repository from the most recent releases that carry
.deb assets, sign it, and publish it to the configured object store.

With --from-dir the packages come from a local directory instead:
either flat (DIR/*.deb) or one subdirectory per release
(DIR/<tag>/*.deb). --name gives the owner/repo the repository is
published as.`,
		Usage: "debrepo build (--owner O --repo R | --from-dir DIR --name O/R) [flags]",
		Flags: func() *pflag.FlagSet {
			params = buildParams{}
			flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
			params.globalFlags.add(flagSet)
			flagSet.StringVar(&params.owner, "owner", "", "GitHub repository owner")
			flagSet.StringVar(&params.repo, "repo", "", "GitHub repository name")
			flagSet.IntVar(&params.limit, "limit", repobuild.DefaultLimit, "number of recent releases with packages to include")
			flagSet.StringVar(&params.output, "output", "", "build into this directory and keep it (must be absent or empty)")
			flagSet.BoolVar(&params.noPublish, "no-publish", false, "build and sign locally without uploading")
			flagSet.StringVar(&params.fromDir, "from-dir", "", "read .deb files from this directory instead of GitHub")
			flagSet.StringVar(&params.name, "name", "", "owner/repo to publish a --from-dir build as")
			flagSet.BoolVar(&params.json, "json", false, "print the build summary as JSON")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Publish the latest release",
				Command:     "debrepo build --owner acme --repo widget",
			},
			{
				Description: "Build local packages into ./out without publishing",
				Command:     "debrepo build --from-dir ./dist --name acme/widget --output ./out --no-publish",
			},
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if len(args) > 0 {
			return command.Usagef("unexpected arguments: %v", args)
		}
		request, err := params.request()
		if err != nil {
			return command.Usagef("%v", err)
		}
		return runBuild(ctx, stdout, params, request)
	}
	return command
}

// request checks that exactly one source was named.
func (params buildParams) request() (repobuild.Request, error) {
	if params.fromDir == "" {
		if params.name != "" {
			return repobuild.Request{}, fmt.Errorf("--name requires --from-dir")
		}
		if params.owner == "" || params.repo == "" {
			return repobuild.Request{}, fmt.Errorf("--owner and --repo are required")
		}
		return repobuild.Request{Owner: params.owner, Repo: params.repo, Limit: params.limit}, nil
	}
	if params.owner != "" || params.repo != "" {
		return repobuild.Request{}, fmt.Errorf("--from-dir cannot be combined with --owner or --repo")
	}
	owner, repo, ok := strings.Cut(params.name, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return repobuild.Request{}, fmt.Errorf("--name must be owner/repo, got %q", params.name)
	}
	return repobuild.Request{Owner: owner, Repo: repo, Limit: params.limit}, nil
}

func runBuild(ctx context.Context, stdout io.Writer, params buildParams, request repobuild.Request) error {
	cfg, err := params.load()
	if err != nil {
		return err
	}
	logger := params.logger().With("command", "build", "repository", request.Name())

	options := assemble.Options{NoPublish: params.noPublish, Logger: logger}
	if params.fromDir != "" {
		options.Source = source.Directory{Root: params.fromDir}
	}
	components, err := assemble.New(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer components.Close()

	summary, err := components.Builder.Build(ctx, request, repobuild.Options{
		Output:    params.output,
		NoPublish: params.noPublish,
	})
	if err != nil {
		return err
	}

	if params.json {
		return cli.WriteJSON(stdout, summary)
	}
	printSummary(stdout, summary, assemble.SourcesLine(cfg, summary.Namespace))
	return nil
}

func printSummary(w io.Writer, summary repobuild.Summary, sourcesLine string) {
	fmt.Fprintf(w, "Built %s (%s)\n", summary.Namespace, summary.Codename)
	fmt.Fprintf(w, "  releases:      %s\n", strings.Join(summary.Releases, ", "))
	fmt.Fprintf(w, "  architectures: %s\n", strings.Join(summary.Architectures, " "))
	fmt.Fprintf(w, "  packages:      %d\n", len(summary.Packages))
	for _, pkg := range summary.Packages {
		fmt.Fprintf(w, "    %s %s %s\n", pkg.Package, pkg.Version, pkg.Architecture)
	}
	if len(summary.Skipped) > 0 {
		fmt.Fprintf(w, "  skipped:       %s\n", strings.Join(summary.Skipped, ", "))
	}
	fmt.Fprintf(w, "  fingerprint:   %s\n", summary.Fingerprint)
	if summary.Root != "" {
		fmt.Fprintf(w, "  tree:          %s\n", summary.Root)
	}
	if summary.Published {
		fmt.Fprintf(w, "  published:     %d objects, %d bytes in %s\n", summary.Uploaded, summary.Bytes, summary.Duration.Round(time.Millisecond))
		if sourcesLine != "" {
			fmt.Fprintf(w, "\n%s\n", sourcesLine)
		}
	} else {
		fmt.Fprintf(w, "  published:     no\n")
	}
}
