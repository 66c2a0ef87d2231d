// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/debrepo/cmd/debrepo/cli"
	"github.com/bureau-foundation/debrepo/lib/debpkg"
	"github.com/bureau-foundation/debrepo/lib/index"
	"github.com/bureau-foundation/debrepo/lib/repobuild"
)

func inspectCommand(stdout io.Writer) *cli.Command {
	var prefix string
	command := &cli.Command{
		Name:    "inspect",
		Summary: "Print the Packages record for a .deb file",
		Description: `Read the control data and digests of one or more .deb files and print
the Packages records they would get in the index. --prefix is the
namespace the Filename field is written under.`,
		Usage: "debrepo inspect [--prefix NAMESPACE] FILE.deb...",
		Flags: func() *pflag.FlagSet {
			prefix = ""
			flagSet := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			flagSet.StringVar(&prefix, "prefix", "", "Filename prefix, e.g. repos/acme/widget")
			return flagSet
		},
	}
	command.Run = func(_ context.Context, args []string) error {
		if len(args) == 0 {
			return command.Usagef("at least one .deb file is required")
		}
		var blobs []debpkg.Blob
		for _, path := range args {
			blob, err := repobuild.Inspect(debpkg.DebInspector{}, path)
			if err != nil {
				return err
			}
			blobs = append(blobs, blob)
		}
		_, err := stdout.Write(index.Render(blobs, prefix))
		return err
	}
	return command
}
