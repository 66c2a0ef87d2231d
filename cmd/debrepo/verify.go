// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/debrepo/cmd/debrepo/cli"
	"github.com/bureau-foundation/debrepo/lib/layout"
	"github.com/bureau-foundation/debrepo/lib/release"
	"github.com/bureau-foundation/debrepo/lib/repobuild"
)

func verifyCommand(stdout io.Writer) *cli.Command {
	var (
		codename string
		keyPath  string
	)
	command := &cli.Command{
		Name:    "verify",
		Summary: "Check a built repository tree",
		Description: `Re-read dists/<codename>/Release in DIR and check every listed file
against its size and digests, then verify InRelease and Release.gpg
against the public key (DIR/key.gpg unless --key is given).`,
		Usage: "debrepo verify [--codename NAME] [--key FILE] DIR",
		Flags: func() *pflag.FlagSet {
			codename, keyPath = "", ""
			flagSet := pflag.NewFlagSet("verify", pflag.ContinueOnError)
			flagSet.StringVar(&codename, "codename", repobuild.DefaultCodename, "distribution codename")
			flagSet.StringVar(&keyPath, "key", "", "armored public key (default DIR/key.gpg)")
			return flagSet
		},
	}
	command.Run = func(_ context.Context, args []string) error {
		if len(args) != 1 {
			return command.Usagef("exactly one repository directory is required")
		}
		tree := layout.New(args[0], codename, layout.DefaultComponent)

		manifest, err := release.Verify(tree)
		if err != nil {
			return err
		}
		if keyPath == "" {
			keyPath = tree.PublicKeyPath()
		}
		publicKey, err := os.ReadFile(keyPath)
		if err != nil {
			return fmt.Errorf("reading public key: %w", err)
		}
		if err := release.VerifySignatures(tree, publicKey); err != nil {
			return err
		}

		fmt.Fprintf(stdout, "%s %s: %d files verified, signatures good\n",
			manifest.Origin, manifest.Codename, len(manifest.Files))
		fmt.Fprintf(stdout, "  architectures: %s\n", strings.Join(manifest.Architectures, " "))
		return nil
	}
	return command
}
