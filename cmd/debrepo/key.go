// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/debrepo/cmd/debrepo/cli"
	"github.com/bureau-foundation/debrepo/lib/assemble"
	"github.com/bureau-foundation/debrepo/lib/clock"
	"github.com/bureau-foundation/debrepo/lib/signing"
)

func keygenCommand(stdout io.Writer) *cli.Command {
	var params globalFlags
	command := &cli.Command{
		Name:    "keygen",
		Summary: "Create the signing key if it does not exist",
		Description: `Load the repository signing key, generating it on first use, and
print its fingerprint and user IDs. Running keygen again is a no-op.`,
		Flags: func() *pflag.FlagSet {
			params = globalFlags{}
			flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
			params.add(flagSet)
			return flagSet
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if len(args) > 0 {
			return command.Usagef("unexpected arguments: %v", args)
		}
		key, err := loadKey(ctx, params)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "fingerprint: %s\n", key.Fingerprint())
		fmt.Fprintf(stdout, "key id:      %s\n", key.KeyID())
		for _, uid := range key.UserIDs() {
			fmt.Fprintf(stdout, "uid:         %s\n", uid)
		}
		return nil
	}
	return command
}

func exportKeyCommand(stdout io.Writer) *cli.Command {
	var (
		params globalFlags
		output string
	)
	command := &cli.Command{
		Name:    "export-key",
		Summary: "Write the armored public key",
		Description: `Write the ASCII-armored public signing key, the same bytes published
as key.gpg at the repository root. Clients install it with:

  curl -fsSL URL/key.gpg | sudo gpg --dearmor -o /usr/share/keyrings/NAME.gpg`,
		Usage: "debrepo export-key [--output FILE]",
		Flags: func() *pflag.FlagSet {
			params = globalFlags{}
			flagSet := pflag.NewFlagSet("export-key", pflag.ContinueOnError)
			params.add(flagSet)
			flagSet.StringVarP(&output, "output", "o", "", "write to FILE instead of stdout")
			return flagSet
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if len(args) > 0 {
			return command.Usagef("unexpected arguments: %v", args)
		}
		key, err := loadKey(ctx, params)
		if err != nil {
			return err
		}
		armored, err := key.ExportPublicKey()
		if err != nil {
			return err
		}
		if output == "" {
			_, err = stdout.Write(armored)
			return err
		}
		if err := os.WriteFile(output, armored, 0o644); err != nil {
			return fmt.Errorf("writing public key: %w", err)
		}
		return nil
	}
	return command
}

func loadKey(ctx context.Context, params globalFlags) (*signing.Key, error) {
	cfg, err := params.load()
	if err != nil {
		return nil, err
	}
	keyring, err := assemble.Keyring(cfg, clock.Real(), params.logger())
	if err != nil {
		return nil, err
	}
	return keyring.EnsureKey(ctx)
}
