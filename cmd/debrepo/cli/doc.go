// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the debrepo CLI.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. [Command.Execute] parses flags, routes to subcommands and
// prints structured help with examples. Unknown subcommands and flags
// get a "did you mean" suggestion by Levenshtein distance (at most 3).
//
// [NewCommandLogger] picks a text or JSON slog handler depending on
// whether stderr is a terminal. [WriteJSON] is the --json output path.
package cli
