// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1}, // substitution
		{"abc", "ab", 1},  // deletion
		{"ab", "abc", 1},  // insertion
		{"abc", "bac", 2}, // transposition (counted as 2 edits)
		{"kitten", "sitting", 3},
		{"inspect", "inpsect", 2},
		{"verify", "verfy", 1},
		{"keygen", "kegyen", 2},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			if got := levenshtein(test.a, test.b); got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
			if reverse := levenshtein(test.b, test.a); reverse != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, not symmetric", test.b, test.a, reverse)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "build"},
		{Name: "keygen"},
		{Name: "export-key"},
		{Name: "inspect"},
		{Name: "verify"},
		{Name: "version"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"biuld", "build"},          // transposition
		{"inspct", "inspect"},       // missing letter
		{"verifyy", "verify"},       // extra letter
		{"exportkey", "export-key"}, // missing dash
		{"zzzzzzzzz", ""},           // nothing close
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			if got := suggestCommand(test.input, commands); got != test.want {
				t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestSuggestFlag(t *testing.T) {
	newFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("build", pflag.ContinueOnError)
		flagSet.String("owner", "", "")
		flagSet.String("repo", "", "")
		flagSet.Int("limit", 1, "")
		flagSet.Bool("no-publish", false, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"typo", []string{"--ownr", "acme"}, "--owner"},
		{"with_value", []string{"--limt=3"}, "--limit"},
		{"after_known", []string{"--owner", "acme", "--rpeo", "widget"}, "--repo"},
		{"nothing_close", []string{"--completely-different"}, ""},
		{"after_terminator", []string{"--", "--ownr"}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, newFlagSet()); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
