// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/bureau-foundation/debrepo/lib/process"
)

func main() {
	ctx, stop := process.SignalContext()
	err := rootCommand(os.Stdout).Execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		process.Fatal(err)
	}
}
