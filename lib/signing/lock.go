// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/debrepo/lib/clock"
)

const lockPollInterval = 50 * time.Millisecond

// lockDir takes an exclusive flock on path, polling until it is
// acquired or ctx is done. The returned function releases the lock.
func lockDir(ctx context.Context, c clock.Clock, path string) (func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			file.Close()
			return nil, err
		}
		if err := clock.Sleep(ctx, c, lockPollInterval); err != nil {
			file.Close()
			return nil, err
		}
	}
	return func() {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
	}, nil
}
