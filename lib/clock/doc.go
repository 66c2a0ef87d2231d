// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the injectable time source used by the repository
// builder and publisher.
//
// Release manifests carry a Date field and the publisher sleeps
// between upload retries. Both read time through a Clock so that tests
// can pin the manifest date and step through retry backoff without
// waiting on the wall clock:
//
//	c := clock.Fake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
//	go publisher.Publish(ctx, tree)
//	c.WaitForTimers(1)          // the first retry is sleeping
//	c.Advance(2 * time.Second)  // release it
package clock
