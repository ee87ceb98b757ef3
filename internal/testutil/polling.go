// Package testutil holds helpers shared by the package tests: fixture trees,
// fake toolchain scripts, platform skips and polling.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// Poll repeatedly checks condition until it holds, the timeout expires or
// ctx is done.
func Poll(ctx context.Context, condition func() bool, timeout time.Duration, interval time.Duration) error {
	start := time.Now()
	for {
		if condition() {
			return nil
		}
		if time.Since(start) >= timeout {
			return fmt.Errorf("timeout waiting for condition (threshold: %v)", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// WaitForState waits until getter returns a value satisfying predicate.
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout time.Duration, interval time.Duration) (T, error) {
	var state T
	err := Poll(ctx, func() bool {
		state = getter()
		return predicate(state)
	}, timeout, interval)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("waiting for %T: %w", zero, err)
	}
	return state, nil
}
