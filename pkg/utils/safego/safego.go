// Package safego launches goroutines that cannot take the process down.
package safego

import (
	"context"
	"runtime/debug"

	"github.com/clinicore/clinicore/pkg/logger"
)

// Go runs fn in a new goroutine and converts panics into error logs.
// Worker bodies must go through here: a panicking chat turn is a failed
// task, never a crashed daemon.
func Go(ctx context.Context, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("goroutine panic recovered: %v\n%s", r, debug.Stack())
			}
		}()
		select {
		case <-ctx.Done():
			return
		default:
		}
		fn()
	}()
}
