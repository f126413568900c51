package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/clinicore/clinicore/pkg/logger"
)

// AbortController manages task cancellation against a two-stage deadline.
//
// The soft deadline fires first and gives the worker a window to persist a
// partial terminal state; the hard deadline cancels the context outright.
// Explicit Abort() covers external cancellation.
type AbortController struct {
	ctx      context.Context
	cancel   context.CancelFunc
	softCtx  context.Context
	softStop context.CancelFunc
	mu       sync.Mutex
	down     bool
	taskID   string
}

// NewAbortController creates a controller for one task. A non-positive
// deadline disables that stage.
func NewAbortController(parent context.Context, taskID string, soft, hard time.Duration) *AbortController {
	var ctx context.Context
	var cancel context.CancelFunc
	if hard > 0 {
		ctx, cancel = context.WithTimeout(parent, hard)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	var softCtx context.Context
	var softStop context.CancelFunc
	if soft > 0 {
		softCtx, softStop = context.WithTimeout(ctx, soft)
	} else {
		softCtx, softStop = context.WithCancel(ctx)
	}

	return &AbortController{
		ctx:      ctx,
		cancel:   cancel,
		softCtx:  softCtx,
		softStop: softStop,
		taskID:   taskID,
	}
}

// Context returns the hard-deadline context. Use it for all downstream
// operations.
func (ac *AbortController) Context() context.Context {
	return ac.ctx
}

// SoftDone is closed when the soft deadline passes (or the task is aborted).
// The worker winds down gracefully when it fires.
func (ac *AbortController) SoftDone() <-chan struct{} {
	return ac.softCtx.Done()
}

// SoftExpired reports whether the soft deadline has passed.
func (ac *AbortController) SoftExpired() bool {
	select {
	case <-ac.softCtx.Done():
		return true
	default:
		return false
	}
}

// Abort cancels the task. Safe to call multiple times.
func (ac *AbortController) Abort() {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.down {
		return
	}
	ac.down = true
	ac.cancel()
	logger.Info("[AbortController] Abort task %s", ac.taskID)
}

// IsAborted returns true if the task is aborted or hard-expired.
func (ac *AbortController) IsAborted() bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.down {
		return true
	}
	select {
	case <-ac.ctx.Done():
		return true
	default:
		return false
	}
}

// CleanUp releases both deadline timers.
func (ac *AbortController) CleanUp() {
	ac.softStop()
	ac.cancel()
}
