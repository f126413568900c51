package runtime

import (
	"context"
	"time"

	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/entity"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/domain/repo"
	"github.com/clinicore/clinicore/internal/gateway/service/chat/pkg"
	"github.com/clinicore/clinicore/pkg/logger"
	"github.com/clinicore/clinicore/pkg/utils/safego"
)

// Reconciler sweeps for messages abandoned mid-stream. A worker killed at
// the hard deadline (or a crashed process) leaves its message in streaming
// with a stale last-update watermark; the sweep marks such messages
// interrupted so readers stop waiting on them.
type Reconciler struct {
	msgRepo    repo.MessageRepository
	relay      *Relay
	staleAfter time.Duration
	interval   time.Duration
}

// NewReconciler creates a Reconciler. Non-positive durations default to a
// 2 minute staleness threshold swept every 30 seconds.
func NewReconciler(msgRepo repo.MessageRepository, relay *Relay, staleAfter, interval time.Duration) *Reconciler {
	if staleAfter <= 0 {
		staleAfter = 2 * time.Minute
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{
		msgRepo:    msgRepo,
		relay:      relay,
		staleAfter: staleAfter,
		interval:   interval,
	}
}

// Start runs the periodic sweep until the context is canceled.
func (r *Reconciler) Start(ctx context.Context) {
	safego.Go(ctx, func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.Pass(ctx); err != nil {
					logger.WarnX(pkg.ModuleName, "[Reconciler] sweep failed: %v", err)
				}
			}
		}
	})
}

// Pass performs one sweep and returns the first error encountered while
// listing. Per-message failures are logged and skipped.
func (r *Reconciler) Pass(ctx context.Context) error {
	cutoff := time.Now().Add(-r.staleAfter)
	stale, err := r.msgRepo.ListStaleStreaming(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, msg := range stale {
		msg.Status = entity.MessageStatusInterrupted
		msg.Touch()
		if err := r.msgRepo.Update(ctx, msg); err != nil {
			logger.WarnX(pkg.ModuleName, "[Reconciler] failed to interrupt message %s: %v", msg.ID, err)
			continue
		}
		logger.InfoX(pkg.ModuleName, "[Reconciler] message %s marked interrupted (task %s)", msg.ID, msg.TaskID)
		r.relay.Publish(msg.ID, &entity.StreamEvent{
			Type:   entity.EventDone,
			Status: entity.MessageStatusInterrupted,
		})
		r.relay.CloseTopic(msg.ID)
	}
	return nil
}
