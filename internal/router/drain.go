package router

import (
	"context"
	"time"
)

// RunDrainLoop wakes every cfg.DrainTick, pulls up to cfg.DrainBatch due
// outbox entries ordered by (target_fp, next_try_at), and retries steps
// 3-5 of spec §4.5 for each. Entries are processed in the order returned,
// which keeps deliveries to a single target serial within one scan (spec
// §5: "must not reorder the queue for a single recipient").
func (r *Router) RunDrainLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.DrainTick)
	defer ticker.Stop()

	r.drainOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drainOnce(ctx)
		}
	}
}

func (r *Router) drainOnce(ctx context.Context) {
	due := r.store.ListOutboxDue(r.nowMillis(), r.cfg.DrainBatch)
	for _, entry := range due {
		peer, ok := r.store.GetPeer(entry.TargetFP)
		if !ok {
			r.reschedule(entry, "target peer no longer known")
			continue
		}
		resolved, err := toResolved(peer)
		if err != nil {
			r.reschedule(entry, err.Error())
			continue
		}
		r.attemptDelivery(ctx, entry, resolved)
	}
	r.metrics.outboxGauge.Set(float64(r.store.OutboxDepth()))
}
