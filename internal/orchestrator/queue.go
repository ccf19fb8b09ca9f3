package orchestrator

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchStats summarizes a completed batch run.
type BatchStats struct {
	Total      int `json:"total"`
	Researched int `json:"researched"`
	Reused     int `json:"reused"`
	InFlight   int `json:"in_flight"`
	Failed     int `json:"failed"`
}

// BatchHandle is a joinable handle to a running batch. Callers that fired
// the batch from a request path may discard it; tests and CLI callers can
// Wait for the final stats.
type BatchHandle struct {
	g *errgroup.Group

	total      int
	researched atomic.Int64
	reused     atomic.Int64
	inFlight   atomic.Int64
	failed     atomic.Int64
}

// Wait blocks until every lead in the batch has finished and returns the
// aggregate stats. Safe to call more than once.
func (h *BatchHandle) Wait() BatchStats {
	_ = h.g.Wait()
	return BatchStats{
		Total:      h.total,
		Researched: int(h.researched.Load()),
		Reused:     int(h.reused.Load()),
		InFlight:   int(h.inFlight.Load()),
		Failed:     int(h.failed.Load()),
	}
}

// ProcessQueue fans out research over a set of lead IDs. Every lead runs the
// single-lead path independently; one lead's failure neither cancels nor
// blocks the others. The shared coordinator gate bounds actual provider
// concurrency across this batch and everything else in the process.
//
// The call returns as soon as the work is scheduled. The returned handle may
// be awaited or discarded; results are visible through the store and the
// notifier either way.
func (o *Orchestrator) ProcessQueue(ctx context.Context, leadIDs []string, opts Options) *BatchHandle {
	h := &BatchHandle{total: len(leadIDs)}
	g, gCtx := errgroup.WithContext(ctx)
	h.g = g

	zap.L().Info("orchestrator: batch research started",
		zap.Int("leads", len(leadIDs)),
		zap.Bool("force", opts.Force),
	)

	for _, id := range leadIDs {
		g.Go(func() error {
			result, err := o.ProcessLead(gCtx, id, opts)
			if err != nil {
				h.failed.Add(1)
				zap.L().Warn("orchestrator: batch lead failed",
					zap.String("lead_id", id),
					zap.Error(err),
				)
				return nil // don't abort the batch on individual failure
			}
			switch result.Status {
			case StatusResearched:
				h.researched.Add(1)
			case StatusInFlight:
				h.inFlight.Add(1)
			default:
				h.reused.Add(1)
			}
			return nil
		})
	}

	go func() {
		stats := h.Wait()
		zap.L().Info("orchestrator: batch research finished",
			zap.Int("total", stats.Total),
			zap.Int("researched", stats.Researched),
			zap.Int("reused", stats.Reused),
			zap.Int("in_flight", stats.InFlight),
			zap.Int("failed", stats.Failed),
		)
	}()

	return h
}
