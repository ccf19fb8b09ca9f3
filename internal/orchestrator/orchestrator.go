// Package orchestrator mediates between callers and the research provider.
// It deduplicates concurrent work per lead, bounds provider concurrency
// process-wide, decides whether to reuse or refresh stored research, and
// merges discovered fields back onto the lead record.
package orchestrator

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-research/internal/model"
	"github.com/sells-group/lead-research/internal/notify"
	"github.com/sells-group/lead-research/internal/provider"
	"github.com/sells-group/lead-research/internal/store"
)

// ErrNotResearchable is returned for leads with neither a company name nor
// a website. It is terminal: retrying without more data cannot succeed.
var ErrNotResearchable = eris.New("orchestrator: lead has no company name or website")

// Status tags how a research request resolved.
type Status string

const (
	// StatusResearched means a fresh provider run produced this result.
	StatusResearched Status = "researched"

	// StatusReused means a stored packet satisfied the request without a
	// provider call.
	StatusReused Status = "reused"

	// StatusInFlight means another run for the same lead was already
	// active; the caller got whatever is currently stored and should
	// check back later. This holds even when a refresh was forced.
	StatusInFlight Status = "in_flight"
)

// Result is the outcome of a single-lead research request.
type Result struct {
	Lead   *model.Lead
	Packet *model.ResearchPacket // may be nil on the in-flight path
	Status Status
	Reused bool
}

// Options adjusts a single-lead research request.
type Options struct {
	// Force bypasses the reuse of a stored non-degraded packet.
	Force bool
}

// Orchestrator runs the lead-research flow against an injected store,
// provider, coordinator, and notifier.
type Orchestrator struct {
	store    store.Store
	provider provider.Provider
	coord    *Coordinator
	notifier notify.Notifier
}

// New creates an orchestrator. The coordinator is shared process-wide so the
// in-flight set and the concurrency gate cover every caller.
func New(st store.Store, prov provider.Provider, coord *Coordinator, notifier notify.Notifier) *Orchestrator {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Orchestrator{
		store:    st,
		provider: prov,
		coord:    coord,
		notifier: notifier,
	}
}

// ProcessLead researches one lead by ID.
//
// A concurrent run for the same lead short-circuits: the caller gets the
// stored packet (possibly none) and StatusInFlight. A stored non-degraded
// packet is reused unless opts.Force. Otherwise the provider is invoked
// through the concurrency gate, the packet is persisted, and discovered
// fields merge onto the lead. A degraded provider result never replaces a
// stored non-degraded packet; the stored one is returned instead.
func (o *Orchestrator) ProcessLead(ctx context.Context, leadID string, opts Options) (*Result, error) {
	lead, err := o.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, eris.Wrapf(err, "orchestrator: load lead %s", leadID)
	}

	// Check-and-set must be atomic with respect to other calls for the
	// same lead; the marker is cleared on every exit path below.
	if !o.coord.Begin(leadID) {
		packet, err := o.store.GetPacketByLead(ctx, leadID)
		if err != nil {
			return nil, eris.Wrapf(err, "orchestrator: load packet for in-flight lead %s", leadID)
		}
		zap.L().Debug("orchestrator: research already in flight",
			zap.String("lead_id", leadID),
		)
		return &Result{Lead: lead, Packet: packet, Status: StatusInFlight, Reused: true}, nil
	}
	defer o.coord.End(leadID)

	if !lead.Researchable() {
		return nil, ErrNotResearchable
	}

	existing, err := o.store.GetPacketByLead(ctx, leadID)
	if err != nil {
		return nil, eris.Wrapf(err, "orchestrator: load packet for lead %s", leadID)
	}

	if existing != nil && !existing.Degraded && !opts.Force {
		return &Result{Lead: lead, Packet: existing, Status: StatusReused, Reused: true}, nil
	}

	if err := o.coord.Acquire(ctx); err != nil {
		return nil, eris.Wrapf(err, "orchestrator: acquire research slot for lead %s", leadID)
	}
	defer o.coord.Release()

	packet, outcome, err := o.provider.Research(ctx, *lead)
	if err != nil {
		zap.L().Error("orchestrator: provider research failed",
			zap.String("lead_id", leadID),
			zap.String("company", lead.Company),
			zap.Error(err),
		)
		return nil, eris.Wrapf(err, "orchestrator: research lead %s", leadID)
	}

	// Never regress from good data to a degraded fallback.
	if outcome == provider.OutcomeDegraded && existing != nil && !existing.Degraded {
		zap.L().Warn("orchestrator: discarding degraded result, keeping existing packet",
			zap.String("lead_id", leadID),
			zap.String("packet_id", existing.ID),
		)
		return &Result{Lead: lead, Packet: existing, Status: StatusReused, Reused: true}, nil
	}

	var saved *model.ResearchPacket
	if existing == nil {
		saved, err = o.store.CreatePacket(ctx, *packet)
	} else {
		saved, err = o.store.UpdatePacket(ctx, existing.ID, model.UpdateFrom(packet))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "orchestrator: persist packet for lead %s", leadID)
	}

	if update := mergeUpdate(lead, saved); !update.Empty() {
		lead, err = o.store.UpdateLead(ctx, leadID, update)
		if err != nil {
			return nil, eris.Wrapf(err, "orchestrator: merge fields onto lead %s", leadID)
		}
	}

	zap.L().Info("orchestrator: research complete",
		zap.String("lead_id", leadID),
		zap.String("packet_id", saved.ID),
		zap.Int("fit_score", saved.FitScore),
		zap.String("priority", string(saved.Priority)),
		zap.Bool("degraded", saved.Degraded),
	)

	o.notifier.ResearchReady(ctx, leadID, saved.ID)

	return &Result{Lead: lead, Packet: saved, Status: StatusResearched}, nil
}
