// Package provider defines the research provider abstraction and its
// Claude-backed implementation. A provider takes a lead and produces a
// research packet; the outcome tag tells callers whether the packet is a
// full structured result or a degraded fallback.
package provider

import (
	"context"

	"github.com/sells-group/lead-research/internal/model"
)

// Outcome classifies a provider result.
type Outcome int

const (
	// OutcomeOK means the provider returned a fully structured packet.
	OutcomeOK Outcome = iota

	// OutcomeDegraded means the provider returned usable text but not a
	// structured packet; the packet holds a best-effort fallback.
	OutcomeDegraded
)

func (o Outcome) String() string {
	if o == OutcomeDegraded {
		return "degraded"
	}
	return "ok"
}

// Provider produces a research packet for a lead.
type Provider interface {
	Research(ctx context.Context, lead model.Lead) (*model.ResearchPacket, Outcome, error)
}
