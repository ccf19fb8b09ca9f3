package store

import (
	"context"

	"github.com/sells-group/lead-research/internal/model"
)

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Status model.LeadStatus `json:"status,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for leads and research packets.
// All operations are atomic at the single-record level; the orchestrator
// never requires multi-record transactions.
//
// GetLeadByEmail and GetPacketByLead return (nil, nil) when no record
// exists; GetLead treats a missing lead as an error.
type Store interface {
	// Leads
	CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	GetLeadByEmail(ctx context.Context, email string) (*model.Lead, error)
	UpdateLead(ctx context.Context, id string, update model.LeadUpdate) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)

	// Research packets
	GetPacketByLead(ctx context.Context, leadID string) (*model.ResearchPacket, error)
	CreatePacket(ctx context.Context, packet model.ResearchPacket) (*model.ResearchPacket, error)
	UpdatePacket(ctx context.Context, id string, update model.PacketUpdate) (*model.ResearchPacket, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
