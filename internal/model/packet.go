package model

import "time"

// Verification distinguishes AI-generated packets from ones a human has
// reviewed and signed off on.
type Verification string

const (
	VerificationAIGenerated   Verification = "ai_generated"
	VerificationHumanVerified Verification = "human_verified"
)

// ResearchPacket is the structured output of an AI research run for a lead.
// At most one packet per lead is kept current; a new run updates it in place.
type ResearchPacket struct {
	ID     string `json:"id"`
	LeadID string `json:"lead_id"`

	CompanyIntel       string   `json:"company_intel,omitempty"`
	ContactIntel       string   `json:"contact_intel,omitempty"`
	PainSignals        string   `json:"pain_signals,omitempty"`
	FitAnalysis        string   `json:"fit_analysis,omitempty"`
	TalkTrack          string   `json:"talk_track,omitempty"`
	DiscoveryQuestions []string `json:"discovery_questions,omitempty"`
	ObjectionHandles   []string `json:"objection_handles,omitempty"`

	FitScore int      `json:"fit_score"` // 0-100
	Priority Priority `json:"priority,omitempty"`

	// Discovered contact facts, merged onto the lead only where the lead's
	// own field is still empty.
	DiscoveredPhone       string `json:"discovered_phone,omitempty"`
	DiscoveredTitle       string `json:"discovered_title,omitempty"`
	DiscoveredLinkedInURL string `json:"discovered_linkedin_url,omitempty"`
	DiscoveredWebsite     string `json:"discovered_website,omitempty"`

	// Sources is a human-readable provenance note. Degraded is the
	// authoritative flag for fallback-path results; nothing parses Sources.
	Sources  string `json:"sources,omitempty"`
	Degraded bool   `json:"degraded"`

	Verification Verification `json:"verification"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// PacketUpdate is a partial update applied to a research packet.
type PacketUpdate struct {
	CompanyIntel       *string   `json:"company_intel,omitempty"`
	ContactIntel       *string   `json:"contact_intel,omitempty"`
	PainSignals        *string   `json:"pain_signals,omitempty"`
	FitAnalysis        *string   `json:"fit_analysis,omitempty"`
	TalkTrack          *string   `json:"talk_track,omitempty"`
	DiscoveryQuestions *[]string `json:"discovery_questions,omitempty"`
	ObjectionHandles   *[]string `json:"objection_handles,omitempty"`
	FitScore           *int      `json:"fit_score,omitempty"`
	Priority           *Priority `json:"priority,omitempty"`

	DiscoveredPhone       *string `json:"discovered_phone,omitempty"`
	DiscoveredTitle       *string `json:"discovered_title,omitempty"`
	DiscoveredLinkedInURL *string `json:"discovered_linkedin_url,omitempty"`
	DiscoveredWebsite     *string `json:"discovered_website,omitempty"`

	Sources      *string       `json:"sources,omitempty"`
	Degraded     *bool         `json:"degraded,omitempty"`
	Verification *Verification `json:"verification,omitempty"`
}

// UpdateFrom builds a full-overwrite PacketUpdate from a freshly produced
// packet, preserving the existing packet's identity.
func UpdateFrom(p *ResearchPacket) PacketUpdate {
	return PacketUpdate{
		CompanyIntel:          &p.CompanyIntel,
		ContactIntel:          &p.ContactIntel,
		PainSignals:           &p.PainSignals,
		FitAnalysis:           &p.FitAnalysis,
		TalkTrack:             &p.TalkTrack,
		DiscoveryQuestions:    &p.DiscoveryQuestions,
		ObjectionHandles:      &p.ObjectionHandles,
		FitScore:              &p.FitScore,
		Priority:              &p.Priority,
		DiscoveredPhone:       &p.DiscoveredPhone,
		DiscoveredTitle:       &p.DiscoveredTitle,
		DiscoveredLinkedInURL: &p.DiscoveredLinkedInURL,
		DiscoveredWebsite:     &p.DiscoveredWebsite,
		Sources:               &p.Sources,
		Degraded:              &p.Degraded,
		Verification:          &p.Verification,
	}
}
