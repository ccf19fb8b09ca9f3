package orchestrator

import "github.com/sells-group/lead-research/internal/model"

// mergeUpdate builds the lead update for a freshly persisted packet.
//
// Discovered contact fields (phone, title, LinkedIn URL, website) only fill
// empty lead fields; a value a user or earlier process set is never
// overwritten. Fit score and priority are derived metrics and are rewritten
// on every run.
func mergeUpdate(lead *model.Lead, packet *model.ResearchPacket) model.LeadUpdate {
	var update model.LeadUpdate

	if lead.Phone == "" && packet.DiscoveredPhone != "" {
		update.Phone = &packet.DiscoveredPhone
	}
	if lead.Title == "" && packet.DiscoveredTitle != "" {
		update.Title = &packet.DiscoveredTitle
	}
	if lead.LinkedInURL == "" && packet.DiscoveredLinkedInURL != "" {
		update.LinkedInURL = &packet.DiscoveredLinkedInURL
	}
	if lead.Website == "" && packet.DiscoveredWebsite != "" {
		update.Website = &packet.DiscoveredWebsite
	}

	update.FitScore = &packet.FitScore
	if packet.Priority != "" {
		update.Priority = &packet.Priority
	}

	return update
}
