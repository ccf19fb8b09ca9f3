package model

import "time"

// LeadStatus represents a lead's position in the sales pipeline.
type LeadStatus string

const (
	LeadStatusNew         LeadStatus = "new"
	LeadStatusResearching LeadStatus = "researching"
	LeadStatusContacted   LeadStatus = "contacted"
	LeadStatusEngaged     LeadStatus = "engaged"
	LeadStatusQualified   LeadStatus = "qualified"
	LeadStatusHandedOff   LeadStatus = "handed_off"
	LeadStatusConverted   LeadStatus = "converted"
	LeadStatusLost        LeadStatus = "lost"
)

// Priority is the outreach priority label derived from research.
type Priority string

const (
	PriorityHot  Priority = "hot"
	PriorityWarm Priority = "warm"
	PriorityCold Priority = "cold"
)

// ValidPriority reports whether p is one of the known priority labels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityHot, PriorityWarm, PriorityCold:
		return true
	}
	return false
}

// Lead represents a sales prospect: a company plus a contact.
type Lead struct {
	ID string `json:"id"`

	// Company attributes.
	Company  string `json:"company,omitempty"`
	Website  string `json:"website,omitempty"`
	Industry string `json:"industry,omitempty"`
	Size     string `json:"size,omitempty"`

	// Contact attributes.
	ContactName string `json:"contact_name,omitempty"`
	Title       string `json:"title,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`

	// Derived metrics, recomputed on every successful research run.
	FitScore *int     `json:"fit_score,omitempty"` // 0-100
	Priority Priority `json:"priority,omitempty"`

	Status    LeadStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Researchable reports whether the lead carries enough company data for a
// research run. A lead with neither a company name nor a website has
// nothing to research.
func (l Lead) Researchable() bool {
	return l.Company != "" || l.Website != ""
}

// LeadUpdate is a partial update applied to a lead. Nil fields are left
// untouched.
type LeadUpdate struct {
	Company     *string     `json:"company,omitempty"`
	Website     *string     `json:"website,omitempty"`
	Industry    *string     `json:"industry,omitempty"`
	Size        *string     `json:"size,omitempty"`
	ContactName *string     `json:"contact_name,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Phone       *string     `json:"phone,omitempty"`
	LinkedInURL *string     `json:"linkedin_url,omitempty"`
	FitScore    *int        `json:"fit_score,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	Status      *LeadStatus `json:"status,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u LeadUpdate) Empty() bool {
	return u.Company == nil && u.Website == nil && u.Industry == nil &&
		u.Size == nil && u.ContactName == nil && u.Title == nil &&
		u.Phone == nil && u.LinkedInURL == nil && u.FitScore == nil &&
		u.Priority == nil && u.Status == nil
}
