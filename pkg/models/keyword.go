package models

// Canonical search-intent values. The backend emits several spellings and
// casings; the normalizer maps all of them onto these.
const (
	IntentInformational = "informational"
	IntentNavigational  = "navigational"
	IntentCommercial    = "commercial"
	IntentTransactional = "transactional"
	IntentLocal         = "local"
)

// Canonical recommended-action values for a keyword.
const (
	ActionLeave    = "leave"
	ActionCreate   = "create"
	ActionOptimize = "optimize"
	ActionUpgrade  = "upgrade"
	ActionUpdate   = "update"
)

// Canonical opportunity types.
const (
	OpportunityLowHanging = "low_hanging"
	OpportunityExisting   = "existing"
	OpportunityClustering = "clustering"
	OpportunityUntapped   = "untapped"
	OpportunitySuccess    = "success"
)

// Pagination is the canonical pagination block the dashboard consumes.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
