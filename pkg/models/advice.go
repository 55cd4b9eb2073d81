package models

// PriorityDetail is the object form of an opportunity's implementation
// priority. Older backend responses carry a bare string instead.
type PriorityDetail struct {
	Level          string `json:"level"`
	Reasoning      string `json:"reasoning"`
	EffortEstimate string `json:"effort_estimate"`
}

// OpportunityItem is the canonical shape for one immediate opportunity in a
// strategic-advice response.
type OpportunityItem struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	ImpactScore      float64  `json:"impact_score"`
	Difficulty       float64  `json:"difficulty"`
	EstimatedTraffic float64  `json:"estimated_traffic"`
	EstimatedValue   string   `json:"estimated_value"`
	Timeline         string   `json:"timeline"`
	ActionSteps      []string `json:"action_steps"`
}

// RoadmapPhase is one phase of the implementation roadmap.
type RoadmapPhase struct {
	Phase            string   `json:"phase"`
	Duration         string   `json:"duration"`
	Priority         string   `json:"priority"`
	Tasks            []string `json:"tasks"`
	Dependencies     []string `json:"dependencies"`
	ExpectedOutcomes []string `json:"expected_outcomes"`
}

// ContentImpact holds the estimated impact figures for a content cluster.
type ContentImpact struct {
	TrafficIncrease float64 `json:"traffic_increase"`
}

// ContentCluster is the canonical shape of one recommended content cluster.
type ContentCluster struct {
	ClusterName     string        `json:"cluster_name"`
	Keywords        []any         `json:"keywords"`
	Priority        string        `json:"priority"`
	ContentType     string        `json:"content_type"`
	EstimatedImpact ContentImpact `json:"estimated_impact"`
}
