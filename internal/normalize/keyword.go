package normalize

import (
	"strings"

	"github.com/sanjaynair/rankscope/pkg/models"
)

// clusterLabelLen is how many characters of a cluster id are used when
// synthesizing a human-readable cluster name.
const clusterLabelLen = 8

// Intent maps a backend intent value onto its canonical form. Matching is
// case-insensitive; unknown, empty, or non-string input falls back to
// informational. Never errors.
func Intent(v any) string {
	switch strings.ToLower(strings.TrimSpace(toString(v))) {
	case models.IntentLocal:
		return models.IntentLocal
	case models.IntentNavigational:
		return models.IntentNavigational
	case models.IntentCommercial:
		return models.IntentCommercial
	case models.IntentTransactional:
		return models.IntentTransactional
	default:
		return models.IntentInformational
	}
}

// Action maps a backend recommended-action value onto its canonical form.
// Input is lowercased and spaces become underscores, so "Leave As Is",
// "leave_as_is", and "leave-as-is" all map to leave. Unknown input falls
// back to create.
func Action(v any) string {
	s := strings.ToLower(strings.TrimSpace(toString(v)))
	s = strings.ReplaceAll(s, " ", "_")
	switch s {
	case "leave_as_is", "leave-as-is", "leave":
		return models.ActionLeave
	case models.ActionOptimize:
		return models.ActionOptimize
	case models.ActionUpgrade:
		return models.ActionUpgrade
	case models.ActionUpdate:
		return models.ActionUpdate
	case models.ActionCreate:
		return models.ActionCreate
	default:
		return models.ActionCreate
	}
}

// Opportunity maps a backend opportunity category onto its canonical type.
// Input is lowercased with spaces and hyphens folded to underscores, so
// "Low-Hanging Fruit" and "low_hanging_fruit" both map to low_hanging.
// Unknown input falls back to untapped.
func Opportunity(v any) string {
	s := strings.ToLower(strings.TrimSpace(toString(v)))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	switch s {
	case "low_hanging_fruit", "low_hanging":
		return models.OpportunityLowHanging
	case models.OpportunityExisting:
		return models.OpportunityExisting
	case "clustering_opportunity", "clustering":
		return models.OpportunityClustering
	case models.OpportunitySuccess:
		return models.OpportunitySuccess
	case models.OpportunityUntapped:
		return models.OpportunityUntapped
	default:
		return models.OpportunityUntapped
	}
}

// Keyword normalizes one keyword record in place-of: it returns a new map
// with numeric metrics coerced (missing values become 0), position left
// null when the keyword is not ranking, identity and score fields filled
// from their variant spellings, enum fields mapped to canonical values,
// and a cluster name synthesized from the cluster id when absent.
func Keyword(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}

	out := make(map[string]any, len(raw)+4)
	for k, v := range raw {
		out[k] = v
	}

	out["volume"] = toNumber(raw["volume"])
	out["kd"] = toNumber(raw["kd"])
	out["cpc"] = toNumber(raw["cpc"])
	out["relevance_score"] = toNumber(raw["relevance_score"])

	if defined(raw, "position") {
		out["position"] = toNumber(raw["position"])
	} else {
		out["position"] = nil
	}

	if !defined(raw, "url") {
		out["url"] = nil
	}

	if !defined(out, "keyword_id") && defined(raw, "id") {
		out["keyword_id"] = raw["id"]
	}
	if defined(raw, "sop_score") {
		out["sop_score"] = toNumber(raw["sop_score"])
	} else {
		out["sop_score"] = toNumber(raw["total_points"])
	}

	if !defined(out, "cluster_name") {
		if id := toString(raw["cluster_id"]); id != "" {
			out["cluster_name"] = clusterLabel(id)
		} else {
			out["cluster_name"] = nil
		}
	}

	out["intent"] = Intent(raw["intent"])
	out["action"] = Action(raw["action"])
	out["opportunity_type"] = Opportunity(firstDefined(raw, "opportunity_category", "opportunity_type"))
	delete(out, "opportunity_category")

	return out
}

// clusterLabel builds a display label from the leading characters of a
// cluster id.
func clusterLabel(id string) string {
	if len(id) > clusterLabelLen {
		id = id[:clusterLabelLen]
	}
	return "Cluster " + id
}

// firstDefined returns the first non-null value among keys, or nil.
func firstDefined(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if defined(m, k) {
			return m[k]
		}
	}
	return nil
}
