package normalize

import (
	"fmt"
	"strings"

	"github.com/sanjaynair/rankscope/pkg/models"
)

const (
	impactMultiplierScale = 20
	defaultImpactScore    = 50
	defaultDifficulty     = 50
	timelineShort         = "0-1 month"
	timelineLong          = "1-3 months"
	priorityReasoning     = "Generated from AI analysis"
	defaultEffort         = "Medium"
	contentType           = "Comprehensive Guide"
)

// StrategicAdvice normalizes a strategic-advice body. Two historical
// response generations exist: a legacy object-shaped one and the current
// AI-enhanced keyword-shaped one; both come out in the same canonical
// shape. Missing sub-objects become empty collections, never nil.
func StrategicAdvice(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	out["immediate_opportunities"] = opportunities(asSlice(m["immediate_opportunities"]))
	out["implementation_roadmap"] = roadmap(m["implementation_roadmap"])
	out["content_strategy"] = contentStrategy(asMap(m["content_strategy"]))
	return out
}

// opportunities normalizes the immediate_opportunities list item by item.
func opportunities(raw []any) []any {
	out := make([]any, 0, len(raw))
	for i, item := range raw {
		opp := asMap(item)
		switch {
		case opp == nil:
			out = append(out, item)
		case defined(opp, "keyword") && defined(opp, "ai_recommendations"):
			out = append(out, aiOpportunity(opp, i))
		case defined(opp, "keyword"):
			out = append(out, legacyOpportunity(opp, i))
		default:
			// Already in the target shape.
			out = append(out, item)
		}
	}
	return out
}

// aiOpportunity passes an AI-enhanced opportunity through with a
// synthesized id, coercing implementation_priority from a bare string into
// its object form when needed.
func aiOpportunity(opp map[string]any, index int) map[string]any {
	out := make(map[string]any, len(opp)+1)
	for k, v := range opp {
		out[k] = v
	}
	out["id"] = fmt.Sprintf("ai_opp_%d", index)
	if level, ok := opp["implementation_priority"].(string); ok {
		out["implementation_priority"] = models.PriorityDetail{
			Level:          level,
			Reasoning:      priorityReasoning,
			EffortEstimate: defaultEffort,
		}
	}
	return out
}

// legacyOpportunity synthesizes a full OpportunityItem from a legacy
// keyword-shaped opportunity:
//   - impact score from the traffic-multiplier string, scaled by 20
//   - difficulty inverted against the current state's difficulty
//   - estimated value at twice the expected traffic, as a currency string
//   - timeline by priority level
//   - up to three non-empty descriptive action steps
func legacyOpportunity(opp map[string]any, index int) models.OpportunityItem {
	keyword := toString(opp["keyword"])
	current := asMap(opp["current_state"])
	metrics := asMap(opp["success_metrics"])

	impact := float64(defaultImpactScore)
	mult := toString(metrics["traffic_multiplier"])
	if mult == "" {
		mult = toString(opp["traffic_multiplier"])
	}
	if f, ok := digitsIn(mult); ok {
		impact = f * impactMultiplierScale
	}

	difficulty := float64(defaultDifficulty)
	if defined(current, "difficulty") {
		difficulty = 100 - toNumber(current["difficulty"])
	}

	traffic := toNumber(metrics["expected_total_traffic"])

	timeline := timelineLong
	if strings.EqualFold(priorityLevel(opp), "high") {
		timeline = timelineShort
	}

	return models.OpportunityItem{
		ID:               fmt.Sprintf("legacy_opp_%d", index),
		Title:            keyword,
		ImpactScore:      impact,
		Difficulty:       difficulty,
		EstimatedTraffic: traffic,
		EstimatedValue:   fmt.Sprintf("$%.0f", traffic*2),
		Timeline:         timeline,
		ActionSteps:      actionSteps(opp, keyword),
	}
}

// priorityLevel digs the priority level out of whichever spot the legacy
// payload put it in: a bare priority string, a bare implementation_priority
// string, or the level field of its object form.
func priorityLevel(opp map[string]any) string {
	if s := toString(opp["priority"]); s != "" {
		return s
	}
	if s := toString(opp["implementation_priority"]); s != "" {
		return s
	}
	return toString(asMap(opp["implementation_priority"])["level"])
}

// actionSteps assembles up to three non-empty descriptive strings from the
// legacy payload, falling back to a generic step built from the keyword so
// the list is never empty.
func actionSteps(opp map[string]any, keyword string) []string {
	steps := make([]string, 0, 3)
	for _, key := range []string{"recommended_action", "content_suggestion", "next_steps"} {
		if s := strings.TrimSpace(toString(opp[key])); s != "" {
			steps = append(steps, s)
		}
		if len(steps) == 3 {
			return steps
		}
	}
	if len(steps) == 0 {
		steps = append(steps, fmt.Sprintf("Create content targeting %q", keyword))
	}
	return steps
}

// roadmap normalizes the implementation roadmap. Already-array input passes
// through; the legacy object keyed by week_1_2 / month_2_onwards.schedule
// becomes a uniform phase array: the first phase is critical, the first
// monthly phase high and the rest medium, each monthly phase after the
// first depending on the one before it.
func roadmap(v any) any {
	if arr := asSlice(v); arr != nil {
		return arr
	}
	m := asMap(v)
	phases := make([]models.RoadmapPhase, 0, 4)
	if m == nil {
		return phases
	}

	if wk := m["week_1_2"]; wk != nil {
		phases = append(phases, models.RoadmapPhase{
			Phase:            "Week 1-2",
			Duration:         "2 weeks",
			Priority:         "critical",
			Tasks:            taskList(wk),
			Dependencies:     []string{},
			ExpectedOutcomes: outcomeList(wk),
		})
	}

	schedule := asSlice(asMap(m["month_2_onwards"])["schedule"])
	var prev string
	for i, entry := range schedule {
		em := asMap(entry)
		name := toString(em["month"])
		if name == "" {
			name = fmt.Sprintf("Month %d", i+2)
		}
		priority := "medium"
		if i == 0 {
			priority = "high"
		}
		deps := []string{}
		if i > 0 {
			deps = []string{prev}
		}
		phases = append(phases, models.RoadmapPhase{
			Phase:            name,
			Duration:         "1 month",
			Priority:         priority,
			Tasks:            taskList(entry),
			Dependencies:     deps,
			ExpectedOutcomes: outcomeList(entry),
		})
		prev = name
	}

	return phases
}

// taskList extracts task strings from a legacy roadmap entry, which may be
// a bare array of strings or an object with a tasks (or focus) field.
func taskList(v any) []string {
	if arr := asSlice(v); arr != nil {
		return stringItems(arr)
	}
	m := asMap(v)
	if tasks := asSlice(m["tasks"]); tasks != nil {
		return stringItems(tasks)
	}
	if focus := strings.TrimSpace(toString(m["focus"])); focus != "" {
		return []string{focus}
	}
	return []string{}
}

func outcomeList(v any) []string {
	return stringItems(asSlice(asMap(v)["expected_outcomes"]))
}

func stringItems(arr []any) []string {
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s := strings.TrimSpace(toString(v)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// contentStrategy rewrites content_strategy.priority_clusters into the
// canonical content_clusters list, each pinned to high priority and a
// comprehensive-guide content type, with traffic increase sourced from the
// cluster's strategic priority score.
func contentStrategy(cs map[string]any) map[string]any {
	out := make(map[string]any, len(cs)+1)
	for k, v := range cs {
		out[k] = v
	}
	delete(out, "priority_clusters")

	raw := asSlice(cs["priority_clusters"])
	clusters := make([]models.ContentCluster, 0, len(raw))
	for _, item := range raw {
		pc := asMap(item)
		name := toString(pc["cluster_name"])
		if name == "" {
			name = toString(pc["name"])
		}
		keywords := asSlice(pc["keywords"])
		if keywords == nil {
			keywords = []any{}
		}
		clusters = append(clusters, models.ContentCluster{
			ClusterName: name,
			Keywords:    keywords,
			Priority:    "high",
			ContentType: contentType,
			EstimatedImpact: models.ContentImpact{
				TrafficIncrease: toNumber(asMap(pc["strategic_metrics"])["priority_score"]),
			},
		})
	}
	out["content_clusters"] = clusters
	return out
}
