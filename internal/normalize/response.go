// Package normalize reshapes heterogeneous insights-backend JSON into the
// single canonical shape the dashboard is written against. All functions
// are pure and total: unknown input is never an error, it falls through to
// documented defaults or the generic key-casing transform.
package normalize

import "github.com/sanjaynair/rankscope/pkg/models"

// Defaults applied when a clusters-list response omits its paging fields.
const (
	defaultPage     = 1
	defaultPageSize = 50
)

// shape identifies which structural signature a response body matched.
type shape int

const (
	shapeConversational shape = iota
	shapeDataQuality
	shapeStrategicAdvice
	shapeClusterList
	shapeClusterDetail
	shapeKeywordList
	shapeSingleKeyword
	shapeArray
	shapeGeneric
)

// detect inspects field presence to decide which transform applies, in
// priority order. The first matching signature wins.
func detect(v any) shape {
	if _, ok := v.([]any); ok {
		return shapeArray
	}
	m := asMap(v)
	if m == nil {
		return shapeGeneric
	}
	if has(m, "conversation_id") || asMap(m["advice"]) != nil {
		return shapeConversational
	}
	if has(m, "has_sufficient_data") && has(m, "quality_score") {
		return shapeDataQuality
	}
	if has(m, "executive_summary") {
		return shapeStrategicAdvice
	}
	if asSlice(m["clusters"]) != nil {
		return shapeClusterList
	}
	if has(m, "cluster") && asSlice(m["keywords"]) != nil && has(m, "pagination") {
		return shapeClusterDetail
	}
	if asSlice(m["keywords"]) != nil && has(m, "pagination") && !has(m, "cluster") {
		return shapeKeywordList
	}
	if toString(m["keyword"]) != "" && defined(m, "volume") {
		return shapeSingleKeyword
	}
	return shapeGeneric
}

// Response normalizes a decoded JSON body from any dashboard endpoint.
func Response(v any) any {
	switch detect(v) {
	case shapeConversational, shapeDataQuality:
		return v
	case shapeStrategicAdvice:
		return StrategicAdvice(asMap(v))
	case shapeClusterList:
		return clusterList(asMap(v))
	case shapeClusterDetail:
		return clusterDetail(asMap(v))
	case shapeKeywordList:
		return keywordList(asMap(v))
	case shapeSingleKeyword:
		return Keyword(asMap(v))
	case shapeArray:
		return SnakeKeysToCamel(v)
	default:
		return SnakeKeysToCamel(v)
	}
}

// clusterList normalizes a clusters-list body: each cluster's metric fields
// are coerced to numbers and its nested keywords individually normalized,
// and the paging envelope is filled with defaults when the backend omitted
// it.
func clusterList(m map[string]any) map[string]any {
	raw := asSlice(m["clusters"])
	clusters := make([]any, 0, len(raw))
	for _, c := range raw {
		cm := asMap(c)
		if cm == nil {
			clusters = append(clusters, c)
			continue
		}
		out := make(map[string]any, len(cm))
		for k, v := range cm {
			out[k] = v
		}
		out["keyword_count"] = toNumber(cm["keyword_count"])
		out["total_volume"] = toNumber(cm["total_volume"])
		out["avg_difficulty"] = toNumber(cm["avg_difficulty"])
		out["avg_position"] = toNumber(cm["avg_position"])
		if kws := asSlice(cm["keywords"]); kws != nil {
			normalized := make([]any, len(kws))
			for i, kw := range kws {
				normalized[i] = Keyword(asMap(kw))
			}
			out["keywords"] = normalized
		}
		clusters = append(clusters, out)
	}

	totalCount := len(clusters)
	if defined(m, "total_count") {
		totalCount = int(toNumber(m["total_count"]))
	}
	page := defaultPage
	if defined(m, "page") {
		page = int(toNumber(m["page"]))
	}
	pageSize := defaultPageSize
	if defined(m, "page_size") {
		pageSize = int(toNumber(m["page_size"]))
	}

	return map[string]any{
		"clusters":    clusters,
		"total_count": totalCount,
		"page":        page,
		"page_size":   pageSize,
	}
}

// clusterDetail passes a cluster-detail body through with each keyword
// individually normalized.
func clusterDetail(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	kws := asSlice(m["keywords"])
	normalized := make([]any, len(kws))
	for i, kw := range kws {
		normalized[i] = Keyword(asMap(kw))
	}
	out["keywords"] = normalized
	return out
}

// keywordList normalizes a dashboard keywords-list body: every item goes
// through the keyword transform, the pagination block is repackaged into
// the canonical page/limit/total/totalPages shape, and aggregations are
// carried through unchanged as the summary (defaulting to an empty map).
func keywordList(m map[string]any) map[string]any {
	raw := asSlice(m["keywords"])
	keywords := make([]any, len(raw))
	for i, kw := range raw {
		keywords[i] = Keyword(asMap(kw))
	}

	p := asMap(m["pagination"])
	page := int(toNumber(p["page"]))
	limit := int(toNumber(p["page_size"]))
	total := int(toNumber(p["total_filtered"]))

	summary := asMap(m["aggregations"])
	if summary == nil {
		summary = map[string]any{}
	}

	return map[string]any{
		"keywords": keywords,
		"pagination": models.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: ceilDiv(total, limit),
		},
		"summary": summary,
	}
}
