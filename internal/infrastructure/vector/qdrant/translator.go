package qdrant

import (
	"strconv"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

// translateFilters turns structured filter clauses into a qdrant payload
// filter. Range comparators map onto range conditions, eq onto match.
// like and contain have no payload-filter equivalent and are dropped
// silently, mirroring how text-substring clauses narrow nothing here.
// Returns nil when no clause survives so the search stays unfiltered.
func translateFilters(filters []domain.FilterClause) map[string]any {
	must := make([]map[string]any, 0, len(filters))
	for _, clause := range filters {
		condition, ok := translateClause(clause)
		if !ok {
			continue
		}
		must = append(must, condition)
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func translateClause(clause domain.FilterClause) (map[string]any, bool) {
	switch clause.Comparator {
	case domain.CompEq:
		return map[string]any{
			"key":   clause.Attribute,
			"match": map[string]any{"value": clause.Value},
		}, true
	case domain.CompLt, domain.CompLte, domain.CompGt, domain.CompGte:
		value, ok := numericValue(clause.Value)
		if !ok {
			return nil, false
		}
		return map[string]any{
			"key":   clause.Attribute,
			"range": map[string]any{string(clause.Comparator): value},
		}, true
	default:
		// like / contain: no server-side equivalent.
		return nil, false
	}
}

func numericValue(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
