package domain

// Comparator is the fixed comparator set the query constructor may emit.
// Like and Contain are accepted from the constructor but the dense index
// cannot serve substring matches, so its translator drops such clauses.
type Comparator string

const (
	CompEq      Comparator = "eq"
	CompLt      Comparator = "lt"
	CompLte     Comparator = "lte"
	CompGt      Comparator = "gt"
	CompGte     Comparator = "gte"
	CompLike    Comparator = "like"
	CompContain Comparator = "contain"
)

// FilterClause is one attribute constraint of a structured query.
type FilterClause struct {
	Attribute  string     `json:"attribute"`
	Comparator Comparator `json:"comparator"`
	Value      any        `json:"value"`
}

// StructuredQuery is the semantic-parse result for a natural-language
// query: a search string plus zero or more attribute filters.
type StructuredQuery struct {
	Search  string         `json:"search"`
	Filters []FilterClause `json:"filters"`
}

// TopicVerdict is the classifier output coerced to a boolean, with the
// degradation path recorded so callers can assert on it.
type TopicVerdict struct {
	OnTopic  bool
	Degraded bool
}
