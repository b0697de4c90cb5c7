package domain

// Metadata attribute names as stored in the catalog and the vector index
// payload. The structured retriever only accepts filters over these.
const (
	AttrDetails = "Product Details"
	AttrBrand   = "Brand Name"
	AttrSizes   = "Available Sizes"
	AttrPrice   = "Product Price"
)

// Product is one catalog candidate. Identity is by ID; a product is
// immutable once retrieved.
type Product struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Details string  `json:"details"`
	Brand   string  `json:"brand"`
	Sizes   string  `json:"sizes"`
	Price   float64 `json:"price"`
	Score   float64 `json:"score,omitempty"`
}

// Recommendation is the terminal output of one pipeline traversal.
// OnTopic and FallbackUsed exist for observability at the serving layer.
type Recommendation struct {
	Answer       string   `json:"answer"`
	ProductIDs   []string `json:"product_ids"`
	OnTopic      bool     `json:"on_topic"`
	FallbackUsed bool     `json:"fallback_used"`
}

func ProductIDs(products []Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}
