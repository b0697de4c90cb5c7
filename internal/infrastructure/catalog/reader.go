package catalog

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

// Reader parses uploaded catalog files. The format is picked from the
// file extension; csv and xlsx are supported.
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

func (r *Reader) Read(filename string, data []byte) ([]domain.Product, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(data)
	case ".xlsx":
		return parseXLSX(data)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "read catalog",
			fmt.Errorf("unsupported catalog format %q", filepath.Ext(filename)))
	}
}

// legacyHeaders maps raw export column names, typos included, onto the
// canonical attribute names used everywhere downstream.
var legacyHeaders = map[string]string{
	"BrandName": domain.AttrBrand,
	"Sizes":     domain.AttrSizes,
	"SellPrice": domain.AttrPrice,
	"Deatils":   domain.AttrDetails,
}

func canonicalHeader(raw string) string {
	header := strings.TrimSpace(raw)
	if canonical, ok := legacyHeaders[header]; ok {
		return canonical
	}
	return header
}

// rowToProduct builds a product from one header-keyed row. Rows missing
// any of the four attributes are skipped, matching how incomplete
// records are dropped at preprocessing time.
func rowToProduct(row map[string]string) (domain.Product, bool) {
	details := strings.TrimSpace(row[domain.AttrDetails])
	brand := strings.TrimSpace(row[domain.AttrBrand])
	rawSizes := strings.TrimSpace(row[domain.AttrSizes])
	rawPrice := strings.TrimSpace(row[domain.AttrPrice])
	if details == "" || brand == "" || rawSizes == "" || rawPrice == "" {
		return domain.Product{}, false
	}

	p := domain.Product{
		Details: details,
		Brand:   brand,
		Sizes:   convertSizes(rawSizes),
		Price:   convertPrice(rawPrice),
	}
	p.Content = buildContent(p)
	return p, true
}

func convertPrice(raw string) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return price
}

func convertSizes(raw string) string {
	cleaned := strings.ReplaceAll(raw, "Size:", "")
	parts := strings.Split(cleaned, ",")
	sizes := make([]string, 0, len(parts))
	for _, part := range parts {
		size := strings.ToLower(strings.TrimSpace(part))
		if size != "" {
			sizes = append(sizes, size)
		}
	}
	return strings.Join(sizes, ", ")
}

// buildContent renders the embedded document text: a JSON object over
// the canonical attributes, so dense vectors and generation prompts see
// the same serialized record.
func buildContent(p domain.Product) string {
	record := map[string]any{
		domain.AttrDetails: p.Details,
		domain.AttrBrand:   p.Brand,
		domain.AttrSizes:   p.Sizes,
		domain.AttrPrice:   p.Price,
	}
	content, err := json.Marshal(record)
	if err != nil {
		return p.Details
	}
	return string(content)
}
