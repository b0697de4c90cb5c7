package usecase

import (
	"strings"

	"github.com/styleseek/fashion-recommender/internal/config"
	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

// CategoryFilter narrows candidate sets by garment keywords. Both layers
// (coarse garment-class cues and fine category tokens) read from the same
// vocabulary table.
type CategoryFilter struct {
	categories []string
	upperCues  []string
	lowerCues  []string
}

func NewCategoryFilter(cfg config.CategoryConfig) *CategoryFilter {
	return &CategoryFilter{
		categories: cfg.Categories,
		upperCues:  cfg.UpperCues,
		lowerCues:  cfg.LowerCues,
	}
}

// ExtractCategory returns the first vocabulary token present in the
// query. Token order in the vocabulary encodes priority, so specific
// tokens win over the generic ones they contain.
func (f *CategoryFilter) ExtractCategory(query string) string {
	for _, cat := range f.categories {
		if strings.Contains(query, cat) {
			return cat
		}
	}
	return ""
}

// FilterByCategory keeps products whose details mention the category
// token. Stable and idempotent; a no-op for an empty category.
func (f *CategoryFilter) FilterByCategory(products []domain.Product, category string) []domain.Product {
	if category == "" {
		return products
	}
	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		details := p.Details
		if details == "" {
			details = p.Content
		}
		if strings.Contains(details, category) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// BasicFilter is the coarse garment-class pass applied before category
// extraction: both cue classes present means no filtering, an upper-only
// query excludes legwear, a lower-garment cue keeps only products
// mentioning that specific cue.
func (f *CategoryFilter) BasicFilter(query string, products []domain.Product) []domain.Product {
	lowerCue := f.firstCue(query, f.lowerCues)
	hasUpper := f.firstCue(query, f.upperCues) != ""

	switch {
	case hasUpper && lowerCue != "":
		return products
	case hasUpper:
		filtered := make([]domain.Product, 0, len(products))
		for _, p := range products {
			if !f.mentionsAny(p, f.lowerCues) {
				filtered = append(filtered, p)
			}
		}
		return filtered
	case lowerCue != "":
		filtered := make([]domain.Product, 0, len(products))
		for _, p := range products {
			if f.mentions(p, lowerCue) {
				filtered = append(filtered, p)
			}
		}
		return filtered
	default:
		return products
	}
}

func (f *CategoryFilter) firstCue(query string, cues []string) string {
	for _, cue := range cues {
		if strings.Contains(query, cue) {
			return cue
		}
	}
	return ""
}

func (f *CategoryFilter) mentions(p domain.Product, keyword string) bool {
	details := p.Details
	if details == "" {
		details = p.Content
	}
	return strings.Contains(details, keyword)
}

func (f *CategoryFilter) mentionsAny(p domain.Product, keywords []string) bool {
	for _, kw := range keywords {
		if f.mentions(p, kw) {
			return true
		}
	}
	return false
}
