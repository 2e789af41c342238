package dto

import (
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/model"
)

type RangeFilters struct {
	SearchQuery string // name, sku, department or search terms
	Status      model.RangeStatus
	PublicOnly  bool
	Page        int
	PageSize    int
}

// RangeSummary is the search result row and the indexed document.
type RangeSummary struct {
	ID          string            `json:"id"`
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Department  string            `json:"department"`
	Description string            `json:"description"`
	SearchTerms string            `json:"search_terms"`
	Status      model.RangeStatus `json:"status"`
	Hidden      bool              `json:"hidden"`
	ProductSKUs []string          `json:"product_skus,omitempty"`
	Barcodes    []string          `json:"barcodes,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

func NewRangeSummary(r *model.ProductRange) RangeSummary {
	return RangeSummary{
		ID:          r.ID,
		SKU:         r.SKU,
		Name:        r.Name,
		Department:  r.Department,
		Description: r.Description,
		SearchTerms: r.SearchTerms,
		Status:      r.Status,
		Hidden:      r.Hidden,
		CompletedAt: r.CompletedAt,
	}
}

type OptionValues struct {
	Option string   `json:"option"`
	Values []string `json:"values"`
}

type ProductDetail struct {
	model.Product
	VariationKey map[string]string `json:"variation_key"`
	StockLevel   int               `json:"stock_level"`
	Bays         []model.Bay       `json:"bays"`
}

// RangeDetail is the read model of the completed range page.
type RangeDetail struct {
	Range                 model.ProductRange `json:"range"`
	Products              []ProductDetail    `json:"products"`
	VariationOptionValues []OptionValues     `json:"variation_option_values"`
	ListingOptionValues   []OptionValues     `json:"listing_option_values"`
}
