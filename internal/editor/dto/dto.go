package dto

import (
	"github.com/fekuna/omnipos-backoffice/internal/draft/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
)

type PageLink struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Enabled bool   `json:"enabled"`
	Visible bool   `json:"visible"`
	Stored  bool   `json:"stored"`
}

// RangeView is the draft range as the editor shows it.
type RangeView struct {
	ID          string            `json:"id"`
	SKU         string            `json:"sku"`
	Name        string            `json:"name"`
	Department  string            `json:"department"`
	Description string            `json:"description"`
	SearchTerms string            `json:"search_terms"`
	IsEndOfLine bool              `json:"is_end_of_line"`
	Hidden      bool              `json:"hidden"`
	Status      model.RangeStatus `json:"status"`
}

// OptionView lists the values a range option takes across the draft.
type OptionView struct {
	Name        string   `json:"name"`
	Variation   bool     `json:"variation"`
	PreExisting bool     `json:"pre_existing"`
	Values      []string `json:"values"`
}

type ProductRow struct {
	ID          string            `json:"id"`
	SKU         string            `json:"sku"`
	Barcode     string            `json:"barcode"`
	Variation   string            `json:"variation"`
	Values      map[string]string `json:"values"`
	Info        model.ProductInfo `json:"info"`
	IsEndOfLine bool              `json:"is_end_of_line"`
	PreExisting bool              `json:"pre_existing"`
}

// PageView is everything a page template needs. Errors and Message are set
// when a submission was rejected.
type PageView struct {
	RangeID     string              `json:"range_id,omitempty"`
	EditID      string              `json:"edit_id,omitempty"`
	Page        string              `json:"page"`
	Title       string              `json:"title"`
	ProductType string              `json:"product_type,omitempty"`
	Pages       []PageLink          `json:"pages,omitempty"`
	Data        map[string][]string `json:"data"`
	Range       *RangeView          `json:"range,omitempty"`
	Options     []OptionView        `json:"options,omitempty"`
	Products    []ProductRow        `json:"products,omitempty"`
	Valid       bool                `json:"valid_variations"`
	Errors      map[string]string   `json:"errors,omitempty"`
	Message     string              `json:"message,omitempty"`
	EditingUser string              `json:"editing_user,omitempty"`
}

// ProductView shows a single draft product for the new variation page.
type ProductView struct {
	RangeID string              `json:"range_id"`
	Product ProductRow          `json:"product"`
	Data    map[string][]string `json:"data"`
	Errors  map[string]string   `json:"errors,omitempty"`
	Message string              `json:"message,omitempty"`
}

// ContinueView splits in-progress edits between the current user and
// everybody else.
type ContinueView struct {
	Mine   []dto.EditSummary `json:"mine"`
	Others []dto.EditGroup   `json:"others"`
}
