package dto

import (
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/model"
)

// EditSummary describes one in-progress edit for the continue page.
type EditSummary struct {
	EditID         string            `json:"edit_id"`
	UserID         string            `json:"user_id"`
	RangeID        string            `json:"range_id"`
	PartialRangeID string            `json:"partial_range_id"`
	SKU            string            `json:"sku"`
	Name           string            `json:"name"`
	Status         model.RangeStatus `json:"status"`
	ManagedByID    string            `json:"managed_by_id"`
	CreatedAt      time.Time         `json:"created_at"`
}

// EditGroup is the set of edits whose range is managed by one user.
type EditGroup struct {
	ManagedByID string        `json:"managed_by_id"`
	Edits       []EditSummary `json:"edits"`
}

// RangeDetailsInput updates the draft range's basic information.
type RangeDetailsInput struct {
	Name        string
	Department  string
	Description string
	SearchTerms string
	IsEndOfLine *bool
	Hidden      *bool
}

// RangeOptionInput selects one option for the draft range.
type RangeOptionInput struct {
	OptionID  string
	Variation bool
}

// NewProductInput describes a product to synthesise in a draft. Info is
// applied on top of the range-wide values when set.
type NewProductInput struct {
	ValueIDs []string
	Info     *model.ProductInfo
}
