package model

import "time"

// PartialProductRange is the editable mirror of a ProductRange.
type PartialProductRange struct {
	ProductRange
	OriginalRangeID *string `db:"original_range_id" json:"original_range_id"`
	PreExisting     bool    `db:"pre_existing" json:"pre_existing"`
}

// PartialProduct is the editable mirror of a Product. PreExisting is true iff
// the row was cloned from a live product.
type PartialProduct struct {
	Product
	OriginalProductID *string `db:"original_product_id" json:"original_product_id"`
	PreExisting       bool    `db:"pre_existing" json:"pre_existing"`
}

type PartialRangeOption struct {
	RangeOption
	PreExisting bool `db:"pre_existing" json:"pre_existing"`
}

// ProductEdit binds one user to one draft range.
type ProductEdit struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	PartialRangeID string    `db:"partial_range_id" json:"partial_range_id"`
	ProductRangeID *string   `db:"product_range_id" json:"product_range_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ProductEditPage holds the encoded form record stored for one editor page.
type ProductEditPage struct {
	EditID    string    `db:"edit_id"`
	Page      string    `db:"page"`
	Data      []byte    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}
