package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RangeStatus string

const (
	RangeStatusCreating RangeStatus = "CREATING"
	RangeStatusComplete RangeStatus = "COMPLETE"
	RangeStatusError    RangeStatus = "ERROR"
)

// ProductRange is the top level catalogue unit grouping variations.
type ProductRange struct {
	BaseModel
	SKU           string      `db:"sku" json:"sku"`
	Name          string      `db:"name" json:"name"`
	Department    string      `db:"department" json:"department"`
	Description   string      `db:"description" json:"description"`
	SearchTerms   string      `db:"search_terms" json:"search_terms"`
	Status        RangeStatus `db:"status" json:"status"`
	ErrorMessage  string      `db:"error_message" json:"error_message,omitempty"`
	IsEndOfLine   bool        `db:"is_end_of_line" json:"is_end_of_line"`
	Hidden        bool        `db:"hidden" json:"hidden"`
	ManagedByID   *string     `db:"managed_by_id" json:"managed_by_id"`
	CompletedAt   *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
	CompletedByID *string     `db:"completed_by_id" json:"completed_by_id,omitempty"`
}

// IsPublic reports whether the range may appear in public search.
func (r *ProductRange) IsPublic() bool {
	return r.Status == RangeStatusComplete && !r.Hidden
}

type ProductKind string

const (
	ProductKindSingle      ProductKind = "single"
	ProductKindMultipack   ProductKind = "multipack"
	ProductKindCombination ProductKind = "combination"
)

// ProductInfo holds the scalar attributes a variation may share with the rest
// of its range. New variations are seeded from the values that are identical
// across the range.
type ProductInfo struct {
	SupplierID     *string             `db:"supplier_id" json:"supplier_id"`
	SupplierSKU    string              `db:"supplier_sku" json:"supplier_sku"`
	PurchasePrice  decimal.NullDecimal `db:"purchase_price" json:"purchase_price"`
	RetailPrice    decimal.NullDecimal `db:"retail_price" json:"retail_price"`
	Price          decimal.NullDecimal `db:"price" json:"price"`
	VATRateID      *string             `db:"vat_rate_id" json:"vat_rate_id"`
	WeightGrams    *int                `db:"weight_grams" json:"weight_grams"`
	HeightMM       *int                `db:"height_mm" json:"height_mm"`
	WidthMM        *int                `db:"width_mm" json:"width_mm"`
	LengthMM       *int                `db:"length_mm" json:"length_mm"`
	PackageTypeID  *string             `db:"package_type_id" json:"package_type_id"`
	BrandID        *string             `db:"brand_id" json:"brand_id"`
	ManufacturerID *string             `db:"manufacturer_id" json:"manufacturer_id"`
	GenderID       *string             `db:"gender_id" json:"gender_id"`
}

// Product is a single variation of a range.
type Product struct {
	BaseModel
	ProductInfo
	SKU               string      `db:"sku" json:"sku"`
	RangeID           string      `db:"range_id" json:"range_id"`
	Barcode           string      `db:"barcode" json:"barcode"`
	RangeOrder        int         `db:"range_order" json:"range_order"`
	IsEndOfLine       bool        `db:"is_end_of_line" json:"is_end_of_line"`
	IsArchived        bool        `db:"is_archived" json:"is_archived"`
	Kind              ProductKind `db:"kind" json:"kind"`
	MultipackOfID     *string     `db:"multipack_of_id" json:"multipack_of_id,omitempty"`
	MultipackQuantity *int        `db:"multipack_quantity" json:"multipack_quantity,omitempty"`
}

// Multipack returns the wrapped product and pack size when p is a multipack.
func (p *Product) Multipack() (productID string, quantity int, ok bool) {
	if p.Kind != ProductKindMultipack || p.MultipackOfID == nil || p.MultipackQuantity == nil {
		return "", 0, false
	}
	return *p.MultipackOfID, *p.MultipackQuantity, true
}

// ProductCombinationLink binds a combination product to one component.
type ProductCombinationLink struct {
	ID          string `db:"id" json:"id"`
	ProductID   string `db:"product_id" json:"product_id"`
	ComponentID string `db:"component_id" json:"component_id"`
	Quantity    int    `db:"quantity" json:"quantity"`
}

// ProductOption is a named axis along which products vary.
type ProductOption struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Ordering int    `db:"ordering" json:"ordering"`
	Active   bool   `db:"active" json:"active"`
}

// ProductOptionValue is a value on an option. Seq preserves insertion order.
type ProductOptionValue struct {
	ID       string `db:"id" json:"id"`
	OptionID string `db:"option_id" json:"option_id"`
	Value    string `db:"value" json:"value"`
	Seq      int64  `db:"seq" json:"-"`
}

// RangeOption states that a range uses an option, either to distinguish
// variations or as a single listing value for the whole range.
type RangeOption struct {
	ID        string `db:"id" json:"id"`
	RangeID   string `db:"range_id" json:"range_id"`
	OptionID  string `db:"option_id" json:"option_id"`
	Variation bool   `db:"variation" json:"variation"`
}

type ProductOptionValueLink struct {
	ID            string `db:"id" json:"id"`
	ProductID     string `db:"product_id" json:"product_id"`
	OptionValueID string `db:"option_value_id" json:"option_value_id"`
}

// Barcode is a pre-provisioned pool entry.
type Barcode struct {
	ID        string     `db:"id" json:"id"`
	Barcode   string     `db:"barcode" json:"barcode"`
	Available bool       `db:"available" json:"available"`
	Seq       int64      `db:"seq" json:"-"`
	UsedAt    *time.Time `db:"used_at" json:"used_at"`
	UsedByID  *string    `db:"used_by_id" json:"used_by_id"`
	UsedFor   *string    `db:"used_for" json:"used_for"`
}
