package model

import "github.com/shopspring/decimal"

type LookupKind string

const (
	LookupSupplier     LookupKind = "supplier"
	LookupPackageType  LookupKind = "package_type"
	LookupBrand        LookupKind = "brand"
	LookupManufacturer LookupKind = "manufacturer"
	LookupGender       LookupKind = "gender"
)

// LookupKinds lists every simple lookup, in display order.
var LookupKinds = []LookupKind{LookupSupplier, LookupPackageType, LookupBrand, LookupManufacturer, LookupGender}

// Table returns the table backing the lookup kind.
func (k LookupKind) Table() string {
	return string(k)
}

// Lookup is a simple named row with an active flag.
type Lookup struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

type VATRate struct {
	ID         string          `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Percentage decimal.Decimal `db:"percentage" json:"percentage"`
	Active     bool            `db:"active" json:"active"`
}
