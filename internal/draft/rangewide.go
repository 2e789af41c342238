package draft

import (
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/shopspring/decimal"
)

// RangeWide holds the attributes identical across a set of products. Only
// the fields named in Fields are meaningful in Info.
type RangeWide struct {
	Info   model.ProductInfo
	Fields []string
}

func (w RangeWide) Has(field string) bool {
	for _, f := range w.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// infoField describes one shareable attribute of model.ProductInfo.
type infoField struct {
	name  string
	equal func(a, b *model.ProductInfo) bool
	copy  func(dst, src *model.ProductInfo)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqDecimal(a, b decimal.NullDecimal) bool {
	if !a.Valid || !b.Valid {
		return a.Valid == b.Valid
	}
	return a.Decimal.Equal(b.Decimal)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// infoFields excludes identity, range membership, timestamps, barcode,
// ordering, end-of-line and multipack attributes, which live on
// model.Product rather than model.ProductInfo.
var infoFields = []infoField{
	{"supplier", func(a, b *model.ProductInfo) bool { return eqPtr(a.SupplierID, b.SupplierID) },
		func(d, s *model.ProductInfo) { d.SupplierID = clonePtr(s.SupplierID) }},
	{"supplier_sku", func(a, b *model.ProductInfo) bool { return a.SupplierSKU == b.SupplierSKU },
		func(d, s *model.ProductInfo) { d.SupplierSKU = s.SupplierSKU }},
	{"purchase_price", func(a, b *model.ProductInfo) bool { return eqDecimal(a.PurchasePrice, b.PurchasePrice) },
		func(d, s *model.ProductInfo) { d.PurchasePrice = s.PurchasePrice }},
	{"retail_price", func(a, b *model.ProductInfo) bool { return eqDecimal(a.RetailPrice, b.RetailPrice) },
		func(d, s *model.ProductInfo) { d.RetailPrice = s.RetailPrice }},
	{"price", func(a, b *model.ProductInfo) bool { return eqDecimal(a.Price, b.Price) },
		func(d, s *model.ProductInfo) { d.Price = s.Price }},
	{"vat_rate", func(a, b *model.ProductInfo) bool { return eqPtr(a.VATRateID, b.VATRateID) },
		func(d, s *model.ProductInfo) { d.VATRateID = clonePtr(s.VATRateID) }},
	{"weight_grams", func(a, b *model.ProductInfo) bool { return eqPtr(a.WeightGrams, b.WeightGrams) },
		func(d, s *model.ProductInfo) { d.WeightGrams = clonePtr(s.WeightGrams) }},
	{"height_mm", func(a, b *model.ProductInfo) bool { return eqPtr(a.HeightMM, b.HeightMM) },
		func(d, s *model.ProductInfo) { d.HeightMM = clonePtr(s.HeightMM) }},
	{"width_mm", func(a, b *model.ProductInfo) bool { return eqPtr(a.WidthMM, b.WidthMM) },
		func(d, s *model.ProductInfo) { d.WidthMM = clonePtr(s.WidthMM) }},
	{"length_mm", func(a, b *model.ProductInfo) bool { return eqPtr(a.LengthMM, b.LengthMM) },
		func(d, s *model.ProductInfo) { d.LengthMM = clonePtr(s.LengthMM) }},
	{"package_type", func(a, b *model.ProductInfo) bool { return eqPtr(a.PackageTypeID, b.PackageTypeID) },
		func(d, s *model.ProductInfo) { d.PackageTypeID = clonePtr(s.PackageTypeID) }},
	{"brand", func(a, b *model.ProductInfo) bool { return eqPtr(a.BrandID, b.BrandID) },
		func(d, s *model.ProductInfo) { d.BrandID = clonePtr(s.BrandID) }},
	{"manufacturer", func(a, b *model.ProductInfo) bool { return eqPtr(a.ManufacturerID, b.ManufacturerID) },
		func(d, s *model.ProductInfo) { d.ManufacturerID = clonePtr(s.ManufacturerID) }},
	{"gender", func(a, b *model.ProductInfo) bool { return eqPtr(a.GenderID, b.GenderID) },
		func(d, s *model.ProductInfo) { d.GenderID = clonePtr(s.GenderID) }},
}

// RangeWideValues compares every shareable attribute across products. An
// empty product set shares nothing.
func RangeWideValues(products []model.Product) RangeWide {
	var w RangeWide
	if len(products) == 0 {
		return w
	}
	first := &products[0].ProductInfo
	for _, f := range infoFields {
		shared := true
		for i := 1; i < len(products) && shared; i++ {
			shared = f.equal(first, &products[i].ProductInfo)
		}
		if shared {
			f.copy(&w.Info, first)
			w.Fields = append(w.Fields, f.name)
		}
	}
	return w
}

// Apply copies the shared attributes onto info.
func (w RangeWide) Apply(info *model.ProductInfo) {
	for _, f := range infoFields {
		if w.Has(f.name) {
			f.copy(info, &w.Info)
		}
	}
}

// CopyInfo deep-copies every shareable attribute from src to dst.
func CopyInfo(dst, src *model.ProductInfo) {
	for _, f := range infoFields {
		f.copy(dst, src)
	}
}
