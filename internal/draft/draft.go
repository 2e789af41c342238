// Package draft holds the editable mirror of the live catalogue. A draft is
// created from a live range, mutated by the product editor and either
// promoted back into the live range in one transaction or discarded.
package draft

import (
	"slices"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/model"
)

// Draft is a product edit loaded with its draft range and tree.
type Draft struct {
	Edit     model.ProductEdit
	Range    model.PartialProductRange
	Products []model.PartialProduct
	Tree     *catalogue.Tree
	// Palette lists the option values admitted to this edit.
	Palette []string
}

// NewDraft orders products the same way as the tree.
func NewDraft(edit model.ProductEdit, pr model.PartialProductRange, products []model.PartialProduct, tree *catalogue.Tree, palette []string) *Draft {
	d := &Draft{
		Edit:     edit,
		Range:    pr,
		Products: slices.Clone(products),
		Tree:     tree,
		Palette:  palette,
	}
	slices.SortStableFunc(d.Products, func(a, b model.PartialProduct) int {
		return catalogue.CompareProducts(a.Product, b.Product)
	})
	return d
}

// LiveRangeID is the range this draft will be promoted into.
func (d *Draft) LiveRangeID() string {
	if d.Edit.ProductRangeID != nil {
		return *d.Edit.ProductRangeID
	}
	if d.Range.OriginalRangeID != nil {
		return *d.Range.OriginalRangeID
	}
	return ""
}

func (d *Draft) Product(id string) (*model.PartialProduct, bool) {
	for i := range d.Products {
		if d.Products[i].ID == id {
			return &d.Products[i], true
		}
	}
	return nil, false
}

// PreExistingOptions are the options that were on the live range when the
// draft was copied. The editor may not remove them.
func (d *Draft) PreExistingOptions() []model.ProductOption {
	var out []model.ProductOption
	for _, o := range d.Tree.Options {
		if o.PreExisting {
			out = append(out, o.Option)
		}
	}
	return out
}

func (d *Draft) HasMissingProductOptionValues() bool {
	return d.Tree.HasMissingProductOptionValues()
}

func (d *Draft) AllUniqueVariations() bool {
	return d.Tree.AllUniqueVariations()
}

func (d *Draft) ProductOptionsHaveMultipleValues() bool {
	return d.Tree.ProductOptionsHaveMultipleValues()
}

func (d *Draft) ValidVariations() bool {
	return d.Tree.ValidVariations()
}

// RangeWideValues returns the scalar product attributes shared by every
// draft product.
func (d *Draft) RangeWideValues() RangeWide {
	products := make([]model.Product, len(d.Products))
	for i := range d.Products {
		products[i] = d.Products[i].Product
	}
	return RangeWideValues(products)
}
