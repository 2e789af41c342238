package catalogue

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/model"
)

// TreeOption is an option attached to a range.
type TreeOption struct {
	Option      model.ProductOption
	Variation   bool
	PreExisting bool
}

// Tree is a range loaded with its products, options and value links. Live
// and draft ranges both load into a Tree so the structural rules are shared.
type Tree struct {
	RangeID  string
	Products []model.Product
	Options  []TreeOption
	Values   map[string]model.ProductOptionValue
	Links    map[string][]string
}

// NewTree sorts products by (range_order, id) and options by (ordering, name).
// values must contain every value referenced by links.
func NewTree(rangeID string, products []model.Product, options []TreeOption, values []model.ProductOptionValue, links []model.ProductOptionValueLink) *Tree {
	t := &Tree{
		RangeID:  rangeID,
		Products: slices.Clone(products),
		Options:  slices.Clone(options),
		Values:   make(map[string]model.ProductOptionValue, len(values)),
		Links:    make(map[string][]string, len(products)),
	}
	slices.SortStableFunc(t.Products, CompareProducts)
	slices.SortStableFunc(t.Options, func(a, b TreeOption) int {
		return cmp.Or(cmp.Compare(a.Option.Ordering, b.Option.Ordering), cmp.Compare(a.Option.Name, b.Option.Name))
	})
	for _, v := range values {
		t.Values[v.ID] = v
	}
	for _, l := range links {
		t.Links[l.ProductID] = append(t.Links[l.ProductID], l.OptionValueID)
	}
	return t
}

func CompareProducts(a, b model.Product) int {
	return cmp.Or(cmp.Compare(a.RangeOrder, b.RangeOrder), cmp.Compare(a.ID, b.ID))
}

func (t *Tree) VariationOptions() []model.ProductOption {
	return t.options(true)
}

func (t *Tree) ListingOptions() []model.ProductOption {
	return t.options(false)
}

func (t *Tree) options(variation bool) []model.ProductOption {
	var out []model.ProductOption
	for _, o := range t.Options {
		if o.Variation == variation {
			out = append(out, o.Option)
		}
	}
	return out
}

// ProductValue returns the product's value for optionID. When a product is
// linked to several values of one option the earliest inserted wins.
func (t *Tree) ProductValue(productID, optionID string) (model.ProductOptionValue, bool) {
	var best model.ProductOptionValue
	found := false
	for _, id := range t.Links[productID] {
		v, ok := t.Values[id]
		if !ok || v.OptionID != optionID {
			continue
		}
		if !found || v.Seq < best.Seq {
			best, found = v, true
		}
	}
	return best, found
}

type KeyPart struct {
	Option string
	Value  string
}

// VariationKey is the ordered option -> value mapping identifying a product
// within its range. Missing values have an empty Value.
type VariationKey []KeyPart

func (k VariationKey) String() string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = p.Option + "=" + p.Value
	}
	return strings.Join(parts, ", ")
}

func (k VariationKey) Map() map[string]string {
	m := make(map[string]string, len(k))
	for _, p := range k {
		m[p.Option] = p.Value
	}
	return m
}

func (t *Tree) VariationKey(productID string) VariationKey {
	opts := t.VariationOptions()
	key := make(VariationKey, 0, len(opts))
	for _, o := range opts {
		v, _ := t.ProductValue(productID, o.ID)
		key = append(key, KeyPart{Option: o.Name, Value: v.Value})
	}
	return key
}

type OptionValueList struct {
	Option model.ProductOption
	Values []model.ProductOptionValue
}

// VariationOptionValues lists, per variation option, the distinct values used
// by the range's products in insertion order.
func (t *Tree) VariationOptionValues() []OptionValueList {
	return t.optionValues(t.VariationOptions())
}

func (t *Tree) ListingOptionValues() []OptionValueList {
	return t.optionValues(t.ListingOptions())
}

func (t *Tree) optionValues(opts []model.ProductOption) []OptionValueList {
	out := make([]OptionValueList, 0, len(opts))
	for _, o := range opts {
		seen := map[string]bool{}
		list := OptionValueList{Option: o}
		for _, p := range t.Products {
			v, ok := t.ProductValue(p.ID, o.ID)
			if !ok || seen[v.ID] {
				continue
			}
			seen[v.ID] = true
			list.Values = append(list.Values, v)
		}
		slices.SortFunc(list.Values, func(a, b model.ProductOptionValue) int {
			return cmp.Or(cmp.Compare(a.Seq, b.Seq), cmp.Compare(a.ID, b.ID))
		})
		out = append(out, list)
	}
	return out
}

// ValueNames flattens lists to option name -> value texts.
func ValueNames(lists []OptionValueList) map[string][]string {
	m := make(map[string][]string, len(lists))
	for _, l := range lists {
		vals := make([]string, len(l.Values))
		for i, v := range l.Values {
			vals[i] = v.Value
		}
		m[l.Option.Name] = vals
	}
	return m
}

func (t *Tree) HasMissingProductOptionValues() bool {
	return len(t.missingValues()) > 0
}

func (t *Tree) AllUniqueVariations() bool {
	return len(t.duplicates()) == 0
}

func (t *Tree) ProductOptionsHaveMultipleValues() bool {
	return len(t.singleValueOptions()) == 0
}

func (t *Tree) ValidVariations() bool {
	return !t.HasMissingProductOptionValues() && t.AllUniqueVariations() && t.ProductOptionsHaveMultipleValues()
}

// CheckVariations returns an InvalidState error describing every broken
// variation rule, or nil.
func (t *Tree) CheckVariations(op string) error {
	var msgs []string
	msgs = append(msgs, t.singleValueOptions()...)
	msgs = append(msgs, t.missingValues()...)
	msgs = append(msgs, t.duplicates()...)
	if len(msgs) == 0 {
		return nil
	}
	return apperr.New(apperr.InvalidState, op, strings.Join(msgs, "; "))
}

func (t *Tree) missingValues() []string {
	var msgs []string
	for _, p := range t.Products {
		for _, o := range t.VariationOptions() {
			if _, ok := t.ProductValue(p.ID, o.ID); !ok {
				msgs = append(msgs, fmt.Sprintf("Product %s has no value for option %s", p.SKU, o.Name))
			}
		}
	}
	return msgs
}

func (t *Tree) duplicates() []string {
	var msgs []string
	seen := map[string]string{}
	for _, p := range t.Products {
		key := t.VariationKey(p.ID).String()
		if first, ok := seen[key]; ok {
			msgs = append(msgs, fmt.Sprintf("Products %s and %s share the variation %q", first, p.SKU, key))
			continue
		}
		seen[key] = p.SKU
	}
	return msgs
}

func (t *Tree) singleValueOptions() []string {
	var msgs []string
	for _, l := range t.VariationOptionValues() {
		if len(l.Values) < 2 {
			msgs = append(msgs, fmt.Sprintf("Option %s must have at least two values", l.Option.Name))
		}
	}
	return msgs
}
