package catalogue

import (
	"testing"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type treeBuilder struct {
	products []model.Product
	options  []TreeOption
	values   []model.ProductOptionValue
	links    []model.ProductOptionValueLink
	seq      int64
}

func (b *treeBuilder) option(id, name string, ordering int, variation bool) {
	b.options = append(b.options, TreeOption{
		Option:    model.ProductOption{ID: id, Name: name, Ordering: ordering, Active: true},
		Variation: variation,
	})
}

func (b *treeBuilder) value(optionID, value string) string {
	b.seq++
	id := optionID + ":" + value
	b.values = append(b.values, model.ProductOptionValue{ID: id, OptionID: optionID, Value: value, Seq: b.seq})
	return id
}

func (b *treeBuilder) product(id string, order int, valueIDs ...string) {
	b.products = append(b.products, model.Product{
		BaseModel:  model.BaseModel{ID: id},
		SKU:        "SKU-" + id,
		RangeOrder: order,
	})
	for _, v := range valueIDs {
		b.links = append(b.links, model.ProductOptionValueLink{ID: id + v, ProductID: id, OptionValueID: v})
	}
}

func (b *treeBuilder) build() *Tree {
	return NewTree("r1", b.products, b.options, b.values, b.links)
}

func colourSizeTree() *treeBuilder {
	b := &treeBuilder{}
	b.option("size", "Size", 2, true)
	b.option("colour", "Colour", 1, true)
	b.option("material", "Material", 3, false)
	red, blue := b.value("colour", "Red"), b.value("colour", "Blue")
	s, m := b.value("size", "S"), b.value("size", "M")
	cotton := b.value("material", "Cotton")
	b.product("p4", 0, blue, m, cotton)
	b.product("p1", 0, red, s, cotton)
	b.product("p2", 1, red, m, cotton)
	b.product("p3", 0, blue, s, cotton)
	return b
}

func TestTreeOrdering(t *testing.T) {
	tree := colourSizeTree().build()

	var ids []string
	for _, p := range tree.Products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p1", "p3", "p4", "p2"}, ids)

	var names []string
	for _, o := range tree.VariationOptions() {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"Colour", "Size"}, names)
}

func TestVariationKey(t *testing.T) {
	tree := colourSizeTree().build()

	key := tree.VariationKey("p2")
	assert.Equal(t, VariationKey{{"Colour", "Red"}, {"Size", "M"}}, key)
	assert.Equal(t, "Colour=Red, Size=M", key.String())
	assert.Equal(t, map[string]string{"Colour": "Red", "Size": "M"}, key.Map())
}

func TestVariationOptionValuesInsertionOrder(t *testing.T) {
	tree := colourSizeTree().build()

	assert.Equal(t, map[string][]string{
		"Colour": {"Red", "Blue"},
		"Size":   {"S", "M"},
	}, ValueNames(tree.VariationOptionValues()))
	assert.Equal(t, map[string][]string{"Material": {"Cotton"}}, ValueNames(tree.ListingOptionValues()))
}

func TestTreePredicates(t *testing.T) {
	tests := []struct {
		name          string
		build         func() *Tree
		missing       bool
		unique        bool
		multipleVals  bool
		valid         bool
		wantErrSubstr string
	}{
		{
			name:         "valid matrix",
			build:        func() *Tree { return colourSizeTree().build() },
			unique:       true,
			multipleVals: true,
			valid:        true,
		},
		{
			name: "single value option",
			build: func() *Tree {
				b := &treeBuilder{}
				b.option("colour", "Colour", 0, true)
				red := b.value("colour", "Red")
				b.product("p1", 0, red)
				return b.build()
			},
			unique:        true,
			wantErrSubstr: "Option Colour must have at least two values",
		},
		{
			name: "missing value",
			build: func() *Tree {
				b := &treeBuilder{}
				b.option("colour", "Colour", 0, true)
				red, blue := b.value("colour", "Red"), b.value("colour", "Blue")
				b.product("p1", 0, red)
				b.product("p2", 0, blue)
				b.product("p3", 0)
				return b.build()
			},
			missing:       true,
			unique:        true,
			multipleVals:  true,
			wantErrSubstr: "has no value for option Colour",
		},
		{
			name: "duplicate keys",
			build: func() *Tree {
				b := &treeBuilder{}
				b.option("colour", "Colour", 0, true)
				red, blue := b.value("colour", "Red"), b.value("colour", "Blue")
				b.product("p1", 0, red)
				b.product("p2", 0, blue)
				b.product("p3", 0, blue)
				return b.build()
			},
			multipleVals:  true,
			wantErrSubstr: "share the variation",
		},
		{
			name: "single product without options",
			build: func() *Tree {
				b := &treeBuilder{}
				b.product("p1", 0)
				return b.build()
			},
			unique:       true,
			multipleVals: true,
			valid:        true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := tt.build()
			assert.Equal(t, tt.missing, tree.HasMissingProductOptionValues())
			assert.Equal(t, tt.unique, tree.AllUniqueVariations())
			assert.Equal(t, tt.multipleVals, tree.ProductOptionsHaveMultipleValues())
			assert.Equal(t, tt.valid, tree.ValidVariations())

			err := tree.CheckVariations("test")
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.InvalidState)
			assert.Contains(t, err.Error(), tt.wantErrSubstr)
		})
	}
}
