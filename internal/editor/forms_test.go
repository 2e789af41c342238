package editor

import (
	"testing"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindBasicInfo(t *testing.T) {
	f, err := BindBasicInfo(Record{"name": {"  Red Widget "}, "hidden": {"true"}})
	require.NoError(t, err)
	assert.Equal(t, "Red Widget", f.Name)
	assert.True(t, f.Hidden)
	assert.Equal(t, "Red Widget", f.CreateInput("u1").Name)
	assert.Equal(t, "u1", f.CreateInput("u1").ManagedByID)

	for _, r := range []Record{{}, {"name": {"   "}}} {
		_, err = BindBasicInfo(r)
		require.ErrorIs(t, err, apperr.InvalidInput)
		assert.Equal(t, "This field is required.", apperr.FieldErrors(err)["name"])
	}
}

func TestBindProductInfoValidates(t *testing.T) {
	tests := []struct {
		field string
		value string
		want  string
	}{
		{"price", "-1", "Enter a non-negative amount with at most two decimal places."},
		{"price", "1.234", "Enter a non-negative amount with at most two decimal places."},
		{"retail_price", "abc", "Enter a non-negative amount with at most two decimal places."},
		{"weight_grams", "1.5", "Enter a whole number."},
	}
	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			_, err := BindProductInfo(Record{tt.field: {tt.value}})
			require.ErrorIs(t, err, apperr.InvalidInput)
			assert.Equal(t, tt.want, apperr.FieldErrors(err)[tt.field])
		})
	}
}

func TestProductInfoApplyOnlyPostedFields(t *testing.T) {
	weight := 100
	info := model.ProductInfo{
		SupplierSKU: "OLD",
		WeightGrams: &weight,
		Price:       decimal.NewNullDecimal(decimal.RequireFromString("1.00")),
	}
	r := Record{"price": {"4.50"}, "supplier_sku": {""}}
	f, err := BindProductInfo(r)
	require.NoError(t, err)
	f.Apply(&info, r)

	assert.Equal(t, "4.5", info.Price.Decimal.String())
	assert.Empty(t, info.SupplierSKU)
	require.NotNil(t, info.WeightGrams)
	assert.Equal(t, 100, *info.WeightGrams)
}

func TestBindVariationRow(t *testing.T) {
	r := Record{
		"barcode:p1":     {"12345678"},
		"price:p1":       {"9.99"},
		"barcode:p2":     {"12AB"},
		"end_of_line:p3": {"true"},
	}

	row, rec, err := BindVariationRow(r, "p1")
	require.NoError(t, err)
	assert.Equal(t, "12345678", row.Barcode)
	assert.Len(t, rec, 2)

	p := model.PartialProduct{}
	row.Apply(&p, rec)
	assert.Equal(t, "12345678", p.Barcode)
	assert.Equal(t, "9.99", p.Price.Decimal.StringFixed(2))

	_, _, err = BindVariationRow(r, "p2")
	require.ErrorIs(t, err, apperr.InvalidInput)
	assert.Contains(t, apperr.FieldErrors(err), "barcode:p2")

	row, rec, err = BindVariationRow(r, "p3")
	require.NoError(t, err)
	p = model.PartialProduct{}
	p.Barcode = "87654321"
	row.Apply(&p, rec)
	assert.True(t, p.IsEndOfLine)
	assert.Equal(t, "87654321", p.Barcode)
}

func TestVariationOptionsForm(t *testing.T) {
	f, err := BindVariationOptions(Record{
		"option":   {"Colour", "Size"},
		"values":   {"Red, Blue", "S,M,"},
		"excluded": {"Red, M"},
	})
	require.NoError(t, err)
	sel := f.Selections()
	require.Len(t, sel, 2)
	assert.Equal(t, []string{"Red", "Blue"}, sel[0].Values)
	assert.Equal(t, []string{"S", "M"}, sel[1].Values)
	assert.Equal(t, [][]string{{"Red", "M"}}, f.ExcludedRows())

	_, err = BindVariationOptions(Record{"option": {"Colour", "Size"}, "values": {"Red,Blue"}})
	assert.ErrorIs(t, err, apperr.InvalidInput)

	_, err = BindVariationOptions(Record{})
	assert.ErrorIs(t, err, apperr.InvalidInput)
}

func TestStoredPagesRebind(t *testing.T) {
	store := func(t *testing.T, page PageID, r Record) Record {
		t.Helper()
		data, err := Normalize(page, r).Encode()
		require.NoError(t, err)
		stored, err := DecodeRecord(data)
		require.NoError(t, err)
		return stored
	}

	t.Run("variation options without exclusions", func(t *testing.T) {
		stored := store(t, VariationOptions, Record{"option": {"Colour"}, "values": {"Red, Blue"}})
		assert.True(t, stored.Has("excluded"))

		f, err := BindVariationOptions(stored)
		require.NoError(t, err)
		require.Len(t, f.Selections(), 1)
		assert.Equal(t, []string{"Red", "Blue"}, f.Selections()[0].Values)
		assert.Empty(t, f.ExcludedRows())
	})

	t.Run("blank unused variations", func(t *testing.T) {
		f, err := BindUnusedVariations(store(t, UnusedVariations, Record{}))
		require.NoError(t, err)
		assert.Empty(t, f.ExcludedRows())
	})

	t.Run("basic info with blank optional fields", func(t *testing.T) {
		f, err := BindBasicInfo(store(t, BasicInfo, Record{"name": {"Lamp"}}))
		require.NoError(t, err)
		assert.Equal(t, "Lamp", f.Name)
		assert.Empty(t, f.Department)
	})
}
