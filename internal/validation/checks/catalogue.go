package checks

import (
	"context"
	"slices"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/validation"
)

type rangeTree struct {
	Range model.ProductRange
	Tree  *catalogue.Tree
}

func ranges(d Deps) validation.LoadFunc {
	return func(ctx context.Context) ([]validation.Validator, error) {
		all, err := d.Repo.AllRanges(ctx)
		if err != nil {
			return nil, err
		}
		products, err := d.Repo.AllProducts(ctx)
		if err != nil {
			return nil, err
		}
		count := map[string]int{}
		for _, p := range products {
			count[p.RangeID]++
		}
		var trees []rangeTree
		for _, r := range all {
			if r.Status != model.RangeStatusComplete {
				continue
			}
			tree, err := d.Catalogue.LoadTree(ctx, r.ID)
			if err != nil {
				return nil, err
			}
			trees = append(trees, rangeTree{Range: r, Tree: tree})
		}

		return []validation.Validator{
			validation.NewObjectValidator("ranges", all,
				validation.Check[model.ProductRange]{Name: "sku_format", Level: validation.Critical,
					Test: func(r model.ProductRange) (string, bool) {
						if catalogue.RangeSKUPattern.MatchString(r.SKU) {
							return pass()
						}
						return fail("Range %s has malformed SKU %q", r.ID, r.SKU)
					}},
				validation.Check[model.ProductRange]{Name: "has_products", Level: validation.Error,
					Test: func(r model.ProductRange) (string, bool) {
						if r.Status != model.RangeStatusComplete || count[r.ID] > 0 {
							return pass()
						}
						return fail("Range %s is complete but has no products", r.SKU)
					}},
				validation.Check[model.ProductRange]{Name: "platform_error", Level: validation.Error,
					Test: func(r model.ProductRange) (string, bool) {
						if r.ErrorMessage == "" {
							return pass()
						}
						return fail("Range %s failed to reach the platform: %s", r.SKU, r.ErrorMessage)
					}},
				validation.Check[model.ProductRange]{Name: "department", Level: validation.Warning,
					Test: func(r model.ProductRange) (string, bool) {
						if r.Status != model.RangeStatusComplete || strings.TrimSpace(r.Department) != "" {
							return pass()
						}
						return fail("Range %s has no department", r.SKU)
					}},
				validation.Check[model.ProductRange]{Name: "name_whitespace", Level: validation.Formatting,
					Test: func(r model.ProductRange) (string, bool) {
						if !untidy(r.Name) {
							return pass()
						}
						return fail("Range %s name %q has stray whitespace", r.SKU, r.Name)
					}},
			),
			validation.NewObjectValidator("complete_range_variations", trees,
				validation.Check[rangeTree]{Name: "valid_variations", Level: validation.Critical,
					Test: func(rt rangeTree) (string, bool) {
						if err := rt.Tree.CheckVariations("checks.valid_variations"); err != nil {
							return fail("Range %s: %s", rt.Range.SKU, apperr.Message(err))
						}
						return pass()
					}},
			),
		}, nil
	}
}

func products(d Deps) validation.LoadFunc {
	return func(ctx context.Context) ([]validation.Validator, error) {
		all, err := d.Repo.AllProducts(ctx)
		if err != nil {
			return nil, err
		}
		rs, err := d.Repo.AllRanges(ctx)
		if err != nil {
			return nil, err
		}
		complete := map[string]bool{}
		for _, r := range rs {
			complete[r.ID] = r.Status == model.RangeStatusComplete
		}
		byBarcode := map[string][]string{}
		for _, p := range all {
			if p.Barcode != "" {
				byBarcode[p.Barcode] = append(byBarcode[p.Barcode], p.SKU)
			}
		}
		listed := func(p model.Product) bool {
			return complete[p.RangeID] && !p.IsArchived
		}

		return []validation.Validator{
			validation.NewObjectValidator("products", all,
				validation.Check[model.Product]{Name: "sku_format", Level: validation.Critical,
					Test: func(p model.Product) (string, bool) {
						if catalogue.ProductSKUPattern.MatchString(p.SKU) {
							return pass()
						}
						return fail("Product %s has malformed SKU %q", p.ID, p.SKU)
					}},
				validation.Check[model.Product]{Name: "unique_barcode", Level: validation.Critical,
					Test: func(p model.Product) (string, bool) {
						skus := byBarcode[p.Barcode]
						if p.Barcode == "" || len(skus) < 2 {
							return pass()
						}
						return fail("Barcode %s is shared by products %s", p.Barcode, strings.Join(skus, ", "))
					}},
				validation.Check[model.Product]{Name: "price_set", Level: validation.Error,
					Test: func(p model.Product) (string, bool) {
						if !listed(p) || p.Price.Valid {
							return pass()
						}
						return fail("Product %s has no price", p.SKU)
					}},
				validation.Check[model.Product]{Name: "price_above_cost", Level: validation.Warning,
					Test: func(p model.Product) (string, bool) {
						if !p.Price.Valid || !p.PurchasePrice.Valid || p.Price.Decimal.GreaterThanOrEqual(p.PurchasePrice.Decimal) {
							return pass()
						}
						return fail("Product %s sells at %s, below its purchase price %s",
							p.SKU, p.Price.Decimal.StringFixed(2), p.PurchasePrice.Decimal.StringFixed(2))
					}},
				validation.Check[model.Product]{Name: "barcode_set", Level: validation.Warning,
					Test: func(p model.Product) (string, bool) {
						if !listed(p) || p.Barcode != "" {
							return pass()
						}
						return fail("Product %s has no barcode", p.SKU)
					}},
			),
		}, nil
	}
}

func optionValues(d Deps) validation.LoadFunc {
	return func(ctx context.Context) ([]validation.Validator, error) {
		values, err := d.Repo.AllOptionValues(ctx)
		if err != nil {
			return nil, err
		}
		options, err := d.Repo.ListOptions(ctx)
		if err != nil {
			return nil, err
		}
		names := map[string]string{}
		for _, o := range options {
			names[o.ID] = o.Name
		}
		perOption := map[string][]string{}
		for _, v := range values {
			perOption[v.OptionID] = append(perOption[v.OptionID], v.Value)
		}

		return []validation.Validator{
			validation.NewObjectValidator("option_values", values,
				validation.Check[model.ProductOptionValue]{Name: "option_exists", Level: validation.Critical,
					Test: func(v model.ProductOptionValue) (string, bool) {
						if _, ok := names[v.OptionID]; ok {
							return pass()
						}
						return fail("Value %q belongs to missing option %s", v.Value, v.OptionID)
					}},
				validation.Check[model.ProductOptionValue]{Name: "not_empty", Level: validation.Error,
					Test: func(v model.ProductOptionValue) (string, bool) {
						if strings.TrimSpace(v.Value) != "" {
							return pass()
						}
						return fail("Option %s has an empty value", names[v.OptionID])
					}},
				validation.Check[model.ProductOptionValue]{Name: "case_duplicate", Level: validation.Warning,
					Test: func(v model.ProductOptionValue) (string, bool) {
						for _, other := range perOption[v.OptionID] {
							if other != v.Value && strings.EqualFold(other, v.Value) {
								pair := []string{other, v.Value}
								slices.Sort(pair)
								return fail("Option %s has values %q and %q differing only in case", names[v.OptionID], pair[0], pair[1])
							}
						}
						return pass()
					}},
				validation.Check[model.ProductOptionValue]{Name: "whitespace", Level: validation.Formatting,
					Test: func(v model.ProductOptionValue) (string, bool) {
						if !untidy(v.Value) {
							return pass()
						}
						return fail("Option %s value %q has stray whitespace", names[v.OptionID], v.Value)
					}},
			),
		}, nil
	}
}

func barcodes(d Deps) validation.LoadFunc {
	return func(ctx context.Context) ([]validation.Validator, error) {
		pool, err := d.Repo.AllBarcodes(ctx)
		if err != nil {
			return nil, err
		}
		products, err := d.Repo.AllProducts(ctx)
		if err != nil {
			return nil, err
		}
		carried := map[string]bool{}
		for _, p := range products {
			carried[p.Barcode] = true
		}

		return []validation.Validator{
			validation.NewObjectValidator("barcode_pool", pool,
				validation.Check[model.Barcode]{Name: "used_stamped", Level: validation.Critical,
					Test: func(b model.Barcode) (string, bool) {
						if b.Available || b.UsedAt != nil {
							return pass()
						}
						return fail("Barcode %s is used but has no used_at", b.Barcode)
					}},
				validation.Check[model.Barcode]{Name: "available_unused", Level: validation.Error,
					Test: func(b model.Barcode) (string, bool) {
						if !b.Available || (b.UsedAt == nil && b.UsedFor == nil) {
							return pass()
						}
						return fail("Barcode %s is available but marked as used", b.Barcode)
					}},
				validation.Check[model.Barcode]{Name: "format", Level: validation.Warning,
					Test: func(b model.Barcode) (string, bool) {
						if barcodePattern.MatchString(b.Barcode) {
							return pass()
						}
						return fail("Barcode %q is not 8 to 14 digits", b.Barcode)
					}},
				validation.Check[model.Barcode]{Name: "carried", Level: validation.Warning,
					Test: func(b model.Barcode) (string, bool) {
						if b.Available || carried[b.Barcode] {
							return pass()
						}
						return fail("Barcode %s was allocated but no product carries it", b.Barcode)
					}},
			),
		}, nil
	}
}
