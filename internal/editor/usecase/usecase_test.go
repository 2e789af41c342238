package usecase_test

import (
	"testing"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/cataloguetest"
	"github.com/fekuna/omnipos-backoffice/internal/draft"
	"github.com/fekuna/omnipos-backoffice/internal/editor"
	"github.com/fekuna/omnipos-backoffice/internal/editor/editortest"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDraft(t *testing.T, env *editortest.Env, rangeID, userID string) *draft.Draft {
	t.Helper()
	ctx := editortest.Ctx()
	edit, err := env.Draft.EditFor(ctx, rangeID, userID)
	require.NoError(t, err)
	d, err := env.Draft.LoadDraft(ctx, edit.ID)
	require.NoError(t, err)
	return d
}

func submit(t *testing.T, env *editortest.Env, rangeID string, page editor.PageID, r editor.Record) editor.PageID {
	t.Helper()
	out, err := env.Editor.SubmitPage(editortest.Ctx(), rangeID, page, "u1", r, editor.Intent{})
	require.NoError(t, err)
	return out.Next
}

func variationRecord(excluded ...string) editor.Record {
	return editor.Record{
		"option":   {"Colour", "Size"},
		"values":   {"Red,Blue", "S,M"},
		"excluded": excluded,
	}
}

func TestStartOpensRangeOnInitialVariation(t *testing.T) {
	env := editortest.NewEnv(t)
	ctx := editortest.Ctx()

	out, err := env.Editor.Start(ctx, "u1", editor.Record{"name": {"Red Widget"}, "department": {"Home"}})
	require.NoError(t, err)
	assert.Equal(t, editor.ProductInfo, out.Next)

	pr, err := env.UC.GetRange(ctx, out.RangeID)
	require.NoError(t, err)
	assert.Equal(t, model.RangeStatusCreating, pr.Status)
	assert.Equal(t, "Red Widget", pr.Name)
	require.NotNil(t, pr.ManagedByID)
	assert.Equal(t, "u1", *pr.ManagedByID)

	data, err := env.Sessions.Load(ctx, editortest.SessionID, session.EditProductKey(out.RangeID))
	require.NoError(t, err)
	assert.Contains(t, data, string(editor.BasicInfo))
}

func TestStartKeepsInvalidFormInSession(t *testing.T) {
	env := editortest.NewEnv(t)
	ctx := editortest.Ctx()

	_, err := env.Editor.Start(ctx, "u1", editor.Record{"description": {"half typed"}})
	require.ErrorIs(t, err, apperr.InvalidInput)
	assert.Contains(t, apperr.FieldErrors(err), "name")

	view, err := env.Editor.StartForm(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"half typed"}, view.Data["description"])

	_, err = env.Editor.Start(ctx, "u1", editor.Record{"name": {"Lamp"}})
	require.NoError(t, err)
	view, err = env.Editor.StartForm(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.Data)
}

func TestSingleProductFlow(t *testing.T) {
	env := editortest.NewEnv(t)
	ctx := editortest.Ctx()
	rangeID := env.Start(t, "u1", "Red Widget")

	next := submit(t, env, rangeID, editor.ProductInfo, editor.Record{"price": {"9.99"}, "supplier_sku": {"W-1"}})
	assert.Equal(t, editor.ListingOptions, next)

	d := loadDraft(t, env, rangeID, "u1")
	require.Len(t, d.Products, 1)
	assert.Equal(t, "9.99", d.Products[0].Price.Decimal.StringFixed(2))
	assert.Equal(t, "W-1", d.Products[0].SupplierSKU)

	next = submit(t, env, rangeID, editor.ListingOptions, editor.Record{
		"listing_option": {"Material"},
		"listing_value":  {"Steel"},
	})
	assert.Equal(t, editor.Finish, next)

	pr, err := env.Editor.Complete(ctx, rangeID, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RangeStatusComplete, pr.Status)

	tree, err := env.UC.LoadTree(ctx, rangeID)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"Material": {"Steel"}}, catalogue.ValueNames(tree.ListingOptionValues()))
	assert.Empty(t, tree.VariationOptions())

	data, err := env.Sessions.Load(ctx, editortest.SessionID, session.EditProductKey(rangeID))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestVariationFlowWithExclusion(t *testing.T) {
	env := editortest.NewEnv(t)
	ctx := editortest.Ctx()
	rangeID := env.Start(t, "u1", "Shirt")

	next := submit(t, env, rangeID, editor.VariationOptions, variationRecord("Red,M"))
	assert.Equal(t, editor.VariationInfo, next)

	d := loadDraft(t, env, rangeID, "u1")
	require.Len(t, d.Products, 3)
	rec := editor.Record{}
	for i, p := range d.Products {
		rec["barcode:"+p.ID] = []string{[]string{"50000001", "50000002", "50000003"}[i]}
		rec["price:"+p.ID] = []string{"12.50"}
	}
	next = submit(t, env, rangeID, editor.VariationInfo, rec)
	assert.Equal(t, editor.Finish, next)

	_, err := env.Editor.Complete(ctx, rangeID, "u1")
	require.NoError(t, err)

	tree, err := env.UC.LoadTree(ctx, rangeID)
	require.NoError(t, err)
	assert.Len(t, tree.Products, 3)
	assert.Equal(t, map[string][]string{"Colour": {"Red", "Blue"}, "Size": {"S", "M"}},
		catalogue.ValueNames(tree.VariationOptionValues()))
	for _, p := range tree.Products {
		assert.NotEmpty(t, p.Barcode)
		assert.Equal(t, "12.50", p.Price.Decimal.StringFixed(2))
	}
}

func TestVariationInfoRejectsDuplicateBarcodes(t *testing.T) {
	env := editortest.NewEnv(t)
	ctx := editortest.Ctx()
	rangeID := env.Start(t, "u1", "Shirt")
	submit(t, env, rangeID, editor.VariationOptions, variationRecord())

	d := loadDraft(t, env, rangeID, "u1")
	rec := editor.Record{
		"barcode:" + d.Products[0].ID: {"50000001"},
		"barcode:" + d.Products[1].ID: {"50000001"},
		"price:" + d.Products[2].ID:   {"1.999"},
	}
	_, err := env.Editor.SubmitPage(ctx, rangeID, editor.VariationInfo, "u1", rec, editor.Intent{})
	require.ErrorIs(t, err, apperr.InvalidInput)
	fields := apperr.FieldErrors(err)
	assert.Contains(t, fields, "barcode:"+d.Products[1].ID)
	assert.Contains(t, fields, "price:"+d.Products[2].ID)

	d = loadDraft(t, env, rangeID, "u1")
	for _, p := range d.Products {
		assert.Empty(t, p.Barcode)
	}
	view, err := env.Editor.ShowPage(ctx, rangeID, editor.VariationOptions, "u1")
	require.NoError(t, err)
	assert.False(t, view.Pages[5].Stored, "variation_info must not be stored after a rejected post")
}

func TestUnusedVariationsRebuildsFromStoredOptions(t *testing.T) {
	env := editortest.NewEnv(t)
	rangeID := env.Start(t, "u1", "Shirt")

	submit(t, env, rangeID, editor.ProductInfo, editor.Record{"price": {"5.00"}})
	next := submit(t, env, rangeID, editor.VariationOptions, variationRecord())
	assert.Equal(t, editor.UnusedVariations, next)

	d := loadDraft(t, env, rangeID, "u1")
	require.Len(t, d.Products, 4)
	for _, p := range d.Products {
		assert.Equal(t, "5.00", p.Price.Decimal.StringFixed(2))
	}

	submit(t, env, rangeID, editor.UnusedVariations, editor.Record{"excluded": {"Blue,M"}})
	assert.Len(t, loadDraft(t, env, rangeID, "u1").Products, 3)

	submit(t, env, rangeID, editor.UnusedVariations, editor.Record{})
	d = loadDraft(t, env, rangeID, "u1")
	assert.Len(t, d.Products, 4)
	assert.True(t, d.ValidVariations())
}

func TestShowPageRequiresPrerequisites(t *testing.T) {
	env := editortest.NewEnv(t)
	ctx := editortest.Ctx()
	rangeID := env.Start(t, "u1", "Lamp")

	_, err := env.Editor.ShowPage(ctx, rangeID, editor.VariationInfo, "u1")
	assert.ErrorIs(t, err, apperr.InvalidState)

	_, err = env.Editor.SubmitPage(ctx, rangeID, editor.VariationInfo, "u1", editor.Record{}, editor.Intent{})
	assert.ErrorIs(t, err, apperr.InvalidState)

	view, err := env.Editor.ShowPage(ctx, rangeID, editor.BasicInfo, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lamp"}, view.Data["name"])
	assert.Equal(t, string(editor.TypeUnknown), view.ProductType)
	assert.Equal(t, "Lamp", view.Range.Name)
}

func TestResumeOpensLiveRange(t *testing.T) {
	env := editortest.NewEnv(t)
	ctx := editortest.Ctx()
	pr := env.SeedRange(t, "Mug", cataloguetest.OptionSpec{Name: "Colour", Values: []string{"Red", "Blue"}})

	page, err := env.Editor.Resume(ctx, pr.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, editor.BasicInfo, page)

	_, err = env.Editor.Resume(ctx, pr.ID, "u2")
	assert.ErrorIs(t, err, apperr.ConflictingEdit)

	submit(t, env, pr.ID, editor.BasicInfo, editor.Record{"name": {"Mug"}})
	page, err = env.Editor.Resume(ctx, pr.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, editor.ProductInfo, page)

	view, err := env.Editor.ShowPage(ctx, pr.ID, editor.ProductInfo, "u1")
	require.NoError(t, err)
	assert.Equal(t, string(editor.TypeVariation), view.ProductType)
	require.Len(t, view.Products, 2)
	assert.True(t, view.Products[0].PreExisting)
	assert.Equal(t, "Red", view.Products[0].Values["Colour"])
}

func TestDiscardKeepsLiveRange(t *testing.T) {
	env := editortest.NewEnv(t)
	ctx := editortest.Ctx()
	pr := env.SeedRange(t, "Mug")

	_, err := env.Editor.Resume(ctx, pr.ID, "u1")
	require.NoError(t, err)
	submit(t, env, pr.ID, editor.BasicInfo, editor.Record{"name": {"X"}})

	require.NoError(t, env.Editor.Discard(ctx, pr.ID, "u1"))

	live, err := env.UC.GetRange(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mug", live.Name)
	_, err = env.Draft.EditFor(ctx, pr.ID, "u1")
	assert.ErrorIs(t, err, apperr.NotFound)

	data, err := env.Sessions.Load(ctx, editortest.SessionID, session.EditProductKey(pr.ID))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestSubmitProduct(t *testing.T) {
	env := editortest.NewEnv(t)
	ctx := editortest.Ctx()
	rangeID := env.Start(t, "u1", "Shirt")
	submit(t, env, rangeID, editor.VariationOptions, variationRecord())

	d := loadDraft(t, env, rangeID, "u1")
	target := d.Products[2]
	out, err := env.Editor.SubmitProduct(ctx, target.ID, "u1", editor.Record{
		"barcode":        {"50000009"},
		"price":          {"3.00"},
		"listing_option": {"Material"},
		"listing_value":  {"Cotton"},
	})
	require.NoError(t, err)
	assert.Equal(t, rangeID, out.RangeID)
	assert.Equal(t, editor.VariationInfo, out.Next)

	view, err := env.Editor.ShowProduct(ctx, target.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "50000009", view.Product.Barcode)
	assert.Equal(t, "Cotton", view.Product.Values["Material"])
	assert.Equal(t, d.Tree.VariationKey(target.ID).Map()["Colour"], view.Product.Values["Colour"])

	_, err = env.Editor.SubmitProduct(ctx, target.ID, "u2", editor.Record{"price": {"1.00"}})
	assert.ErrorIs(t, err, apperr.ConflictingEdit)
}

func TestContinueSplitsOwnEdits(t *testing.T) {
	env := editortest.NewEnv(t)
	ctx := editortest.Ctx()
	env.Start(t, "u1", "Mine")
	env.Start(t, "u2", "Theirs")

	view, err := env.Editor.Continue(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, view.Mine, 1)
	assert.Equal(t, "Mine", view.Mine[0].Name)
	require.Len(t, view.Others, 1)
	assert.Equal(t, "u2", view.Others[0].ManagedByID)
	assert.Equal(t, "Theirs", view.Others[0].Edits[0].Name)
}
