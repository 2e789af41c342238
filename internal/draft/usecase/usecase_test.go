package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/cataloguetest"
	catdto "github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/draft/drafttest"
	"github.com/fekuna/omnipos-backoffice/internal/draft/dto"
	"github.com/fekuna/omnipos-backoffice/internal/draft/usecase"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/memdb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	colourSize = []cataloguetest.OptionSpec{
		{Name: "Colour", Values: []string{"Red", "Blue"}},
		{Name: "Size", Values: []string{"S", "M"}},
	}
	colour = []cataloguetest.OptionSpec{{Name: "Colour", Values: []string{"Red", "Blue"}}}
)

func variationKeys(t *testing.T, tree *catalogue.Tree) []string {
	t.Helper()
	keys := make([]string, 0, len(tree.Products))
	for _, p := range tree.Products {
		keys = append(keys, tree.VariationKey(p.ID).String())
	}
	return keys
}

func liveTree(t *testing.T, env *drafttest.Env, rangeID string) *catalogue.Tree {
	t.Helper()
	tree, err := env.UC.LoadTree(context.Background(), rangeID)
	require.NoError(t, err)
	return tree
}

func TestCopyRangeMarksRowsPreExisting(t *testing.T) {
	env := drafttest.NewEnv(t)
	pr := env.SeedRange(t, "Lamp", colourSize...)

	d := env.Open(t, pr.ID, "u1")
	assert.Equal(t, pr.ID, d.LiveRangeID())
	assert.True(t, d.Range.PreExisting)
	assert.Equal(t, pr.Name, d.Range.Name)
	require.Len(t, d.Products, 4)
	for _, p := range d.Products {
		assert.True(t, p.PreExisting)
		require.NotNil(t, p.OriginalProductID)
	}
	assert.Len(t, d.PreExistingOptions(), 2)
	assert.Equal(t, variationKeys(t, liveTree(t, env, pr.ID)), variationKeys(t, d.Tree))
	assert.True(t, d.ValidVariations())
}

func TestOpenEdit(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colour...)

	first, err := env.Draft.OpenEdit(ctx, pr.ID, "u1")
	require.NoError(t, err)

	again, err := env.Draft.OpenEdit(ctx, pr.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = env.Draft.OpenEdit(ctx, pr.ID, "u2")
	require.ErrorIs(t, err, apperr.ConflictingEdit)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "u1", appErr.UserID)

	_, err = env.Draft.EditFor(ctx, pr.ID, "u2")
	assert.ErrorIs(t, err, apperr.ConflictingEdit)
	edit, err := env.Draft.EditFor(ctx, pr.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, edit.ID)
}

func TestCopyThenPromoteRoundTrip(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colourSize...)
	before := liveTree(t, env, pr.ID)

	d := env.Open(t, pr.ID, "u1")
	promoted, err := env.Draft.Promote(ctx, d.Edit.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RangeStatusComplete, promoted.Status)
	assert.Equal(t, pr.SKU, promoted.SKU)
	assert.Equal(t, pr.CompletedAt, promoted.CompletedAt)

	after := liveTree(t, env, pr.ID)
	assert.Equal(t, variationKeys(t, before), variationKeys(t, after))
	require.Len(t, after.Products, len(before.Products))
	for i := range before.Products {
		assert.Equal(t, before.Products[i].ID, after.Products[i].ID)
		assert.Equal(t, before.Products[i].SKU, after.Products[i].SKU)
		assert.True(t, before.Products[i].Price.Decimal.Equal(after.Products[i].Price.Decimal))
		assert.Equal(t, before.Products[i].SupplierSKU, after.Products[i].SupplierSKU)
	}

	gone, err := env.Drafts.FindPartialRangeByID(ctx, d.Range.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	_, err = env.Draft.LoadDraft(ctx, d.Edit.ID)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestPromoteInsertsNewAndUpdatesExisting(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colour...)
	before := liveTree(t, env, pr.ID)

	d := env.Open(t, pr.ID, "u1")
	green, err := env.Draft.CreateProduct(ctx, d.Edit.ID, &dto.NewProductInput{
		ValueIDs: []string{env.ValueID(t, "Colour", "Green")},
	})
	require.NoError(t, err)
	assert.False(t, green.PreExisting)
	assert.Regexp(t, catalogue.ProductSKUPattern, green.SKU)

	red := d.Products[0]
	red.Price = decimal.NewNullDecimal(decimal.RequireFromString("12.50"))
	require.NoError(t, env.Draft.UpdateProduct(ctx, d.Edit.ID, &red))

	_, err = env.Draft.Promote(ctx, d.Edit.ID, "u1")
	require.NoError(t, err)

	after := liveTree(t, env, pr.ID)
	require.Len(t, after.Products, 3)
	assert.Equal(t, before.Products[0].ID, after.Products[0].ID)
	assert.Equal(t, "12.5", after.Products[0].Price.Decimal.String())
	assert.Equal(t, before.Products[1].ID, after.Products[1].ID)
	assert.Equal(t, green.SKU, after.Products[2].SKU)
	assert.Equal(t, "Colour=Green", after.VariationKey(after.Products[2].ID).String())
}

func TestPromoteRejectsSharedVariationKey(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colour...)
	before := liveTree(t, env, pr.ID)

	d := env.Open(t, pr.ID, "u1")
	require.NoError(t, env.Draft.SetProductValues(ctx, d.Edit.ID, d.Products[1].ID, []string{env.ValueID(t, "Colour", "Red")}))

	_, err := env.Draft.Promote(ctx, d.Edit.ID, "u1")
	require.ErrorIs(t, err, apperr.InvalidState)
	assert.Contains(t, apperr.Message(err), "share the variation")

	assert.Equal(t, variationKeys(t, before), variationKeys(t, liveTree(t, env, pr.ID)))
	live, err := env.UC.GetRange(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RangeStatusComplete, live.Status)

	_, err = env.Draft.LoadDraft(ctx, d.Edit.ID)
	assert.NoError(t, err)
}

func TestPromoteRejectsSingleValueOption(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()

	edit, err := env.Draft.StartRange(ctx, &catdto.CreateRangeInput{Name: "Red Widget"}, "u1")
	require.NoError(t, err)
	require.NoError(t, env.Draft.SetRangeOptions(ctx, edit.ID, []dto.RangeOptionInput{
		{OptionID: env.OptionID(t, "Colour"), Variation: true},
	}))
	_, err = env.Draft.CreateProduct(ctx, edit.ID, &dto.NewProductInput{ValueIDs: []string{env.ValueID(t, "Colour", "Red")}})
	require.NoError(t, err)

	_, err = env.Draft.Promote(ctx, edit.ID, "u1")
	require.ErrorIs(t, err, apperr.InvalidState)
	assert.Contains(t, apperr.Message(err), "Option Colour must have at least two values")

	live, err := env.UC.GetRange(ctx, *edit.ProductRangeID)
	require.NoError(t, err)
	assert.Equal(t, model.RangeStatusCreating, live.Status)
	assert.Empty(t, live.ErrorMessage)
}

func TestPromoteRejectsBarcodeInUse(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	other := env.SeedRange(t, "Chair")
	otherProducts, err := env.Repo.ListProducts(ctx, other.ID)
	require.NoError(t, err)
	otherProducts[0].Barcode = "12345678"
	require.NoError(t, env.Repo.UpdateProduct(ctx, &otherProducts[0]))

	pr := env.SeedRange(t, "Lamp", colour...)
	d := env.Open(t, pr.ID, "u1")
	p := d.Products[0]
	p.Barcode = "12345678"
	require.NoError(t, env.Draft.UpdateProduct(ctx, d.Edit.ID, &p))

	_, err = env.Draft.Promote(ctx, d.Edit.ID, "u1")
	require.ErrorIs(t, err, apperr.InvalidState)
	assert.Contains(t, apperr.Message(err), "12345678")

	live, err := env.Repo.ListProducts(ctx, pr.ID)
	require.NoError(t, err)
	assert.Empty(t, live[0].Barcode)
}

type failingLive struct {
	catalogue.Repository
}

func (failingLive) CreateProduct(context.Context, *model.Product) error {
	return errors.New("connection reset")
}

func TestPromoteRecordsUnexpectedFailure(t *testing.T) {
	cat := cataloguetest.NewEnv(t)
	env := drafttest.NewEnvWithLive(t, cat, failingLive{Repository: cat.Repo})
	ctx := context.Background()

	edit, err := env.Draft.StartRange(ctx, &catdto.CreateRangeInput{Name: "Red Widget"}, "u1")
	require.NoError(t, err)
	_, err = env.Draft.CreateProduct(ctx, edit.ID, &dto.NewProductInput{})
	require.NoError(t, err)

	_, err = env.Draft.Promote(ctx, edit.ID, "u1")
	require.Error(t, err)
	assert.Nil(t, apperr.KindOf(err))

	live, err := env.UC.GetRange(ctx, *edit.ProductRangeID)
	require.NoError(t, err)
	assert.Equal(t, model.RangeStatusError, live.Status)
	assert.Contains(t, live.ErrorMessage, "connection reset")

	d, err := env.Draft.LoadDraft(ctx, edit.ID)
	require.NoError(t, err)
	assert.Len(t, d.Products, 1)
}

func TestDiscardLeavesLiveRange(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colour...)

	d := env.Open(t, pr.ID, "u1")
	require.NoError(t, env.Draft.UpdateRangeDetails(ctx, d.Edit.ID, &dto.RangeDetailsInput{Name: "X"}))
	reloaded, err := env.Draft.LoadDraft(ctx, d.Edit.ID)
	require.NoError(t, err)
	assert.Equal(t, "X", reloaded.Range.Name)

	require.NoError(t, env.Draft.Discard(ctx, d.Edit.ID))

	live, err := env.UC.GetRange(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", live.Name)
	_, err = env.Draft.LoadDraft(ctx, d.Edit.ID)
	assert.ErrorIs(t, err, apperr.NotFound)

	var partials int
	env.DB.Read(ctx, func(s *memdb.State) { partials = len(s.PartialProducts) })
	assert.Zero(t, partials)

	// The range can be opened again, by anyone.
	_, err = env.Draft.OpenEdit(ctx, pr.ID, "u2")
	assert.NoError(t, err)
}

func TestCreateProductSeedsRangeWideValues(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colour...)

	d := env.Open(t, pr.ID, "u1")
	wide := d.RangeWideValues()
	assert.True(t, wide.Has("price"))
	assert.True(t, wide.Has("supplier_sku"))

	p, err := env.Draft.CreateProduct(ctx, d.Edit.ID, &dto.NewProductInput{
		ValueIDs: []string{env.ValueID(t, "Colour", "Green")},
	})
	require.NoError(t, err)
	assert.Equal(t, "9.99", p.Price.Decimal.StringFixed(2))
	assert.Equal(t, "SUP-Lamp", p.SupplierSKU)
	assert.Equal(t, d.Products[len(d.Products)-1].RangeOrder+1, p.RangeOrder)
	assert.Empty(t, p.Barcode)

	d, err = env.Draft.LoadDraft(ctx, d.Edit.ID)
	require.NoError(t, err)
	assert.Contains(t, d.Palette, env.ValueID(t, "Colour", "Green"))

	_, err = env.Draft.CreateProduct(ctx, d.Edit.ID, &dto.NewProductInput{
		ValueIDs: []string{env.ValueID(t, "Colour", "Red"), env.ValueID(t, "Colour", "Blue")},
	})
	assert.ErrorIs(t, err, apperr.InvalidInput)
}

func TestDeleteProduct(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colour...)
	d := env.Open(t, pr.ID, "u1")

	err := env.Draft.DeleteProduct(ctx, d.Edit.ID, d.Products[0].ID)
	assert.ErrorIs(t, err, apperr.InvalidState)

	p, err := env.Draft.CreateProduct(ctx, d.Edit.ID, &dto.NewProductInput{})
	require.NoError(t, err)
	require.NoError(t, env.Draft.DeleteProduct(ctx, d.Edit.ID, p.ID))

	err = env.Draft.DeleteProduct(ctx, d.Edit.ID, p.ID)
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestSetRangeOptionsKeepsPreExisting(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colour...)
	d := env.Open(t, pr.ID, "u1")

	colourID := env.OptionID(t, "Colour")
	sizeID := env.OptionID(t, "Size")
	materialID := env.OptionID(t, "Material")

	err := env.Draft.SetRangeOptions(ctx, d.Edit.ID, []dto.RangeOptionInput{{OptionID: sizeID, Variation: true}})
	assert.ErrorIs(t, err, apperr.InvalidState)

	require.NoError(t, env.Draft.SetRangeOptions(ctx, d.Edit.ID, []dto.RangeOptionInput{
		{OptionID: colourID, Variation: true},
		{OptionID: materialID, Variation: false},
	}))
	d, err = env.Draft.LoadDraft(ctx, d.Edit.ID)
	require.NoError(t, err)
	require.Len(t, d.Tree.ListingOptions(), 1)
	assert.Equal(t, "Material", d.Tree.ListingOptions()[0].Name)
	assert.Len(t, d.PreExistingOptions(), 1)

	require.NoError(t, env.Draft.SetProductValues(ctx, d.Edit.ID, d.Products[0].ID,
		[]string{env.ValueID(t, "Colour", "Red"), env.ValueID(t, "Material", "Oak")}))
	require.NoError(t, env.Draft.SetRangeOptions(ctx, d.Edit.ID, []dto.RangeOptionInput{{OptionID: colourID, Variation: true}}))
	d, err = env.Draft.LoadDraft(ctx, d.Edit.ID)
	require.NoError(t, err)
	assert.Len(t, d.Tree.Links[d.Products[0].ID], 1)
}

func TestListEditsGroupsByManager(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()

	_, err := env.Draft.StartRange(ctx, &catdto.CreateRangeInput{Name: "Mug"}, "alice")
	require.NoError(t, err)
	_, err = env.Draft.StartRange(ctx, &catdto.CreateRangeInput{Name: "Plate", ManagedByID: "bob"}, "alice")
	require.NoError(t, err)
	_, err = env.Draft.StartRange(ctx, &catdto.CreateRangeInput{Name: "Bowl"}, "bob")
	require.NoError(t, err)

	groups, err := env.Draft.ListEdits(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "alice", groups[0].ManagedByID)
	assert.Len(t, groups[0].Edits, 1)
	assert.Equal(t, "bob", groups[1].ManagedByID)
	assert.Len(t, groups[1].Edits, 2)
	for _, e := range groups[1].Edits {
		assert.Equal(t, model.RangeStatusCreating, e.Status)
	}
}

type recordingPublisher struct {
	ranges []string
}

func (p *recordingPublisher) PublishRangePromoted(_ context.Context, rangeID, _ string) error {
	p.ranges = append(p.ranges, rangeID)
	return nil
}

func TestPromotePublishesEvent(t *testing.T) {
	pub := &recordingPublisher{}
	env := drafttest.NewEnv(t, usecase.WithPublisher(pub))
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colour...)
	d := env.Open(t, pr.ID, "u1")

	_, err := env.Draft.Promote(ctx, d.Edit.ID, "u2")
	assert.ErrorIs(t, err, apperr.ConflictingEdit)
	assert.Empty(t, pub.ranges)

	_, err = env.Draft.Promote(ctx, d.Edit.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{pr.ID}, pub.ranges)
}

func TestAdmitOptionValues(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colour...)
	d := env.Open(t, pr.ID, "u1")

	red := env.ValueID(t, "Colour", "Red")
	blue := env.ValueID(t, "Colour", "Blue")
	small := env.ValueID(t, "Size", "S")

	require.NoError(t, env.Draft.AdmitOptionValues(ctx, d.Edit.ID, []string{red, blue, small, blue}))
	reloaded, err := env.Draft.LoadDraft(ctx, d.Edit.ID)
	require.NoError(t, err)
	assert.Subset(t, reloaded.Palette, []string{red, blue, small})

	err = env.Draft.AdmitOptionValues(ctx, d.Edit.ID, []string{red, "missing"})
	assert.ErrorIs(t, err, apperr.InvalidInput)
}

func TestPromoteSwapsBarcodes(t *testing.T) {
	env := drafttest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp", colour...)
	live, err := env.Repo.ListProducts(ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, live, 2)
	barcodes := map[string]string{live[0].ID: "11111111", live[1].ID: "22222222"}
	for i := range live {
		live[i].Barcode = barcodes[live[i].ID]
		require.NoError(t, env.Repo.UpdateProduct(ctx, &live[i]))
	}

	d := env.Open(t, pr.ID, "u1")
	for _, p := range d.Products {
		if p.Barcode == "11111111" {
			p.Barcode = "22222222"
		} else {
			p.Barcode = "11111111"
		}
		require.NoError(t, env.Draft.UpdateProduct(ctx, d.Edit.ID, &p))
	}

	_, err = env.Draft.Promote(ctx, d.Edit.ID, "u1")
	require.NoError(t, err)

	after, err := env.Repo.ListProducts(ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	for _, p := range after {
		want := "22222222"
		if barcodes[p.ID] == "22222222" {
			want = "11111111"
		}
		assert.Equal(t, want, p.Barcode, p.SKU)
	}
}
