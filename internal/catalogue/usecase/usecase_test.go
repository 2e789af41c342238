package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/cataloguetest"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/usecase"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/memdb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRange(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()

	pr, err := env.UC.CreateRange(ctx, &dto.CreateRangeInput{Name: "  Red Widget ", ManagedByID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "Red Widget", pr.Name)
	assert.Equal(t, model.RangeStatusCreating, pr.Status)
	assert.Regexp(t, catalogue.RangeSKUPattern, pr.SKU)
	require.NotNil(t, pr.ManagedByID)
	assert.Equal(t, "u1", *pr.ManagedByID)

	_, err = env.UC.CreateRange(ctx, &dto.CreateRangeInput{Name: " "})
	assert.ErrorIs(t, err, apperr.InvalidInput)
	assert.Contains(t, apperr.FieldErrors(err), "name")
}

func TestCreateRangeSKUSaturated(t *testing.T) {
	env := cataloguetest.NewEnv(t, usecase.WithSKUSource(func() string { return "AAA_BBB_CCC" }))
	ctx := context.Background()

	first, err := env.UC.CreateRange(ctx, &dto.CreateRangeInput{Name: "First"})
	require.NoError(t, err)
	assert.Equal(t, "RNG_AAA_BBB_CCC", first.SKU)

	_, err = env.UC.CreateRange(ctx, &dto.CreateRangeInput{Name: "Second"})
	assert.ErrorIs(t, err, apperr.ResourceExhausted)

	all, err := env.Repo.AllRanges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCompleteRangeRejectsSingleValueOption(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()

	pr, err := env.UC.CreateRange(ctx, &dto.CreateRangeInput{Name: "Mug"})
	require.NoError(t, err)
	colour, err := env.UC.GetOrCreateOption(ctx, "Colour")
	require.NoError(t, err)
	red, err := env.UC.GetOrCreateOptionValue(ctx, colour.ID, "Red")
	require.NoError(t, err)
	require.NoError(t, env.Repo.ReplaceRangeOptions(ctx, pr.ID, []model.RangeOption{
		{ID: uuid.New().String(), OptionID: colour.ID, Variation: true},
	}))
	p := &model.Product{BaseModel: model.BaseModel{ID: uuid.New().String()}, SKU: "AAA_AAA_AAA", RangeID: pr.ID}
	require.NoError(t, env.Repo.CreateProduct(ctx, p))
	require.NoError(t, env.Repo.ReplaceProductValueLinks(ctx, p.ID, []string{red.ID}))

	err = env.UC.CompleteRange(ctx, pr.ID, "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.InvalidState)
	assert.Contains(t, apperr.Message(err), "Option Colour must have at least two values")

	got, err := env.UC.GetRange(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RangeStatusCreating, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func TestCompleteRangeStampsCompletion(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	pr := env.SeedRange(t, "Tee", cataloguetest.OptionSpec{Name: "Colour", Values: []string{"Red", "Blue"}},
		cataloguetest.OptionSpec{Name: "Size", Values: []string{"S", "M"}})

	assert.Equal(t, model.RangeStatusComplete, pr.Status)
	require.NotNil(t, pr.CompletedAt)
	require.NotNil(t, pr.CompletedByID)
	assert.Equal(t, "seed", *pr.CompletedByID)

	detail, err := env.UC.GetRangeDetail(context.Background(), pr.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Products, 4)
	assert.Equal(t, []dto.OptionValues{
		{Option: "Colour", Values: []string{"Red", "Blue"}},
		{Option: "Size", Values: []string{"S", "M"}},
	}, detail.VariationOptionValues)
	assert.Equal(t, map[string]string{"Colour": "Red", "Size": "S"}, detail.Products[0].VariationKey)
}

func TestRecordRangeError(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()

	creating, err := env.UC.CreateRange(ctx, &dto.CreateRangeInput{Name: "Broken"})
	require.NoError(t, err)
	require.NoError(t, env.UC.RecordRangeError(ctx, creating.ID, "platform timeout"))
	got, _ := env.UC.GetRange(ctx, creating.ID)
	assert.Equal(t, model.RangeStatusError, got.Status)
	assert.Equal(t, "platform timeout", got.ErrorMessage)

	complete := env.SeedRange(t, "Done")
	require.NoError(t, env.UC.RecordRangeError(ctx, complete.ID, "push failed"))
	got, _ = env.UC.GetRange(ctx, complete.ID)
	assert.Equal(t, model.RangeStatusComplete, got.Status)
	assert.Equal(t, "push failed", got.ErrorMessage)

	assert.ErrorIs(t, env.UC.RecordRangeError(ctx, "missing", "x"), apperr.NotFound)
}

func TestAllocateBarcode(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()

	require.NoError(t, env.UC.ProvisionBarcodes(ctx, []string{"5012345678900", "5012345678901"}))

	code, err := env.UC.AllocateBarcode(ctx, &dto.AllocateBarcodeInput{UserID: "u1", UsedFor: "AAA_AAA_AAA"})
	require.NoError(t, err)
	assert.Equal(t, "5012345678900", code)

	codes, err := env.Repo.AllBarcodes(ctx)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.False(t, codes[0].Available)
	assert.NotNil(t, codes[0].UsedAt)
	require.NotNil(t, codes[0].UsedFor)
	assert.Equal(t, "AAA_AAA_AAA", *codes[0].UsedFor)
	assert.True(t, codes[1].Available)
}

func TestProvisionBarcodesValidates(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()

	err := env.UC.ProvisionBarcodes(ctx, []string{"123", "5012345678900"})
	assert.ErrorIs(t, err, apperr.InvalidInput)

	require.NoError(t, env.UC.ProvisionBarcodes(ctx, []string{"5012345678900"}))
	err = env.UC.ProvisionBarcodes(ctx, []string{"5012345678900"})
	assert.ErrorIs(t, err, apperr.InvalidInput)
}

func TestAllocateBarcodeConcurrentSingleRowPool(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()
	require.NoError(t, env.UC.ProvisionBarcodes(ctx, []string{"5012345678900"}))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	codes := make([]string, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i], errs[i] = env.UC.AllocateBarcode(ctx, &dto.AllocateBarcodeInput{UserID: "u"})
		}()
	}
	wg.Wait()

	var ok, exhausted int
	for i, err := range errs {
		switch {
		case err == nil:
			ok++
			assert.Equal(t, "5012345678900", codes[i])
		case apperr.KindOf(err) == apperr.ResourceExhausted:
			exhausted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, exhausted)
}

func TestSetStockLevelChainsHistory(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Lamp")
	products, err := env.Repo.ListProducts(ctx, pr.ID)
	require.NoError(t, err)
	productID := products[0].ID

	level, err := env.UC.StockLevel(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, level)

	first, err := env.UC.SetStockLevel(ctx, &dto.SetStockLevelInput{ProductID: productID, StockLevel: 10, Source: model.StockSourceInitial})
	require.NoError(t, err)
	assert.Nil(t, first.PreviousChangeID)

	second, err := env.UC.SetStockLevel(ctx, &dto.SetStockLevelInput{ProductID: productID, StockLevel: 7, Source: model.StockSourceOrder, UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, second.PreviousChangeID)
	assert.Equal(t, first.ID, *second.PreviousChangeID)

	level, err = env.UC.StockLevel(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 7, level)

	_, err = env.UC.SetStockLevel(ctx, &dto.SetStockLevelInput{ProductID: productID, StockLevel: -1, Source: model.StockSourceUser})
	assert.ErrorIs(t, err, apperr.InvalidInput)
	_, err = env.UC.SetStockLevel(ctx, &dto.SetStockLevelInput{ProductID: "missing", StockLevel: 1, Source: model.StockSourceUser})
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestSetProductBaysRecordsHistory(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Rug")
	products, _ := env.Repo.ListProducts(ctx, pr.ID)
	productID := products[0].ID

	a := &model.Bay{ID: uuid.New().String(), Name: "A-01", Warehouse: "Main", Active: true}
	b := &model.Bay{ID: uuid.New().String(), Name: "B-07", Warehouse: "Main", Active: true}
	require.NoError(t, env.Repo.CreateBay(ctx, a))
	require.NoError(t, env.Repo.CreateBay(ctx, b))

	require.NoError(t, env.UC.SetProductBays(ctx, &dto.SetProductBaysInput{ProductID: productID, BayIDs: []string{a.ID}, UserID: "u1"}))
	require.NoError(t, env.UC.SetProductBays(ctx, &dto.SetProductBaysInput{ProductID: productID, BayIDs: []string{b.ID}, UserID: "u1"}))

	bays, err := env.Repo.ListProductBays(ctx, productID)
	require.NoError(t, err)
	require.Len(t, bays, 1)
	assert.Equal(t, "B-07", bays[0].Name)

	var changes []model.BayChange
	env.DB.Read(ctx, func(s *memdb.State) {
		for _, h := range s.BayHistory {
			changes = append(changes, h.Change)
		}
	})
	assert.ElementsMatch(t, []model.BayChange{model.BayAdded, model.BayRemoved, model.BayAdded}, changes)

	err = env.UC.SetProductBays(ctx, &dto.SetProductBaysInput{ProductID: productID, BayIDs: []string{"nope"}})
	assert.ErrorIs(t, err, apperr.InvalidInput)
}

func TestGetOrCreateOptionValueIsIdempotent(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()

	size, err := env.UC.GetOrCreateOption(ctx, "Size")
	require.NoError(t, err)
	again, err := env.UC.GetOrCreateOption(ctx, "Size")
	require.NoError(t, err)
	assert.Equal(t, size.ID, again.ID)

	s1, err := env.UC.GetOrCreateOptionValue(ctx, size.ID, "S")
	require.NoError(t, err)
	m, err := env.UC.GetOrCreateOptionValue(ctx, size.ID, "M")
	require.NoError(t, err)
	s2, err := env.UC.GetOrCreateOptionValue(ctx, size.ID, " S ")
	require.NoError(t, err)
	assert.Equal(t, s1.ID, s2.ID)

	values, err := env.UC.ListOptionValues(ctx, size.ID)
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, []string{s1.ID, m.ID}, []string{values[0].ID, values[1].ID})

	_, err = env.UC.GetOrCreateOptionValue(ctx, "missing", "X")
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestListLookupsRejectsUnknownKind(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()
	require.NoError(t, env.Repo.CreateLookup(ctx, model.LookupBrand, &model.Lookup{ID: "b1", Name: "Acme", Active: true}))
	require.NoError(t, env.Repo.CreateLookup(ctx, model.LookupBrand, &model.Lookup{ID: "b2", Name: "Old", Active: false}))

	brands, err := env.UC.ListLookups(ctx, model.LookupBrand)
	require.NoError(t, err)
	require.Len(t, brands, 1)
	assert.Equal(t, "Acme", brands[0].Name)

	_, err = env.UC.ListLookups(ctx, model.LookupKind("colour"))
	assert.ErrorIs(t, err, apperr.NotFound)
}

func TestCreateRangeUsesClock(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	env := cataloguetest.NewEnv(t, usecase.WithClock(func() time.Time { return at }))

	pr, err := env.UC.CreateRange(context.Background(), &dto.CreateRangeInput{Name: "Clocked"})
	require.NoError(t, err)
	assert.Equal(t, at, pr.CreatedAt)
}
