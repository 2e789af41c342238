package checks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue/cataloguetest"
	catdto "github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/channel"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/fekuna/omnipos-backoffice/internal/validation"
	"github.com/fekuna/omnipos-backoffice/internal/validation/checks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlatform struct {
	bays []channel.Bay
	err  error
}

func (p *stubPlatform) PushRange(context.Context, *catdto.RangeDetail) error { return nil }

func (p *stubPlatform) Bays(context.Context) ([]channel.Bay, error) { return p.bays, p.err }

func run(t *testing.T, env *cataloguetest.Env, platform channel.Platform, app, modelName string) *validation.Runner {
	t.Helper()
	reg := validation.NewRegistry()
	checks.Register(reg, checks.Deps{Repo: env.Repo, Catalogue: env.UC, Platform: platform})
	def, ok := reg.Lookup(app, modelName)
	require.True(t, ok, "runner %s.%s", app, modelName)

	validators, err := def.Load(context.Background())
	require.NoError(t, err)
	r := validation.NewRunner(app, modelName, validators...)
	r.Run(context.Background(), logger.NewNop())
	return r
}

func createBay(t *testing.T, env *cataloguetest.Env, name, warehouse string) {
	t.Helper()
	require.NoError(t, env.Repo.CreateBay(context.Background(),
		&model.Bay{ID: uuid.New().String(), Name: name, Warehouse: warehouse, Active: true}))
}

func TestRegisterSkipsPlatformWithoutClient(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	reg := validation.NewRegistry()
	checks.Register(reg, checks.Deps{Repo: env.Repo, Catalogue: env.UC})
	assert.Equal(t, []string{checks.AppCatalogue, checks.AppWarehouse}, reg.Apps())

	reg = validation.NewRegistry()
	checks.Register(reg, checks.Deps{Repo: env.Repo, Catalogue: env.UC, Platform: &stubPlatform{}})
	assert.Equal(t, []string{checks.AppCatalogue, checks.AppPlatform, checks.AppWarehouse}, reg.Apps())
}

func TestBayChecks(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	createBay(t, env, "B-07", "")
	createBay(t, env, "A-1", "Main")
	createBay(t, env, "A-1", "North")
	createBay(t, env, "top shelf", "Main")

	r := run(t, env, nil, checks.AppWarehouse, "bay")

	assert.Equal(t, []string{"Bay B-07 has no warehouse"}, r.ErrorMessages(validation.Error))
	assert.Equal(t, []string{"Bay name A-1 is used in 2 warehouses"}, r.ErrorMessages(validation.Warning))
	assert.Equal(t, []string{`Bay name "top shelf" should be upper case letters and digits separated by dashes`},
		r.ErrorMessages(validation.Formatting))
}

func TestStockChainChecks(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Mug")
	products, err := env.Repo.ListProducts(ctx, pr.ID)
	require.NoError(t, err)
	for _, level := range []int{4, 3} {
		_, err := env.UC.SetStockLevel(ctx, &catdto.SetStockLevelInput{
			ProductID: products[0].ID, StockLevel: level, Source: model.StockSourceUser,
		})
		require.NoError(t, err)
	}

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ref := func(s string) *string { return &s }
	for _, h := range []model.StockLevelHistory{
		{ID: "q1", ProductID: "q", StockLevel: 5, Timestamp: at},
		{ID: "q2", ProductID: "q", StockLevel: -1, Timestamp: at.Add(time.Hour)},
		{ID: "r1", ProductID: "r", PreviousChangeID: ref("gone"), Timestamp: at},
		{ID: "s1", ProductID: "s", PreviousChangeID: ref("q1"), Timestamp: at},
	} {
		h.Source = model.StockSourceUser
		require.NoError(t, env.Repo.AppendStockChange(ctx, &h))
	}

	r := run(t, env, nil, checks.AppWarehouse, "stock_level_history")

	assert.ElementsMatch(t, []string{
		"Stock change r1 points at missing change gone",
		"Stock change s1 for product s follows a change for product q",
	}, r.ErrorMessages(validation.Critical))
	assert.ElementsMatch(t, []string{
		"Product q stock history has 2 starting entries",
		"Product r stock history has 0 starting entries",
		"Product s stock history has 0 starting entries",
		"Product q stock history has 2 latest entries",
	}, r.ErrorMessages(validation.Error))
	assert.Equal(t, []string{"Stock change q2 sets product q to -1"}, r.ErrorMessages(validation.Warning))
}

func TestRangeChecks(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()

	clean := env.SeedRange(t, "Mug", cataloguetest.OptionSpec{Name: "Colour", Values: []string{"Red", "Blue"}})
	assert.Empty(t, run(t, env, nil, checks.AppCatalogue, "product_range").Failures())

	broken := env.SeedRange(t, "Plate", cataloguetest.OptionSpec{Name: "Size", Values: []string{"Large", "Small"}})
	products, err := env.Repo.ListProducts(ctx, broken.ID)
	require.NoError(t, err)
	require.NoError(t, env.Repo.DeleteProduct(ctx, products[1].ID))

	clean.Name = "Mug  Large"
	clean.Department = ""
	require.NoError(t, env.Repo.UpdateRange(ctx, clean))
	require.NoError(t, env.UC.RecordRangeError(ctx, clean.ID, "platform returned 503: busy"))

	empty, err := env.UC.CreateRange(ctx, &catdto.CreateRangeInput{Name: "Bowl", Department: "Home"})
	require.NoError(t, err)
	empty.Status = model.RangeStatusComplete
	require.NoError(t, env.Repo.UpdateRange(ctx, empty))

	r := run(t, env, nil, checks.AppCatalogue, "product_range")

	assert.Equal(t, []string{"Range " + broken.SKU + ": Option Size must have at least two values"},
		r.ErrorMessages(validation.Critical))
	assert.ElementsMatch(t, []string{
		"Range " + empty.SKU + " is complete but has no products",
		"Range " + clean.SKU + " failed to reach the platform: platform returned 503: busy",
	}, r.ErrorMessages(validation.Error))
	assert.Equal(t, []string{"Range " + clean.SKU + " has no department"}, r.ErrorMessages(validation.Warning))
	assert.Equal(t, []string{`Range ` + clean.SKU + ` name "Mug  Large" has stray whitespace`},
		r.ErrorMessages(validation.Formatting))
}

func TestProductChecks(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()
	pr := env.SeedRange(t, "Mug", cataloguetest.OptionSpec{Name: "Colour", Values: []string{"Red", "Blue", "Green"}})
	products, err := env.Repo.ListProducts(ctx, pr.ID)
	require.NoError(t, err)

	products[0].Barcode = "50000001"
	products[0].PurchasePrice = decimal.NewNullDecimal(decimal.RequireFromString("12.50"))
	products[1].Barcode = "50000002"
	products[1].Price = decimal.NullDecimal{}
	products[2].Barcode = "50000003"
	for i := range products {
		require.NoError(t, env.Repo.UpdateProduct(ctx, &products[i]))
	}

	r := run(t, env, nil, checks.AppCatalogue, "product")

	assert.Empty(t, r.ErrorMessages(validation.Critical))
	assert.Equal(t, []string{"Product " + products[1].SKU + " has no price"}, r.ErrorMessages(validation.Error))
	assert.Equal(t, []string{"Product " + products[0].SKU + " sells at 9.99, below its purchase price 12.50"},
		r.ErrorMessages(validation.Warning))
}

func TestOptionValueChecks(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()
	colour, err := env.UC.GetOrCreateOption(ctx, "Colour")
	require.NoError(t, err)
	for _, v := range []string{"Red", "red", " Blue"} {
		require.NoError(t, env.Repo.CreateOptionValue(ctx,
			&model.ProductOptionValue{ID: uuid.New().String(), OptionID: colour.ID, Value: v}))
	}

	r := run(t, env, nil, checks.AppCatalogue, "product_option_value")

	assert.Equal(t, []string{`Option Colour has values "Red" and "red" differing only in case`},
		r.ErrorMessages(validation.Warning))
	assert.Equal(t, []string{`Option Colour value " Blue" has stray whitespace`}, r.ErrorMessages(validation.Formatting))
	assert.Empty(t, r.ErrorMessages(validation.Critical))
}

func TestBarcodeChecks(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	ctx := context.Background()
	require.NoError(t, env.UC.ProvisionBarcodes(ctx, []string{"50000001"}))
	usedFor := "lost"
	require.NoError(t, env.Repo.AddBarcodes(ctx, []model.Barcode{
		{ID: uuid.New().String(), Barcode: "50000002", Available: false},
		{ID: uuid.New().String(), Barcode: "123", Available: true, UsedFor: &usedFor},
	}))

	r := run(t, env, nil, checks.AppCatalogue, "barcode")

	assert.Equal(t, []string{"Barcode 50000002 is used but has no used_at"}, r.ErrorMessages(validation.Critical))
	assert.Equal(t, []string{"Barcode 123 is available but marked as used"}, r.ErrorMessages(validation.Error))
	assert.ElementsMatch(t, []string{
		`Barcode "123" is not 8 to 14 digits`,
		"Barcode 50000002 was allocated but no product carries it",
	}, r.ErrorMessages(validation.Warning))
}

func TestPlatformBayChecks(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	createBay(t, env, "B-07", "Main")
	createBay(t, env, "B-08", "Main")
	platform := &stubPlatform{bays: []channel.Bay{
		{Name: "B-07", Warehouse: "North"},
		{Name: "C-01", Warehouse: "Main"},
	}}

	r := run(t, env, platform, checks.AppPlatform, "bay")

	assert.Equal(t, []string{"Platform bay C-01 does not exist locally"}, r.ErrorMessages(validation.Error))
	assert.ElementsMatch(t, []string{
		`Bay B-07 is in warehouse "Main" locally but "North" on the platform`,
		"Active bay B-08 is missing from the platform",
	}, r.ErrorMessages(validation.Warning))
}

func TestPlatformBaysLoadFailure(t *testing.T) {
	env := cataloguetest.NewEnv(t)
	reg := validation.NewRegistry()
	checks.Register(reg, checks.Deps{Repo: env.Repo, Catalogue: env.UC, Platform: &stubPlatform{err: errors.New("timeout")}})
	def, ok := reg.Lookup(checks.AppPlatform, "bay")
	require.True(t, ok)

	_, err := def.Load(context.Background())
	assert.EqualError(t, err, "timeout")
}
