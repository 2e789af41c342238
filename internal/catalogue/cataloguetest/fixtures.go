// Package cataloguetest builds in-memory catalogues for tests.
package cataloguetest

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/repository"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/usecase"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/memdb"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type Env struct {
	DB   *memdb.Database
	Repo *repository.MemRepository
	UC   catalogue.UseCase
}

func NewEnv(t testing.TB, opts ...usecase.Option) *Env {
	t.Helper()
	db := memdb.New()
	repo := repository.NewMemRepository(db)
	return &Env{
		DB:   db,
		Repo: repo,
		UC:   usecase.NewCatalogueUseCase(repo, db, logger.NewNop(), opts...),
	}
}

type OptionSpec struct {
	Name   string
	Values []string
}

// SeedRange creates a COMPLETE range with one product per combination of
// the variation options, left-most option varying slowest. With no options
// it creates a single product.
func (e *Env) SeedRange(t testing.TB, name string, variations ...OptionSpec) *model.ProductRange {
	t.Helper()
	ctx := context.Background()

	pr, err := e.UC.CreateRange(ctx, &dto.CreateRangeInput{Name: name, Department: "Home"})
	require.NoError(t, err)

	var axes [][]string
	var rangeOptions []model.RangeOption
	for _, spec := range variations {
		o, err := e.UC.GetOrCreateOption(ctx, spec.Name)
		require.NoError(t, err)
		rangeOptions = append(rangeOptions, model.RangeOption{ID: uuid.New().String(), OptionID: o.ID, Variation: true})
		var ids []string
		for _, v := range spec.Values {
			val, err := e.UC.GetOrCreateOptionValue(ctx, o.ID, v)
			require.NoError(t, err)
			ids = append(ids, val.ID)
		}
		axes = append(axes, ids)
	}
	require.NoError(t, e.Repo.ReplaceRangeOptions(ctx, pr.ID, rangeOptions))

	combos := [][]string{{}}
	for _, axis := range axes {
		var next [][]string
		for _, c := range combos {
			for _, v := range axis {
				next = append(next, append(append([]string{}, c...), v))
			}
		}
		combos = next
	}

	for i, combo := range combos {
		sku, err := e.UC.GenerateProductSKU(ctx)
		require.NoError(t, err)
		p := &model.Product{
			BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: pr.CreatedAt, UpdatedAt: pr.CreatedAt},
			SKU:        sku,
			RangeID:    pr.ID,
			RangeOrder: i,
			Kind:       model.ProductKindSingle,
			ProductInfo: model.ProductInfo{
				SupplierSKU: "SUP-" + name,
				Price:       decimal.NewNullDecimal(decimal.RequireFromString("9.99")),
			},
		}
		require.NoError(t, e.Repo.CreateProduct(ctx, p))
		require.NoError(t, e.Repo.ReplaceProductValueLinks(ctx, p.ID, combo))
	}

	require.NoError(t, e.UC.CompleteRange(ctx, pr.ID, "seed"))
	pr, err = e.UC.GetRange(ctx, pr.ID)
	require.NoError(t, err)
	return pr
}
