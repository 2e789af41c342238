package catalogue

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/search"
)

type UseCase interface {
	CreateRange(ctx context.Context, input *dto.CreateRangeInput) (*model.ProductRange, error)
	GetRange(ctx context.Context, id string) (*model.ProductRange, error)
	GetRangeDetail(ctx context.Context, id string) (*dto.RangeDetail, error)
	LoadTree(ctx context.Context, rangeID string) (*Tree, error)
	CompleteRange(ctx context.Context, rangeID, userID string) error
	RecordRangeError(ctx context.Context, rangeID, message string) error

	GenerateRangeSKU(ctx context.Context) (string, error)
	GenerateProductSKU(ctx context.Context) (string, error)

	ProvisionBarcodes(ctx context.Context, codes []string) error
	AllocateBarcode(ctx context.Context, input *dto.AllocateBarcodeInput) (string, error)

	SetStockLevel(ctx context.Context, input *dto.SetStockLevelInput) (*model.StockLevelHistory, error)
	StockLevel(ctx context.Context, productID string) (int, error)
	SetProductBays(ctx context.Context, input *dto.SetProductBaysInput) error

	ListLookups(ctx context.Context, kind model.LookupKind) ([]model.Lookup, error)
	ListVATRates(ctx context.Context) ([]model.VATRate, error)
	ListOptions(ctx context.Context) ([]model.ProductOption, error)
	ListOptionValues(ctx context.Context, optionID string) ([]model.ProductOptionValue, error)
	GetOrCreateOption(ctx context.Context, name string) (*model.ProductOption, error)
	GetOrCreateOptionValue(ctx context.Context, optionID, value string) (*model.ProductOptionValue, error)

	SearchRanges(ctx context.Context, filters *dto.RangeFilters) ([]dto.RangeSummary, int, error)
	IndexRange(ctx context.Context, rangeID string) error
	InvalidateSearchCache(ctx context.Context)
}

// ListCache caches search result pages.
type ListCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}

// SearchIndex holds one document per public range.
type SearchIndex interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc any) error
	Delete(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResponse, error)
}
