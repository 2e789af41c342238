package catalogue

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
)

// Repository persists the live catalogue. Find/Get methods return (nil, nil)
// when the row does not exist. Every method joins the transaction carried by
// ctx, if any.
type Repository interface {
	// Ranges
	CreateRange(ctx context.Context, r *model.ProductRange) error
	FindRangeByID(ctx context.Context, id string) (*model.ProductRange, error)
	UpdateRange(ctx context.Context, r *model.ProductRange) error
	FindRanges(ctx context.Context, filters *dto.RangeFilters) ([]model.ProductRange, int, error)
	AllRanges(ctx context.Context) ([]model.ProductRange, error)

	// SKUExists checks live and draft ranges and products.
	SKUExists(ctx context.Context, sku string) (bool, error)

	// Products
	CreateProduct(ctx context.Context, p *model.Product) error
	FindProductByID(ctx context.Context, id string) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id string) error
	// ListProducts orders by (range_order, id).
	ListProducts(ctx context.Context, rangeID string) ([]model.Product, error)
	AllProducts(ctx context.Context) ([]model.Product, error)

	// Options and values
	CreateOption(ctx context.Context, o *model.ProductOption) error
	FindOptionByID(ctx context.Context, id string) (*model.ProductOption, error)
	FindOptionByName(ctx context.Context, name string) (*model.ProductOption, error)
	ListOptions(ctx context.Context) ([]model.ProductOption, error)
	CreateOptionValue(ctx context.Context, v *model.ProductOptionValue) error
	FindOptionValue(ctx context.Context, optionID, value string) (*model.ProductOptionValue, error)
	// ListOptionValues orders by insertion.
	ListOptionValues(ctx context.Context, optionID string) ([]model.ProductOptionValue, error)
	FindOptionValuesByIDs(ctx context.Context, ids []string) ([]model.ProductOptionValue, error)
	AllOptionValues(ctx context.Context) ([]model.ProductOptionValue, error)

	ListRangeOptions(ctx context.Context, rangeID string) ([]model.RangeOption, error)
	ReplaceRangeOptions(ctx context.Context, rangeID string, opts []model.RangeOption) error
	ListRangeValueLinks(ctx context.Context, rangeID string) ([]model.ProductOptionValueLink, error)
	ReplaceProductValueLinks(ctx context.Context, productID string, valueIDs []string) error

	// Barcodes
	AddBarcodes(ctx context.Context, codes []model.Barcode) error
	// DrawBarcode locks the oldest available barcode for the surrounding
	// transaction. It returns nil when the pool is empty.
	DrawBarcode(ctx context.Context) (*model.Barcode, error)
	MarkBarcodeUsed(ctx context.Context, b *model.Barcode) error
	AllBarcodes(ctx context.Context) ([]model.Barcode, error)

	// Stock
	LatestStockChange(ctx context.Context, productID string) (*model.StockLevelHistory, error)
	AppendStockChange(ctx context.Context, h *model.StockLevelHistory) error
	AllStockChanges(ctx context.Context) ([]model.StockLevelHistory, error)

	// Bays
	CreateBay(ctx context.Context, b *model.Bay) error
	ListBays(ctx context.Context) ([]model.Bay, error)
	ListProductBays(ctx context.Context, productID string) ([]model.Bay, error)
	AddProductBay(ctx context.Context, link *model.ProductBayLink) error
	RemoveProductBay(ctx context.Context, productID, bayID string) error
	AppendBayHistory(ctx context.Context, h *model.ProductBayHistory) error

	// Lookups
	CreateLookup(ctx context.Context, kind model.LookupKind, l *model.Lookup) error
	ListLookups(ctx context.Context, kind model.LookupKind, activeOnly bool) ([]model.Lookup, error)
	CreateVATRate(ctx context.Context, v *model.VATRate) error
	ListVATRates(ctx context.Context, activeOnly bool) ([]model.VATRate, error)
}

// TxManager runs fn in one transaction; repositories pick it up from ctx.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ErrDuplicate is returned by repositories when a unique constraint rejects
// a write.
var ErrDuplicate = errors.New("duplicate key")
