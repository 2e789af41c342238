package draft

import (
	"context"

	"github.com/fekuna/omnipos-backoffice/internal/model"
)

// Repository persists draft ranges and product edits. Find methods return
// (nil, nil) when nothing matches. Deleting a draft range removes everything
// it owns, including its product edit and stored pages.
type Repository interface {
	CreatePartialRange(ctx context.Context, r *model.PartialProductRange) error
	FindPartialRangeByID(ctx context.Context, id string) (*model.PartialProductRange, error)
	UpdatePartialRange(ctx context.Context, r *model.PartialProductRange) error
	DeletePartialRange(ctx context.Context, id string) error

	CreatePartialProduct(ctx context.Context, p *model.PartialProduct) error
	FindPartialProductByID(ctx context.Context, id string) (*model.PartialProduct, error)
	UpdatePartialProduct(ctx context.Context, p *model.PartialProduct) error
	DeletePartialProduct(ctx context.Context, id string) error
	// ListPartialProducts orders by (range_order, id).
	ListPartialProducts(ctx context.Context, rangeID string) ([]model.PartialProduct, error)

	ListPartialRangeOptions(ctx context.Context, rangeID string) ([]model.PartialRangeOption, error)
	ReplacePartialRangeOptions(ctx context.Context, rangeID string, opts []model.PartialRangeOption) error
	ListPartialValueLinks(ctx context.Context, rangeID string) ([]model.ProductOptionValueLink, error)
	ReplacePartialProductValueLinks(ctx context.Context, productID string, valueIDs []string) error

	CreateEdit(ctx context.Context, e *model.ProductEdit) error
	FindEditByID(ctx context.Context, id string) (*model.ProductEdit, error)
	FindEditByRangeID(ctx context.Context, rangeID string) (*model.ProductEdit, error)
	ListEdits(ctx context.Context) ([]model.ProductEdit, error)
	AddEditOptionValues(ctx context.Context, editID string, valueIDs []string) error
	ListEditOptionValues(ctx context.Context, editID string) ([]string, error)
}
