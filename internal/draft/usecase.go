package draft

import (
	"context"

	catdto "github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/draft/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
)

// UseCase manages drafts. Methods taking an edit id fail with NotFound when
// the edit no longer exists.
type UseCase interface {
	// StartRange creates a live range in CREATING state and opens it.
	StartRange(ctx context.Context, input *catdto.CreateRangeInput, userID string) (*model.ProductEdit, error)
	// OpenEdit returns the range's existing edit for the same user, copies
	// the range into a new draft when there is none, and fails with
	// ConflictingEdit when another user holds it.
	OpenEdit(ctx context.Context, rangeID, userID string) (*model.ProductEdit, error)
	CopyRange(ctx context.Context, rangeID string) (*model.PartialProductRange, error)
	// EditFor returns the edit userID holds on the live range.
	EditFor(ctx context.Context, rangeID, userID string) (*model.ProductEdit, error)
	EditForProduct(ctx context.Context, productID, userID string) (*model.ProductEdit, error)
	LoadDraft(ctx context.Context, editID string) (*Draft, error)
	ListEdits(ctx context.Context) ([]dto.EditGroup, error)

	UpdateRangeDetails(ctx context.Context, editID string, input *dto.RangeDetailsInput) error
	SetRangeOptions(ctx context.Context, editID string, opts []dto.RangeOptionInput) error
	AdmitOptionValues(ctx context.Context, editID string, valueIDs []string) error

	CreateProduct(ctx context.Context, editID string, input *dto.NewProductInput) (*model.PartialProduct, error)
	UpdateProduct(ctx context.Context, editID string, p *model.PartialProduct) error
	SetProductValues(ctx context.Context, editID, productID string, valueIDs []string) error
	DeleteProduct(ctx context.Context, editID, productID string) error

	Promote(ctx context.Context, editID, userID string) (*model.ProductRange, error)
	Discard(ctx context.Context, editID string) error
}

// EventPublisher is told about ranges that were promoted.
type EventPublisher interface {
	PublishRangePromoted(ctx context.Context, rangeID, userID string) error
}
