package editor

import (
	"context"

	"github.com/fekuna/omnipos-backoffice/internal/editor/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
)

// Outcome is the result of a successful page submission.
type Outcome struct {
	RangeID string
	Next    PageID
}

// UseCase drives the wizard for one user. Range ids name the live range
// being edited. Operations read the session id from the context.
type UseCase interface {
	StartForm(ctx context.Context) (*dto.PageView, error)
	Start(ctx context.Context, userID string, r Record) (*Outcome, error)
	Continue(ctx context.Context, userID string) (*dto.ContinueView, error)
	// Resume opens the range for editing and returns the first page still
	// missing data.
	Resume(ctx context.Context, rangeID, userID string) (PageID, error)

	ShowPage(ctx context.Context, rangeID string, page PageID, userID string) (*dto.PageView, error)
	SubmitPage(ctx context.Context, rangeID string, page PageID, userID string, r Record, in Intent) (*Outcome, error)

	ShowProduct(ctx context.Context, productID, userID string) (*dto.ProductView, error)
	SubmitProduct(ctx context.Context, productID, userID string, r Record) (*Outcome, error)

	Complete(ctx context.Context, rangeID, userID string) (*model.ProductRange, error)
	Discard(ctx context.Context, rangeID, userID string) error
}
