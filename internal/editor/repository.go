package editor

import (
	"context"

	"github.com/fekuna/omnipos-backoffice/internal/model"
)

// PageRepository stores the encoded form record of each page per product
// edit. Pages disappear with their edit.
type PageRepository interface {
	SavePage(ctx context.Context, p *model.ProductEditPage) error
	ListPages(ctx context.Context, editID string) ([]model.ProductEditPage, error)
}
