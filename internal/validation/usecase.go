package validation

import (
	"context"

	"github.com/fekuna/omnipos-backoffice/internal/validation/dto"
)

type UseCase interface {
	// RunAll executes every registered runner in order. It fails only when
	// logs could not be stored; runners whose data fails to load are
	// reported in the summary.
	RunAll(ctx context.Context) (*dto.PassSummary, error)
	Overview(ctx context.Context, minLevel Level) (*dto.Overview, error)
	App(ctx context.Context, app string, minLevel Level) (*dto.AppView, error)
	Model(ctx context.Context, app, modelName string, minLevel Level) (*dto.ModelView, error)
}
