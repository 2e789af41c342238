package validation

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/validation/dto"
)

// Repository persists model_validation_log. Writes join the transaction
// carried by ctx.
type Repository interface {
	// LockRunner takes the advisory lock on (app, model) until the
	// surrounding transaction ends. It reports false when another pass holds
	// it.
	LockRunner(ctx context.Context, app, modelName string) (bool, error)
	// ReplaceLogs makes rows the complete log of (app, model). Rows already
	// logged keep their id and have last_seen moved to seenAt.
	ReplaceLogs(ctx context.Context, app, modelName string, rows []model.ModelValidationLog, seenAt time.Time) error
	// ListLogs orders by app, model, object validator, level descending,
	// check and message.
	ListLogs(ctx context.Context, filter *dto.LogFilter) ([]model.ModelValidationLog, error)
}
