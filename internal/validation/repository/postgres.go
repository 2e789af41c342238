package repository

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/postgres"
	"github.com/fekuna/omnipos-backoffice/internal/validation/dto"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) conn(ctx context.Context) postgres.DBTX {
	return postgres.Conn(ctx, r.DB)
}

func lockKey(app, modelName string) string {
	return "validation:" + app + "." + modelName
}

func (r *PGRepository) LockRunner(ctx context.Context, app, modelName string) (bool, error) {
	return postgres.TryAdvisoryXactLock(ctx, r.DB, lockKey(app, modelName))
}

func (r *PGRepository) ReplaceLogs(ctx context.Context, app, modelName string, rows []model.ModelValidationLog, seenAt time.Time) error {
	db := r.conn(ctx)
	query := `
        INSERT INTO model_validation_log (
            id, app, model, error_level, object_validator, validation_check, error_message, last_seen
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (app, model, object_validator, validation_check, error_message)
        DO UPDATE SET error_level = EXCLUDED.error_level, last_seen = EXCLUDED.last_seen
        RETURNING id
    `
	kept := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		var id string
		if err := db.QueryRowxContext(ctx, query,
			row.ID, app, modelName, row.ErrorLevel, row.ObjectValidator, row.ValidationCheck, row.ErrorMessage, seenAt,
		).Scan(&id); err != nil {
			return err
		}
		kept = append(kept, id)
	}

	_, err := db.ExecContext(ctx, `
        DELETE FROM model_validation_log
        WHERE app = $1 AND model = $2 AND NOT (id = ANY($3))
    `, app, modelName, pq.Array(kept))
	return err
}

func (r *PGRepository) ListLogs(ctx context.Context, filter *dto.LogFilter) ([]model.ModelValidationLog, error) {
	query := `
        SELECT * FROM model_validation_log
        WHERE ($1 = '' OR app = $1)
          AND ($2 = '' OR model = $2)
          AND error_level >= $3
        ORDER BY app, model, object_validator, error_level DESC, validation_check, error_message
    `
	var logs []model.ModelValidationLog
	err := r.conn(ctx).SelectContext(ctx, &logs, query, filter.App, filter.Model, filter.MinLevel)
	return logs, err
}
