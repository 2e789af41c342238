package repository

import (
	"context"

	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/postgres"
	"github.com/jmoiron/sqlx"
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

func (r *PGRepository) SavePage(ctx context.Context, p *model.ProductEditPage) error {
	query := `
        INSERT INTO product_edit_page (edit_id, page, data, updated_at)
        VALUES (:edit_id, :page, :data, :updated_at)
        ON CONFLICT (edit_id, page) DO UPDATE
        SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
    `
	_, err := r.conn(ctx).NamedExecContext(ctx, query, p)
	return err
}

func (r *PGRepository) ListPages(ctx context.Context, editID string) ([]model.ProductEditPage, error) {
	var pages []model.ProductEditPage
	query := `SELECT edit_id, page, data, updated_at FROM product_edit_page WHERE edit_id = $1 ORDER BY page`
	if err := r.conn(ctx).SelectContext(ctx, &pages, query, editID); err != nil {
		return nil, err
	}
	return pages, nil
}
