package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/postgres"
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

func duplicate(err error) error {
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", catalogue.ErrDuplicate, err)
	}
	return err
}

func get[T any](ctx context.Context, db postgres.DBTX, query string, args ...interface{}) (*T, error) {
	var out T
	if err := db.GetContext(ctx, &out, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *PGRepository) CreatePartialRange(ctx context.Context, pr *model.PartialProductRange) error {
	query := `
        INSERT INTO partial_product_range (
            id, sku, name, department, description, search_terms, status, error_message,
            is_end_of_line, hidden, managed_by_id, completed_at, completed_by_id, created_at, updated_at,
            original_range_id, pre_existing
        )
        VALUES (
            :id, :sku, :name, :department, :description, :search_terms, :status, :error_message,
            :is_end_of_line, :hidden, :managed_by_id, :completed_at, :completed_by_id, :created_at, :updated_at,
            :original_range_id, :pre_existing
        )
    `
	_, err := r.conn(ctx).NamedExecContext(ctx, query, pr)
	return duplicate(err)
}

func (r *PGRepository) FindPartialRangeByID(ctx context.Context, id string) (*model.PartialProductRange, error) {
	return get[model.PartialProductRange](ctx, r.conn(ctx), `SELECT * FROM partial_product_range WHERE id = $1`, id)
}

func (r *PGRepository) UpdatePartialRange(ctx context.Context, pr *model.PartialProductRange) error {
	query := `
        UPDATE partial_product_range
        SET name = :name,
            department = :department,
            description = :description,
            search_terms = :search_terms,
            is_end_of_line = :is_end_of_line,
            hidden = :hidden,
            managed_by_id = :managed_by_id,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.conn(ctx).NamedExecContext(ctx, query, pr)
	return err
}

// DeletePartialRange relies on ON DELETE CASCADE for products, links,
// options, the product edit and its pages.
func (r *PGRepository) DeletePartialRange(ctx context.Context, id string) error {
	_, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM partial_product_range WHERE id = $1`, id)
	return err
}

func (r *PGRepository) CreatePartialProduct(ctx context.Context, p *model.PartialProduct) error {
	query := `
        INSERT INTO partial_product (
            id, sku, range_id, barcode, supplier_id, supplier_sku, purchase_price, retail_price, price,
            vat_rate_id, weight_grams, height_mm, width_mm, length_mm, package_type_id, brand_id,
            manufacturer_id, gender_id, range_order, is_end_of_line, is_archived, kind,
            multipack_of_id, multipack_quantity, created_at, updated_at, original_product_id, pre_existing
        )
        VALUES (
            :id, :sku, :range_id, :barcode, :supplier_id, :supplier_sku, :purchase_price, :retail_price, :price,
            :vat_rate_id, :weight_grams, :height_mm, :width_mm, :length_mm, :package_type_id, :brand_id,
            :manufacturer_id, :gender_id, :range_order, :is_end_of_line, :is_archived, :kind,
            :multipack_of_id, :multipack_quantity, :created_at, :updated_at, :original_product_id, :pre_existing
        )
    `
	_, err := r.conn(ctx).NamedExecContext(ctx, query, p)
	return duplicate(err)
}

func (r *PGRepository) FindPartialProductByID(ctx context.Context, id string) (*model.PartialProduct, error) {
	return get[model.PartialProduct](ctx, r.conn(ctx), `SELECT * FROM partial_product WHERE id = $1`, id)
}

func (r *PGRepository) UpdatePartialProduct(ctx context.Context, p *model.PartialProduct) error {
	query := `
        UPDATE partial_product
        SET barcode = :barcode,
            supplier_id = :supplier_id,
            supplier_sku = :supplier_sku,
            purchase_price = :purchase_price,
            retail_price = :retail_price,
            price = :price,
            vat_rate_id = :vat_rate_id,
            weight_grams = :weight_grams,
            height_mm = :height_mm,
            width_mm = :width_mm,
            length_mm = :length_mm,
            package_type_id = :package_type_id,
            brand_id = :brand_id,
            manufacturer_id = :manufacturer_id,
            gender_id = :gender_id,
            range_order = :range_order,
            is_end_of_line = :is_end_of_line,
            is_archived = :is_archived,
            kind = :kind,
            multipack_of_id = :multipack_of_id,
            multipack_quantity = :multipack_quantity,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.conn(ctx).NamedExecContext(ctx, query, p)
	return duplicate(err)
}

func (r *PGRepository) DeletePartialProduct(ctx context.Context, id string) error {
	_, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM partial_product WHERE id = $1`, id)
	return err
}

func (r *PGRepository) ListPartialProducts(ctx context.Context, rangeID string) ([]model.PartialProduct, error) {
	var products []model.PartialProduct
	err := r.conn(ctx).SelectContext(ctx, &products,
		`SELECT * FROM partial_product WHERE range_id = $1 ORDER BY range_order, id`, rangeID)
	return products, err
}

func (r *PGRepository) ListPartialRangeOptions(ctx context.Context, rangeID string) ([]model.PartialRangeOption, error) {
	var opts []model.PartialRangeOption
	err := r.conn(ctx).SelectContext(ctx, &opts,
		`SELECT * FROM partial_product_range_selected_option WHERE range_id = $1 ORDER BY id`, rangeID)
	return opts, err
}

func (r *PGRepository) ReplacePartialRangeOptions(ctx context.Context, rangeID string, opts []model.PartialRangeOption) error {
	db := r.conn(ctx)
	if _, err := db.ExecContext(ctx, `DELETE FROM partial_product_range_selected_option WHERE range_id = $1`, rangeID); err != nil {
		return err
	}
	for i := range opts {
		opts[i].RangeID = rangeID
		_, err := db.NamedExecContext(ctx, `
            INSERT INTO partial_product_range_selected_option (id, range_id, option_id, variation, pre_existing)
            VALUES (:id, :range_id, :option_id, :variation, :pre_existing)
        `, &opts[i])
		if err != nil {
			return duplicate(err)
		}
	}
	return nil
}

func (r *PGRepository) ListPartialValueLinks(ctx context.Context, rangeID string) ([]model.ProductOptionValueLink, error) {
	var links []model.ProductOptionValueLink
	err := r.conn(ctx).SelectContext(ctx, &links, `
        SELECT l.* FROM partial_product_option_value_link l
        JOIN partial_product p ON p.id = l.product_id
        WHERE p.range_id = $1
        ORDER BY l.product_id, l.id
    `, rangeID)
	return links, err
}

func (r *PGRepository) ReplacePartialProductValueLinks(ctx context.Context, productID string, valueIDs []string) error {
	db := r.conn(ctx)
	if _, err := db.ExecContext(ctx, `DELETE FROM partial_product_option_value_link WHERE product_id = $1`, productID); err != nil {
		return err
	}
	for _, valueID := range valueIDs {
		_, err := db.ExecContext(ctx,
			`INSERT INTO partial_product_option_value_link (id, product_id, option_value_id) VALUES ($1, $2, $3)`,
			uuid.New().String(), productID, valueID)
		if err != nil {
			return duplicate(err)
		}
	}
	return nil
}

func (r *PGRepository) CreateEdit(ctx context.Context, e *model.ProductEdit) error {
	_, err := r.conn(ctx).NamedExecContext(ctx, `
        INSERT INTO product_edit (id, user_id, partial_range_id, product_range_id, created_at)
        VALUES (:id, :user_id, :partial_range_id, :product_range_id, :created_at)
    `, e)
	return duplicate(err)
}

func (r *PGRepository) FindEditByID(ctx context.Context, id string) (*model.ProductEdit, error) {
	return get[model.ProductEdit](ctx, r.conn(ctx), `SELECT * FROM product_edit WHERE id = $1`, id)
}

func (r *PGRepository) FindEditByRangeID(ctx context.Context, rangeID string) (*model.ProductEdit, error) {
	return get[model.ProductEdit](ctx, r.conn(ctx), `SELECT * FROM product_edit WHERE product_range_id = $1`, rangeID)
}

func (r *PGRepository) ListEdits(ctx context.Context) ([]model.ProductEdit, error) {
	var edits []model.ProductEdit
	err := r.conn(ctx).SelectContext(ctx, &edits, `SELECT * FROM product_edit ORDER BY created_at, id`)
	return edits, err
}

func (r *PGRepository) AddEditOptionValues(ctx context.Context, editID string, valueIDs []string) error {
	if len(valueIDs) == 0 {
		return nil
	}
	_, err := r.conn(ctx).ExecContext(ctx, `
        INSERT INTO product_edit_option_value (edit_id, option_value_id)
        SELECT $1, unnest($2::text[])
        ON CONFLICT DO NOTHING
    `, editID, pq.Array(valueIDs))
	return err
}

func (r *PGRepository) ListEditOptionValues(ctx context.Context, editID string) ([]string, error) {
	var ids []string
	err := r.conn(ctx).SelectContext(ctx, &ids,
		`SELECT option_value_id FROM product_edit_option_value WHERE edit_id = $1 ORDER BY option_value_id`, editID)
	return ids, err
}
