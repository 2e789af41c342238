package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
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

func newID() string {
	return uuid.New().String()
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

func (r *PGRepository) CreateRange(ctx context.Context, pr *model.ProductRange) error {
	query := `
        INSERT INTO product_range (
            id, sku, name, department, description, search_terms, status, error_message,
            is_end_of_line, hidden, managed_by_id, completed_at, completed_by_id, created_at, updated_at
        )
        VALUES (
            :id, :sku, :name, :department, :description, :search_terms, :status, :error_message,
            :is_end_of_line, :hidden, :managed_by_id, :completed_at, :completed_by_id, :created_at, :updated_at
        )
    `
	_, err := r.conn(ctx).NamedExecContext(ctx, query, pr)
	return duplicate(err)
}

func (r *PGRepository) FindRangeByID(ctx context.Context, id string) (*model.ProductRange, error) {
	return get[model.ProductRange](ctx, r.conn(ctx), `SELECT * FROM product_range WHERE id = $1`, id)
}

// UpdateRange never touches sku.
func (r *PGRepository) UpdateRange(ctx context.Context, pr *model.ProductRange) error {
	query := `
        UPDATE product_range
        SET name = :name,
            department = :department,
            description = :description,
            search_terms = :search_terms,
            status = :status,
            error_message = :error_message,
            is_end_of_line = :is_end_of_line,
            hidden = :hidden,
            managed_by_id = :managed_by_id,
            completed_at = :completed_at,
            completed_by_id = :completed_by_id,
            updated_at = :updated_at
        WHERE id = :id
    `
	_, err := r.conn(ctx).NamedExecContext(ctx, query, pr)
	return err
}

func (r *PGRepository) FindRanges(ctx context.Context, f *dto.RangeFilters) ([]model.ProductRange, int, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = f.Status
	}
	if f.PublicOnly {
		conditions = append(conditions, "status = 'COMPLETE' AND NOT hidden")
	}
	if f.SearchQuery != "" {
		conditions = append(conditions, `(name ILIKE :search OR sku ILIKE :search OR department ILIKE :search OR search_terms ILIKE :search
            OR id IN (SELECT range_id FROM product WHERE sku ILIKE :search OR barcode = :barcode))`)
		args["search"] = "%" + f.SearchQuery + "%"
		args["barcode"] = f.SearchQuery
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	db := r.conn(ctx)

	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM product_range"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM product_range" + whereClause + " ORDER BY name, id"
	if f.PageSize > 0 {
		page := max(f.Page, 1)
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}
	listQuery, listArgs, err := sqlx.Named(query, args)
	if err != nil {
		return nil, 0, err
	}
	var ranges []model.ProductRange
	if err := db.SelectContext(ctx, &ranges, db.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, err
	}
	return ranges, count, nil
}

func (r *PGRepository) AllRanges(ctx context.Context) ([]model.ProductRange, error) {
	var ranges []model.ProductRange
	err := r.conn(ctx).SelectContext(ctx, &ranges, `SELECT * FROM product_range ORDER BY sku`)
	return ranges, err
}

func (r *PGRepository) SKUExists(ctx context.Context, sku string) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS (
            SELECT 1 FROM product_range WHERE sku = $1
            UNION ALL SELECT 1 FROM product WHERE sku = $1
            UNION ALL SELECT 1 FROM partial_product_range WHERE sku = $1
            UNION ALL SELECT 1 FROM partial_product WHERE sku = $1
        )
    `
	err := r.conn(ctx).GetContext(ctx, &exists, query, sku)
	return exists, err
}

func (r *PGRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	query := `
        INSERT INTO product (
            id, sku, range_id, barcode, supplier_id, supplier_sku, purchase_price, retail_price, price,
            vat_rate_id, weight_grams, height_mm, width_mm, length_mm, package_type_id, brand_id,
            manufacturer_id, gender_id, range_order, is_end_of_line, is_archived, kind,
            multipack_of_id, multipack_quantity, created_at, updated_at
        )
        VALUES (
            :id, :sku, :range_id, :barcode, :supplier_id, :supplier_sku, :purchase_price, :retail_price, :price,
            :vat_rate_id, :weight_grams, :height_mm, :width_mm, :length_mm, :package_type_id, :brand_id,
            :manufacturer_id, :gender_id, :range_order, :is_end_of_line, :is_archived, :kind,
            :multipack_of_id, :multipack_quantity, :created_at, :updated_at
        )
    `
	_, err := r.conn(ctx).NamedExecContext(ctx, query, p)
	return duplicate(err)
}

func (r *PGRepository) FindProductByID(ctx context.Context, id string) (*model.Product, error) {
	return get[model.Product](ctx, r.conn(ctx), `SELECT * FROM product WHERE id = $1`, id)
}

func (r *PGRepository) UpdateProduct(ctx context.Context, p *model.Product) error {
	query := `
        UPDATE product
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

func (r *PGRepository) DeleteProduct(ctx context.Context, id string) error {
	_, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM product WHERE id = $1`, id)
	return err
}

func (r *PGRepository) ListProducts(ctx context.Context, rangeID string) ([]model.Product, error) {
	var products []model.Product
	err := r.conn(ctx).SelectContext(ctx, &products,
		`SELECT * FROM product WHERE range_id = $1 ORDER BY range_order, id`, rangeID)
	return products, err
}

func (r *PGRepository) AllProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.conn(ctx).SelectContext(ctx, &products, `SELECT * FROM product ORDER BY range_id, range_order, id`)
	return products, err
}

func (r *PGRepository) CreateOption(ctx context.Context, o *model.ProductOption) error {
	_, err := r.conn(ctx).NamedExecContext(ctx,
		`INSERT INTO product_option (id, name, ordering, active) VALUES (:id, :name, :ordering, :active)`, o)
	return duplicate(err)
}

func (r *PGRepository) FindOptionByID(ctx context.Context, id string) (*model.ProductOption, error) {
	return get[model.ProductOption](ctx, r.conn(ctx), `SELECT * FROM product_option WHERE id = $1`, id)
}

func (r *PGRepository) FindOptionByName(ctx context.Context, name string) (*model.ProductOption, error) {
	return get[model.ProductOption](ctx, r.conn(ctx), `SELECT * FROM product_option WHERE name = $1`, name)
}

func (r *PGRepository) ListOptions(ctx context.Context) ([]model.ProductOption, error) {
	var opts []model.ProductOption
	err := r.conn(ctx).SelectContext(ctx, &opts, `SELECT * FROM product_option ORDER BY ordering, name`)
	return opts, err
}

func (r *PGRepository) CreateOptionValue(ctx context.Context, v *model.ProductOptionValue) error {
	err := r.conn(ctx).QueryRowxContext(ctx,
		`INSERT INTO product_option_value (id, option_id, value) VALUES ($1, $2, $3) RETURNING seq`,
		v.ID, v.OptionID, v.Value,
	).Scan(&v.Seq)
	return duplicate(err)
}

func (r *PGRepository) FindOptionValue(ctx context.Context, optionID, value string) (*model.ProductOptionValue, error) {
	return get[model.ProductOptionValue](ctx, r.conn(ctx),
		`SELECT * FROM product_option_value WHERE option_id = $1 AND value = $2`, optionID, value)
}

func (r *PGRepository) ListOptionValues(ctx context.Context, optionID string) ([]model.ProductOptionValue, error) {
	var vals []model.ProductOptionValue
	err := r.conn(ctx).SelectContext(ctx, &vals,
		`SELECT * FROM product_option_value WHERE option_id = $1 ORDER BY seq`, optionID)
	return vals, err
}

func (r *PGRepository) FindOptionValuesByIDs(ctx context.Context, ids []string) ([]model.ProductOptionValue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT * FROM product_option_value WHERE id IN (?) ORDER BY seq`, ids)
	if err != nil {
		return nil, err
	}
	db := r.conn(ctx)
	var vals []model.ProductOptionValue
	err = db.SelectContext(ctx, &vals, db.Rebind(query), args...)
	return vals, err
}

func (r *PGRepository) AllOptionValues(ctx context.Context) ([]model.ProductOptionValue, error) {
	var vals []model.ProductOptionValue
	err := r.conn(ctx).SelectContext(ctx, &vals, `SELECT * FROM product_option_value ORDER BY option_id, seq`)
	return vals, err
}

func (r *PGRepository) ListRangeOptions(ctx context.Context, rangeID string) ([]model.RangeOption, error) {
	var opts []model.RangeOption
	err := r.conn(ctx).SelectContext(ctx, &opts,
		`SELECT * FROM product_range_selected_option WHERE range_id = $1 ORDER BY id`, rangeID)
	return opts, err
}

func (r *PGRepository) ReplaceRangeOptions(ctx context.Context, rangeID string, opts []model.RangeOption) error {
	db := r.conn(ctx)
	if _, err := db.ExecContext(ctx, `DELETE FROM product_range_selected_option WHERE range_id = $1`, rangeID); err != nil {
		return err
	}
	for i := range opts {
		opts[i].RangeID = rangeID
		_, err := db.NamedExecContext(ctx, `
            INSERT INTO product_range_selected_option (id, range_id, option_id, variation)
            VALUES (:id, :range_id, :option_id, :variation)
        `, &opts[i])
		if err != nil {
			return duplicate(err)
		}
	}
	return nil
}

func (r *PGRepository) ListRangeValueLinks(ctx context.Context, rangeID string) ([]model.ProductOptionValueLink, error) {
	var links []model.ProductOptionValueLink
	err := r.conn(ctx).SelectContext(ctx, &links, `
        SELECT l.* FROM product_option_value_link l
        JOIN product p ON p.id = l.product_id
        WHERE p.range_id = $1
        ORDER BY l.product_id, l.id
    `, rangeID)
	return links, err
}

func (r *PGRepository) ReplaceProductValueLinks(ctx context.Context, productID string, valueIDs []string) error {
	db := r.conn(ctx)
	if _, err := db.ExecContext(ctx, `DELETE FROM product_option_value_link WHERE product_id = $1`, productID); err != nil {
		return err
	}
	for _, valueID := range valueIDs {
		_, err := db.ExecContext(ctx,
			`INSERT INTO product_option_value_link (id, product_id, option_value_id) VALUES ($1, $2, $3)`,
			newID(), productID, valueID)
		if err != nil {
			return duplicate(err)
		}
	}
	return nil
}

func (r *PGRepository) AddBarcodes(ctx context.Context, codes []model.Barcode) error {
	db := r.conn(ctx)
	for i := range codes {
		err := db.QueryRowxContext(ctx,
			`INSERT INTO barcode (id, barcode, available) VALUES ($1, $2, $3) RETURNING seq`,
			codes[i].ID, codes[i].Barcode, codes[i].Available,
		).Scan(&codes[i].Seq)
		if err != nil {
			return duplicate(err)
		}
	}
	return nil
}

func (r *PGRepository) DrawBarcode(ctx context.Context) (*model.Barcode, error) {
	return get[model.Barcode](ctx, r.conn(ctx), `
        SELECT * FROM barcode
        WHERE available
        ORDER BY seq
        LIMIT 1
        FOR UPDATE SKIP LOCKED
    `)
}

func (r *PGRepository) MarkBarcodeUsed(ctx context.Context, b *model.Barcode) error {
	_, err := r.conn(ctx).NamedExecContext(ctx, `
        UPDATE barcode
        SET available = FALSE, used_at = :used_at, used_by_id = :used_by_id, used_for = :used_for
        WHERE id = :id
    `, b)
	return err
}

func (r *PGRepository) AllBarcodes(ctx context.Context) ([]model.Barcode, error) {
	var codes []model.Barcode
	err := r.conn(ctx).SelectContext(ctx, &codes, `SELECT * FROM barcode ORDER BY seq`)
	return codes, err
}

// LatestStockChange returns the head of the product's history chain.
func (r *PGRepository) LatestStockChange(ctx context.Context, productID string) (*model.StockLevelHistory, error) {
	return get[model.StockLevelHistory](ctx, r.conn(ctx), `
        SELECT h.* FROM stock_level_history h
        WHERE h.product_id = $1
          AND NOT EXISTS (SELECT 1 FROM stock_level_history n WHERE n.previous_change_id = h.id)
        ORDER BY h.timestamp DESC
        LIMIT 1
    `, productID)
}

func (r *PGRepository) AppendStockChange(ctx context.Context, h *model.StockLevelHistory) error {
	_, err := r.conn(ctx).NamedExecContext(ctx, `
        INSERT INTO stock_level_history (id, product_id, previous_change_id, stock_level, source, user_id, timestamp)
        VALUES (:id, :product_id, :previous_change_id, :stock_level, :source, :user_id, :timestamp)
    `, h)
	return duplicate(err)
}

func (r *PGRepository) AllStockChanges(ctx context.Context) ([]model.StockLevelHistory, error) {
	var rows []model.StockLevelHistory
	err := r.conn(ctx).SelectContext(ctx, &rows, `SELECT * FROM stock_level_history ORDER BY product_id, timestamp`)
	return rows, err
}

func (r *PGRepository) CreateBay(ctx context.Context, b *model.Bay) error {
	_, err := r.conn(ctx).NamedExecContext(ctx,
		`INSERT INTO bay (id, name, warehouse, active) VALUES (:id, :name, :warehouse, :active)`, b)
	return duplicate(err)
}

func (r *PGRepository) ListBays(ctx context.Context) ([]model.Bay, error) {
	var bays []model.Bay
	err := r.conn(ctx).SelectContext(ctx, &bays, `SELECT * FROM bay ORDER BY warehouse, name`)
	return bays, err
}

func (r *PGRepository) ListProductBays(ctx context.Context, productID string) ([]model.Bay, error) {
	var bays []model.Bay
	err := r.conn(ctx).SelectContext(ctx, &bays, `
        SELECT b.* FROM bay b
        JOIN product_bay_link l ON l.bay_id = b.id
        WHERE l.product_id = $1
        ORDER BY b.warehouse, b.name
    `, productID)
	return bays, err
}

func (r *PGRepository) AddProductBay(ctx context.Context, link *model.ProductBayLink) error {
	_, err := r.conn(ctx).NamedExecContext(ctx,
		`INSERT INTO product_bay_link (id, product_id, bay_id) VALUES (:id, :product_id, :bay_id)`, link)
	return duplicate(err)
}

func (r *PGRepository) RemoveProductBay(ctx context.Context, productID, bayID string) error {
	_, err := r.conn(ctx).ExecContext(ctx,
		`DELETE FROM product_bay_link WHERE product_id = $1 AND bay_id = $2`, productID, bayID)
	return err
}

func (r *PGRepository) AppendBayHistory(ctx context.Context, h *model.ProductBayHistory) error {
	_, err := r.conn(ctx).NamedExecContext(ctx, `
        INSERT INTO product_bay_history (id, product_id, bay_id, change, user_id, timestamp)
        VALUES (:id, :product_id, :bay_id, :change, :user_id, :timestamp)
    `, h)
	return err
}

func (r *PGRepository) CreateLookup(ctx context.Context, kind model.LookupKind, l *model.Lookup) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, name, active) VALUES (:id, :name, :active)`, pq.QuoteIdentifier(kind.Table()))
	_, err := r.conn(ctx).NamedExecContext(ctx, query, l)
	return duplicate(err)
}

func (r *PGRepository) ListLookups(ctx context.Context, kind model.LookupKind, activeOnly bool) ([]model.Lookup, error) {
	query := fmt.Sprintf(`SELECT * FROM %s`, pq.QuoteIdentifier(kind.Table()))
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`
	var rows []model.Lookup
	err := r.conn(ctx).SelectContext(ctx, &rows, query)
	return rows, err
}

func (r *PGRepository) CreateVATRate(ctx context.Context, v *model.VATRate) error {
	_, err := r.conn(ctx).NamedExecContext(ctx,
		`INSERT INTO vat_rate (id, name, percentage, active) VALUES (:id, :name, :percentage, :active)`, v)
	return duplicate(err)
}

func (r *PGRepository) ListVATRates(ctx context.Context, activeOnly bool) ([]model.VATRate, error) {
	query := `SELECT * FROM vat_rate`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY percentage, name`
	var rows []model.VATRate
	err := r.conn(ctx).SelectContext(ctx, &rows, query)
	return rows, err
}
