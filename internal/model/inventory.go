package model

import "time"

type StockChangeSource string

const (
	StockSourceUser    StockChangeSource = "USER"
	StockSourceOrder   StockChangeSource = "ORDER"
	StockSourceReturn  StockChangeSource = "RETURN"
	StockSourceInitial StockChangeSource = "INITIAL"
)

// StockLevelHistory is an append-only, per-product chained audit entry.
type StockLevelHistory struct {
	ID               string            `db:"id" json:"id"`
	ProductID        string            `db:"product_id" json:"product_id"`
	PreviousChangeID *string           `db:"previous_change_id" json:"previous_change_id"`
	StockLevel       int               `db:"stock_level" json:"stock_level"`
	Source           StockChangeSource `db:"source" json:"source"`
	UserID           *string           `db:"user_id" json:"user_id"`
	Timestamp        time.Time         `db:"timestamp" json:"timestamp"`
}

// Bay is a warehouse location.
type Bay struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Warehouse string `db:"warehouse" json:"warehouse"`
	Active    bool   `db:"active" json:"active"`
}

type ProductBayLink struct {
	ID        string `db:"id" json:"id"`
	ProductID string `db:"product_id" json:"product_id"`
	BayID     string `db:"bay_id" json:"bay_id"`
}

type BayChange string

const (
	BayAdded   BayChange = "ADDED"
	BayRemoved BayChange = "REMOVED"
)

type ProductBayHistory struct {
	ID        string    `db:"id" json:"id"`
	ProductID string    `db:"product_id" json:"product_id"`
	BayID     string    `db:"bay_id" json:"bay_id"`
	Change    BayChange `db:"change" json:"change"`
	UserID    *string   `db:"user_id" json:"user_id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}
