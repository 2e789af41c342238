package dto

import "github.com/fekuna/omnipos-backoffice/internal/model"

type CreateRangeInput struct {
	Name        string
	Department  string
	Description string
	SearchTerms string
	ManagedByID string
}

type SetStockLevelInput struct {
	ProductID  string
	StockLevel int
	Source     model.StockChangeSource
	UserID     string
}

type SetProductBaysInput struct {
	ProductID string
	BayIDs    []string
	UserID    string
}

type AllocateBarcodeInput struct {
	UserID  string
	UsedFor string
}
