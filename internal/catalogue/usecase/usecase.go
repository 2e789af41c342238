package usecase

import (
	"context"
	"errors"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var barcodePattern = regexp.MustCompile(`^[0-9]{8,14}$`)

type catalogueUseCase struct {
	repo      catalogue.Repository
	tx        catalogue.TxManager
	skus      *catalogue.SKUGenerator
	cache     catalogue.ListCache
	index     catalogue.SearchIndex
	indexName string
	indexOnce sync.Once
	logger    logger.ZapLogger
	now       func() time.Time
}

type Option func(*catalogueUseCase)

func WithCache(c catalogue.ListCache) Option {
	return func(uc *catalogueUseCase) { uc.cache = c }
}

func WithSearchIndex(index catalogue.SearchIndex, name string) Option {
	return func(uc *catalogueUseCase) {
		uc.index = index
		uc.indexName = name
	}
}

// WithSKUSource replaces the random SKU source, e.g. to saturate it in tests.
func WithSKUSource(source func() string) Option {
	return func(uc *catalogueUseCase) { uc.skus.Source = source }
}

func WithClock(now func() time.Time) Option {
	return func(uc *catalogueUseCase) { uc.now = now }
}

func NewCatalogueUseCase(repo catalogue.Repository, tx catalogue.TxManager, log logger.ZapLogger, opts ...Option) catalogue.UseCase {
	uc := &catalogueUseCase{
		repo:      repo,
		tx:        tx,
		skus:      &catalogue.SKUGenerator{Exists: repo.SKUExists},
		indexName: "product_ranges",
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *catalogueUseCase) CreateRange(ctx context.Context, input *dto.CreateRangeInput) (*model.ProductRange, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Invalid("catalogue.CreateRange", map[string]string{"name": "This field is required."})
	}

	var pr *model.ProductRange
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		sku, err := uc.skus.RangeSKU(ctx)
		if err != nil {
			return err
		}
		now := uc.now()
		pr = &model.ProductRange{
			BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			SKU:         sku,
			Name:        name,
			Department:  strings.TrimSpace(input.Department),
			Description: input.Description,
			SearchTerms: input.SearchTerms,
			Status:      model.RangeStatusCreating,
		}
		if input.ManagedByID != "" {
			managedBy := input.ManagedByID
			pr.ManagedByID = &managedBy
		}
		return uc.repo.CreateRange(ctx, pr)
	})
	if err != nil {
		return nil, err
	}
	uc.logger.Info("range created", zap.String("range_id", pr.ID), zap.String("sku", pr.SKU))
	return pr, nil
}

func (uc *catalogueUseCase) GetRange(ctx context.Context, id string) (*model.ProductRange, error) {
	pr, err := uc.repo.FindRangeByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		return nil, apperr.Newf(apperr.NotFound, "catalogue.GetRange", "range %s not found", id)
	}
	return pr, nil
}

func (uc *catalogueUseCase) LoadTree(ctx context.Context, rangeID string) (*catalogue.Tree, error) {
	products, err := uc.repo.ListProducts(ctx, rangeID)
	if err != nil {
		return nil, err
	}
	rangeOptions, err := uc.repo.ListRangeOptions(ctx, rangeID)
	if err != nil {
		return nil, err
	}
	options := make([]catalogue.TreeOption, 0, len(rangeOptions))
	for _, ro := range rangeOptions {
		o, err := uc.repo.FindOptionByID(ctx, ro.OptionID)
		if err != nil {
			return nil, err
		}
		if o == nil {
			continue
		}
		options = append(options, catalogue.TreeOption{Option: *o, Variation: ro.Variation, PreExisting: true})
	}
	links, err := uc.repo.ListRangeValueLinks(ctx, rangeID)
	if err != nil {
		return nil, err
	}
	valueIDs := make([]string, 0, len(links))
	for _, l := range links {
		valueIDs = append(valueIDs, l.OptionValueID)
	}
	values, err := uc.repo.FindOptionValuesByIDs(ctx, valueIDs)
	if err != nil {
		return nil, err
	}
	return catalogue.NewTree(rangeID, products, options, values, links), nil
}

func (uc *catalogueUseCase) GetRangeDetail(ctx context.Context, id string) (*dto.RangeDetail, error) {
	pr, err := uc.GetRange(ctx, id)
	if err != nil {
		return nil, err
	}
	tree, err := uc.LoadTree(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &dto.RangeDetail{
		Range:                 *pr,
		VariationOptionValues: optionValues(tree.VariationOptionValues()),
		ListingOptionValues:   optionValues(tree.ListingOptionValues()),
	}
	for _, p := range tree.Products {
		level, err := uc.StockLevel(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		bays, err := uc.repo.ListProductBays(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		detail.Products = append(detail.Products, dto.ProductDetail{
			Product:      p,
			VariationKey: tree.VariationKey(p.ID).Map(),
			StockLevel:   level,
			Bays:         bays,
		})
	}
	return detail, nil
}

func optionValues(lists []catalogue.OptionValueList) []dto.OptionValues {
	out := make([]dto.OptionValues, 0, len(lists))
	for _, l := range lists {
		ov := dto.OptionValues{Option: l.Option.Name}
		for _, v := range l.Values {
			ov.Values = append(ov.Values, v.Value)
		}
		out = append(out, ov)
	}
	return out
}

// CompleteRange marks the range COMPLETE after checking the variation rules.
// Completing an already complete range keeps its original completion stamp.
func (uc *catalogueUseCase) CompleteRange(ctx context.Context, rangeID, userID string) error {
	const op = "catalogue.CompleteRange"
	return uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		pr, err := uc.GetRange(ctx, rangeID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(pr.Name) == "" {
			return apperr.New(apperr.InvalidState, op, "Range has no name")
		}
		tree, err := uc.LoadTree(ctx, rangeID)
		if err != nil {
			return err
		}
		if len(tree.Products) == 0 {
			return apperr.New(apperr.InvalidState, op, "Range has no products")
		}
		if err := tree.CheckVariations(op); err != nil {
			return err
		}

		now := uc.now()
		if pr.Status != model.RangeStatusComplete {
			pr.Status = model.RangeStatusComplete
			pr.CompletedAt = &now
			if userID != "" {
				pr.CompletedByID = &userID
			}
		}
		pr.ErrorMessage = ""
		pr.UpdatedAt = now
		return uc.repo.UpdateRange(ctx, pr)
	})
}

// RecordRangeError stores message on the range. Ranges that never completed
// move to ERROR; COMPLETE is kept.
func (uc *catalogueUseCase) RecordRangeError(ctx context.Context, rangeID, message string) error {
	return uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		pr, err := uc.GetRange(ctx, rangeID)
		if err != nil {
			return err
		}
		if pr.Status != model.RangeStatusComplete {
			pr.Status = model.RangeStatusError
		}
		pr.ErrorMessage = message
		pr.UpdatedAt = uc.now()
		return uc.repo.UpdateRange(ctx, pr)
	})
}

func (uc *catalogueUseCase) GenerateRangeSKU(ctx context.Context) (string, error) {
	return uc.skus.RangeSKU(ctx)
}

func (uc *catalogueUseCase) GenerateProductSKU(ctx context.Context) (string, error) {
	return uc.skus.ProductSKU(ctx)
}

func (uc *catalogueUseCase) ProvisionBarcodes(ctx context.Context, codes []string) error {
	fields := map[string]string{}
	rows := make([]model.Barcode, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if !barcodePattern.MatchString(code) {
			fields[code] = "Barcodes must be 8 to 14 digits."
			continue
		}
		rows = append(rows, model.Barcode{ID: uuid.New().String(), Barcode: code, Available: true})
	}
	if len(fields) > 0 {
		return apperr.Invalid("catalogue.ProvisionBarcodes", fields)
	}
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		return uc.repo.AddBarcodes(ctx, rows)
	})
	if errors.Is(err, catalogue.ErrDuplicate) {
		return apperr.Wrap(apperr.InvalidInput, "catalogue.ProvisionBarcodes", err)
	}
	return err
}

func (uc *catalogueUseCase) AllocateBarcode(ctx context.Context, input *dto.AllocateBarcodeInput) (string, error) {
	var code string
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := uc.repo.DrawBarcode(ctx)
		if err != nil {
			return err
		}
		if b == nil {
			return apperr.New(apperr.ResourceExhausted, "catalogue.AllocateBarcode",
				"The barcode pool is empty. Add more barcodes before creating products.")
		}
		now := uc.now()
		b.Available = false
		b.UsedAt = &now
		if input.UserID != "" {
			b.UsedByID = &input.UserID
		}
		if input.UsedFor != "" {
			b.UsedFor = &input.UsedFor
		}
		if err := uc.repo.MarkBarcodeUsed(ctx, b); err != nil {
			return err
		}
		code = b.Barcode
		return nil
	})
	if err != nil {
		catalogue.BarcodesAllocated.WithLabelValues("failed").Inc()
		return "", err
	}
	catalogue.BarcodesAllocated.WithLabelValues("ok").Inc()
	return code, nil
}

var stockSources = []model.StockChangeSource{
	model.StockSourceUser, model.StockSourceOrder, model.StockSourceReturn, model.StockSourceInitial,
}

// SetStockLevel appends a history row chained to the product's latest one.
func (uc *catalogueUseCase) SetStockLevel(ctx context.Context, input *dto.SetStockLevelInput) (*model.StockLevelHistory, error) {
	const op = "catalogue.SetStockLevel"
	if input.StockLevel < 0 {
		return nil, apperr.Invalid(op, map[string]string{"stock_level": "Stock level cannot be negative."})
	}
	if !slices.Contains(stockSources, input.Source) {
		return nil, apperr.Invalid(op, map[string]string{"source": "Unknown stock change source."})
	}

	var h *model.StockLevelHistory
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := uc.repo.FindProductByID(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.Newf(apperr.NotFound, op, "product %s not found", input.ProductID)
		}
		latest, err := uc.repo.LatestStockChange(ctx, p.ID)
		if err != nil {
			return err
		}
		h = &model.StockLevelHistory{
			ID:         uuid.New().String(),
			ProductID:  p.ID,
			StockLevel: input.StockLevel,
			Source:     input.Source,
			Timestamp:  uc.now(),
		}
		if latest != nil {
			h.PreviousChangeID = &latest.ID
		}
		if input.UserID != "" {
			h.UserID = &input.UserID
		}
		return uc.repo.AppendStockChange(ctx, h)
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (uc *catalogueUseCase) StockLevel(ctx context.Context, productID string) (int, error) {
	latest, err := uc.repo.LatestStockChange(ctx, productID)
	if err != nil || latest == nil {
		return 0, err
	}
	return latest.StockLevel, nil
}

// SetProductBays replaces the product's bay set and records one history row
// per added or removed bay.
func (uc *catalogueUseCase) SetProductBays(ctx context.Context, input *dto.SetProductBaysInput) error {
	const op = "catalogue.SetProductBays"
	return uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := uc.repo.FindProductByID(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.Newf(apperr.NotFound, op, "product %s not found", input.ProductID)
		}
		allBays, err := uc.repo.ListBays(ctx)
		if err != nil {
			return err
		}
		known := map[string]bool{}
		for _, b := range allBays {
			known[b.ID] = true
		}
		wanted := map[string]bool{}
		for _, id := range input.BayIDs {
			if !known[id] {
				return apperr.Invalid(op, map[string]string{"bays": "Unknown bay " + id})
			}
			wanted[id] = true
		}
		current, err := uc.repo.ListProductBays(ctx, p.ID)
		if err != nil {
			return err
		}
		have := map[string]bool{}
		for _, b := range current {
			have[b.ID] = true
		}

		var userID *string
		if input.UserID != "" {
			userID = &input.UserID
		}
		now := uc.now()
		for _, b := range current {
			if wanted[b.ID] {
				continue
			}
			if err := uc.repo.RemoveProductBay(ctx, p.ID, b.ID); err != nil {
				return err
			}
			if err := uc.repo.AppendBayHistory(ctx, &model.ProductBayHistory{
				ID: uuid.New().String(), ProductID: p.ID, BayID: b.ID, Change: model.BayRemoved, UserID: userID, Timestamp: now,
			}); err != nil {
				return err
			}
		}
		for _, id := range input.BayIDs {
			if have[id] {
				continue
			}
			have[id] = true
			if err := uc.repo.AddProductBay(ctx, &model.ProductBayLink{ID: uuid.New().String(), ProductID: p.ID, BayID: id}); err != nil {
				return err
			}
			if err := uc.repo.AppendBayHistory(ctx, &model.ProductBayHistory{
				ID: uuid.New().String(), ProductID: p.ID, BayID: id, Change: model.BayAdded, UserID: userID, Timestamp: now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (uc *catalogueUseCase) ListLookups(ctx context.Context, kind model.LookupKind) ([]model.Lookup, error) {
	if !slices.Contains(model.LookupKinds, kind) {
		return nil, apperr.Newf(apperr.NotFound, "catalogue.ListLookups", "unknown lookup %q", kind)
	}
	return uc.repo.ListLookups(ctx, kind, true)
}

func (uc *catalogueUseCase) ListVATRates(ctx context.Context) ([]model.VATRate, error) {
	return uc.repo.ListVATRates(ctx, true)
}

func (uc *catalogueUseCase) ListOptions(ctx context.Context) ([]model.ProductOption, error) {
	return uc.repo.ListOptions(ctx)
}

func (uc *catalogueUseCase) ListOptionValues(ctx context.Context, optionID string) ([]model.ProductOptionValue, error) {
	return uc.repo.ListOptionValues(ctx, optionID)
}

func (uc *catalogueUseCase) GetOrCreateOption(ctx context.Context, name string) (*model.ProductOption, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Invalid("catalogue.GetOrCreateOption", map[string]string{"option": "Option name is required."})
	}
	o, err := uc.repo.FindOptionByName(ctx, name)
	if err != nil || o != nil {
		return o, err
	}
	existing, err := uc.repo.ListOptions(ctx)
	if err != nil {
		return nil, err
	}
	o = &model.ProductOption{ID: uuid.New().String(), Name: name, Ordering: len(existing), Active: true}
	if err := uc.repo.CreateOption(ctx, o); err != nil {
		if errors.Is(err, catalogue.ErrDuplicate) {
			return uc.repo.FindOptionByName(ctx, name)
		}
		return nil, err
	}
	return o, nil
}

func (uc *catalogueUseCase) GetOrCreateOptionValue(ctx context.Context, optionID, value string) (*model.ProductOptionValue, error) {
	const op = "catalogue.GetOrCreateOptionValue"
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperr.Invalid(op, map[string]string{"value": "Option values cannot be blank."})
	}
	o, err := uc.repo.FindOptionByID(ctx, optionID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.Newf(apperr.NotFound, op, "option %s not found", optionID)
	}
	v, err := uc.repo.FindOptionValue(ctx, optionID, value)
	if err != nil || v != nil {
		return v, err
	}
	v = &model.ProductOptionValue{ID: uuid.New().String(), OptionID: optionID, Value: value}
	if err := uc.repo.CreateOptionValue(ctx, v); err != nil {
		if errors.Is(err, catalogue.ErrDuplicate) {
			return uc.repo.FindOptionValue(ctx, optionID, value)
		}
		return nil, err
	}
	return v, nil
}
