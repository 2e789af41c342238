package usecase

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	catdto "github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/draft"
	"github.com/fekuna/omnipos-backoffice/internal/draft/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type draftUseCase struct {
	repo      draft.Repository
	live      catalogue.Repository
	catalogue catalogue.UseCase
	tx        catalogue.TxManager
	publisher draft.EventPublisher
	logger    logger.ZapLogger
	now       func() time.Time
}

type Option func(*draftUseCase)

func WithPublisher(p draft.EventPublisher) Option {
	return func(uc *draftUseCase) { uc.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(uc *draftUseCase) { uc.now = now }
}

func NewDraftUseCase(repo draft.Repository, live catalogue.Repository, cat catalogue.UseCase, tx catalogue.TxManager, log logger.ZapLogger, opts ...Option) draft.UseCase {
	uc := &draftUseCase{
		repo:      repo,
		live:      live,
		catalogue: cat,
		tx:        tx,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func newID() string {
	return uuid.New().String()
}

func (uc *draftUseCase) StartRange(ctx context.Context, input *catdto.CreateRangeInput, userID string) (*model.ProductEdit, error) {
	in := *input
	if in.ManagedByID == "" {
		in.ManagedByID = userID
	}
	var edit *model.ProductEdit
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		pr, err := uc.catalogue.CreateRange(ctx, &in)
		if err != nil {
			return err
		}
		edit, err = uc.OpenEdit(ctx, pr.ID, userID)
		return err
	})
	return edit, err
}

func (uc *draftUseCase) OpenEdit(ctx context.Context, rangeID, userID string) (*model.ProductEdit, error) {
	const op = "draft.OpenEdit"
	var edit *model.ProductEdit
	created := false
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		existing, err := uc.repo.FindEditByRangeID(ctx, rangeID)
		if err != nil {
			return err
		}
		if existing != nil {
			edit = existing
			return nil
		}
		pr, err := uc.CopyRange(ctx, rangeID)
		if err != nil {
			return err
		}
		edit = &model.ProductEdit{
			ID:             newID(),
			UserID:         userID,
			PartialRangeID: pr.ID,
			ProductRangeID: &rangeID,
			CreatedAt:      uc.now(),
		}
		created = true
		return uc.repo.CreateEdit(ctx, edit)
	})
	if errors.Is(err, catalogue.ErrDuplicate) {
		// Another request opened the range first.
		existing, ferr := uc.repo.FindEditByRangeID(ctx, rangeID)
		if ferr != nil || existing == nil {
			return nil, err
		}
		edit, err, created = existing, nil, false
	}
	if err != nil {
		return nil, err
	}
	if edit.UserID != userID {
		return nil, apperr.Conflict(op, edit.UserID)
	}
	if created {
		uc.logger.Info("product edit opened",
			zap.String("edit_id", edit.ID), zap.String("range_id", rangeID), zap.String("user_id", userID))
	}
	return edit, nil
}

// CopyRange mirrors the live range, its options, products and value links
// into a new draft. Every copied row is marked pre-existing.
func (uc *draftUseCase) CopyRange(ctx context.Context, rangeID string) (*model.PartialProductRange, error) {
	var out *model.PartialProductRange
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		live, err := uc.catalogue.GetRange(ctx, rangeID)
		if err != nil {
			return err
		}
		products, err := uc.live.ListProducts(ctx, rangeID)
		if err != nil {
			return err
		}
		rangeOptions, err := uc.live.ListRangeOptions(ctx, rangeID)
		if err != nil {
			return err
		}
		links, err := uc.live.ListRangeValueLinks(ctx, rangeID)
		if err != nil {
			return err
		}

		now := uc.now()
		originalID := live.ID
		pr := &model.PartialProductRange{ProductRange: *live, OriginalRangeID: &originalID, PreExisting: true}
		pr.BaseModel = model.BaseModel{ID: newID(), CreatedAt: now, UpdatedAt: now}
		if err := uc.repo.CreatePartialRange(ctx, pr); err != nil {
			return err
		}

		opts := make([]model.PartialRangeOption, 0, len(rangeOptions))
		for _, ro := range rangeOptions {
			opts = append(opts, model.PartialRangeOption{
				RangeOption: model.RangeOption{ID: newID(), OptionID: ro.OptionID, Variation: ro.Variation},
				PreExisting: true,
			})
		}
		if err := uc.repo.ReplacePartialRangeOptions(ctx, pr.ID, opts); err != nil {
			return err
		}

		draftIDs := make(map[string]string, len(products))
		for _, p := range products {
			liveID := p.ID
			dp := &model.PartialProduct{Product: p, OriginalProductID: &liveID, PreExisting: true}
			dp.BaseModel = model.BaseModel{ID: newID(), CreatedAt: now, UpdatedAt: now}
			dp.RangeID = pr.ID
			if err := uc.repo.CreatePartialProduct(ctx, dp); err != nil {
				return err
			}
			draftIDs[p.ID] = dp.ID
		}

		valueIDs := map[string][]string{}
		for _, l := range links {
			valueIDs[l.ProductID] = append(valueIDs[l.ProductID], l.OptionValueID)
		}
		for liveID, ids := range valueIDs {
			if err := uc.repo.ReplacePartialProductValueLinks(ctx, draftIDs[liveID], ids); err != nil {
				return err
			}
		}
		out = pr
		return nil
	})
	return out, err
}

func (uc *draftUseCase) EditFor(ctx context.Context, rangeID, userID string) (*model.ProductEdit, error) {
	const op = "draft.EditFor"
	edit, err := uc.repo.FindEditByRangeID(ctx, rangeID)
	if err != nil {
		return nil, err
	}
	if edit == nil {
		return nil, apperr.Newf(apperr.NotFound, op, "range %s is not being edited", rangeID)
	}
	if edit.UserID != userID {
		return nil, apperr.Conflict(op, edit.UserID)
	}
	return edit, nil
}

// EditForProduct returns the edit owning the draft product.
func (uc *draftUseCase) EditForProduct(ctx context.Context, productID, userID string) (*model.ProductEdit, error) {
	const op = "draft.EditForProduct"
	p, err := uc.repo.FindPartialProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.Newf(apperr.NotFound, op, "product %s is not part of a draft", productID)
	}
	edits, err := uc.repo.ListEdits(ctx)
	if err != nil {
		return nil, err
	}
	for i := range edits {
		if edits[i].PartialRangeID != p.RangeID {
			continue
		}
		if edits[i].UserID != userID {
			return nil, apperr.Conflict(op, edits[i].UserID)
		}
		return &edits[i], nil
	}
	return nil, apperr.Newf(apperr.NotFound, op, "product %s is not part of a draft", productID)
}

func (uc *draftUseCase) getEdit(ctx context.Context, op, editID string) (*model.ProductEdit, error) {
	edit, err := uc.repo.FindEditByID(ctx, editID)
	if err != nil {
		return nil, err
	}
	if edit == nil {
		return nil, apperr.Newf(apperr.NotFound, op, "edit %s not found", editID)
	}
	return edit, nil
}

func (uc *draftUseCase) LoadDraft(ctx context.Context, editID string) (*draft.Draft, error) {
	const op = "draft.LoadDraft"
	edit, err := uc.getEdit(ctx, op, editID)
	if err != nil {
		return nil, err
	}
	pr, err := uc.repo.FindPartialRangeByID(ctx, edit.PartialRangeID)
	if err != nil {
		return nil, err
	}
	if pr == nil {
		return nil, apperr.Newf(apperr.NotFound, op, "draft range %s not found", edit.PartialRangeID)
	}
	products, err := uc.repo.ListPartialProducts(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	rangeOptions, err := uc.repo.ListPartialRangeOptions(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	options := make([]catalogue.TreeOption, 0, len(rangeOptions))
	for _, ro := range rangeOptions {
		o, err := uc.live.FindOptionByID(ctx, ro.OptionID)
		if err != nil {
			return nil, err
		}
		if o == nil {
			continue
		}
		options = append(options, catalogue.TreeOption{Option: *o, Variation: ro.Variation, PreExisting: ro.PreExisting})
	}
	links, err := uc.repo.ListPartialValueLinks(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	valueIDs := make([]string, 0, len(links))
	for _, l := range links {
		valueIDs = append(valueIDs, l.OptionValueID)
	}
	values, err := uc.live.FindOptionValuesByIDs(ctx, valueIDs)
	if err != nil {
		return nil, err
	}
	palette, err := uc.repo.ListEditOptionValues(ctx, edit.ID)
	if err != nil {
		return nil, err
	}

	liveProducts := make([]model.Product, len(products))
	for i := range products {
		liveProducts[i] = products[i].Product
	}
	tree := catalogue.NewTree(pr.ID, liveProducts, options, values, links)
	return draft.NewDraft(*edit, *pr, products, tree, palette), nil
}

// ListEdits groups in-progress edits by the user managing the range.
func (uc *draftUseCase) ListEdits(ctx context.Context) ([]dto.EditGroup, error) {
	edits, err := uc.repo.ListEdits(ctx)
	if err != nil {
		return nil, err
	}
	groups := map[string]*dto.EditGroup{}
	for _, e := range edits {
		pr, err := uc.repo.FindPartialRangeByID(ctx, e.PartialRangeID)
		if err != nil {
			return nil, err
		}
		if pr == nil {
			continue
		}
		summary := dto.EditSummary{
			EditID:         e.ID,
			UserID:         e.UserID,
			PartialRangeID: pr.ID,
			SKU:            pr.SKU,
			Name:           pr.Name,
			Status:         pr.Status,
			ManagedByID:    e.UserID,
			CreatedAt:      e.CreatedAt,
		}
		if pr.ManagedByID != nil {
			summary.ManagedByID = *pr.ManagedByID
		}
		if e.ProductRangeID != nil {
			summary.RangeID = *e.ProductRangeID
			live, err := uc.live.FindRangeByID(ctx, summary.RangeID)
			if err != nil {
				return nil, err
			}
			if live != nil {
				summary.Status = live.Status
			}
		}
		g, ok := groups[summary.ManagedByID]
		if !ok {
			g = &dto.EditGroup{ManagedByID: summary.ManagedByID}
			groups[summary.ManagedByID] = g
		}
		g.Edits = append(g.Edits, summary)
	}

	out := make([]dto.EditGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b dto.EditGroup) int { return cmp.Compare(a.ManagedByID, b.ManagedByID) })
	return out, nil
}

func (uc *draftUseCase) UpdateRangeDetails(ctx context.Context, editID string, input *dto.RangeDetailsInput) error {
	const op = "draft.UpdateRangeDetails"
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return apperr.Invalid(op, map[string]string{"name": "This field is required."})
	}
	return uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		edit, err := uc.getEdit(ctx, op, editID)
		if err != nil {
			return err
		}
		pr, err := uc.repo.FindPartialRangeByID(ctx, edit.PartialRangeID)
		if err != nil {
			return err
		}
		if pr == nil {
			return apperr.Newf(apperr.NotFound, op, "draft range %s not found", edit.PartialRangeID)
		}
		pr.Name = name
		pr.Department = strings.TrimSpace(input.Department)
		pr.Description = input.Description
		pr.SearchTerms = input.SearchTerms
		if input.IsEndOfLine != nil {
			pr.IsEndOfLine = *input.IsEndOfLine
		}
		if input.Hidden != nil {
			pr.Hidden = *input.Hidden
		}
		pr.UpdatedAt = uc.now()
		return uc.repo.UpdatePartialRange(ctx, pr)
	})
}

// SetRangeOptions replaces the draft range's options. Pre-existing options
// cannot be removed. Links from products to values of a removed option are
// dropped.
func (uc *draftUseCase) SetRangeOptions(ctx context.Context, editID string, opts []dto.RangeOptionInput) error {
	const op = "draft.SetRangeOptions"
	return uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		d, err := uc.LoadDraft(ctx, editID)
		if err != nil {
			return err
		}
		selected := make(map[string]bool, len(opts))
		for _, o := range opts {
			selected[o.OptionID] = true
		}
		removed := map[string]bool{}
		preExisting := map[string]bool{}
		for _, o := range d.Tree.Options {
			if selected[o.Option.ID] {
				preExisting[o.Option.ID] = o.PreExisting
				continue
			}
			if o.PreExisting {
				return apperr.Newf(apperr.InvalidState, op, "Option %s is used by the live range and cannot be removed", o.Option.Name)
			}
			removed[o.Option.ID] = true
		}

		rows := make([]model.PartialRangeOption, 0, len(opts))
		for _, o := range opts {
			opt, err := uc.live.FindOptionByID(ctx, o.OptionID)
			if err != nil {
				return err
			}
			if opt == nil {
				return apperr.Invalid(op, map[string]string{"options": "Unknown option " + o.OptionID})
			}
			rows = append(rows, model.PartialRangeOption{
				RangeOption: model.RangeOption{ID: newID(), OptionID: o.OptionID, Variation: o.Variation},
				PreExisting: preExisting[o.OptionID],
			})
		}
		if err := uc.repo.ReplacePartialRangeOptions(ctx, d.Range.ID, rows); err != nil {
			if errors.Is(err, catalogue.ErrDuplicate) {
				return apperr.Invalid(op, map[string]string{"options": "Each option may be selected once."})
			}
			return err
		}
		if len(removed) == 0 {
			return nil
		}
		for _, p := range d.Products {
			var keep []string
			changed := false
			for _, valueID := range d.Tree.Links[p.ID] {
				if removed[d.Tree.Values[valueID].OptionID] {
					changed = true
					continue
				}
				keep = append(keep, valueID)
			}
			if changed {
				if err := uc.repo.ReplacePartialProductValueLinks(ctx, p.ID, keep); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (uc *draftUseCase) AdmitOptionValues(ctx context.Context, editID string, valueIDs []string) error {
	const op = "draft.AdmitOptionValues"
	return uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := uc.getEdit(ctx, op, editID); err != nil {
			return err
		}
		valueIDs = uniqueIDs(valueIDs)
		values, err := uc.live.FindOptionValuesByIDs(ctx, valueIDs)
		if err != nil {
			return err
		}
		// A palette holds several values per option; only unknown ids are rejected.
		if len(values) != len(valueIDs) {
			return apperr.Invalid(op, map[string]string{"option_values": "Unknown option value."})
		}
		return uc.repo.AddEditOptionValues(ctx, editID, valueIDs)
	})
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// checkValues rejects unknown values and more than one value per product
// option.
func (uc *draftUseCase) checkValues(ctx context.Context, op string, valueIDs []string) ([]model.ProductOptionValue, error) {
	values, err := uc.live.FindOptionValuesByIDs(ctx, valueIDs)
	if err != nil {
		return nil, err
	}
	if len(values) != len(valueIDs) {
		return nil, apperr.Invalid(op, map[string]string{"option_values": "Unknown option value."})
	}
	seen := map[string]bool{}
	for _, v := range values {
		if seen[v.OptionID] {
			return nil, apperr.Invalid(op, map[string]string{"option_values": "Select one value per option."})
		}
		seen[v.OptionID] = true
	}
	return values, nil
}

// CreateProduct seeds a new draft product from the range-wide values, gives
// it a fresh SKU and links it to the given option values.
func (uc *draftUseCase) CreateProduct(ctx context.Context, editID string, input *dto.NewProductInput) (*model.PartialProduct, error) {
	const op = "draft.CreateProduct"
	var out *model.PartialProduct
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		d, err := uc.LoadDraft(ctx, editID)
		if err != nil {
			return err
		}
		if _, err := uc.checkValues(ctx, op, input.ValueIDs); err != nil {
			return err
		}
		sku, err := uc.catalogue.GenerateProductSKU(ctx)
		if err != nil {
			return err
		}

		now := uc.now()
		p := &model.PartialProduct{}
		p.BaseModel = model.BaseModel{ID: newID(), CreatedAt: now, UpdatedAt: now}
		p.RangeID = d.Range.ID
		p.SKU = sku
		p.Kind = model.ProductKindSingle
		if n := len(d.Products); n > 0 {
			p.RangeOrder = d.Products[n-1].RangeOrder + 1
		}
		d.RangeWideValues().Apply(&p.ProductInfo)
		if input.Info != nil {
			draft.CopyInfo(&p.ProductInfo, input.Info)
		}
		if err := uc.repo.CreatePartialProduct(ctx, p); err != nil {
			return err
		}
		if err := uc.repo.ReplacePartialProductValueLinks(ctx, p.ID, input.ValueIDs); err != nil {
			return err
		}
		if err := uc.repo.AddEditOptionValues(ctx, editID, input.ValueIDs); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (uc *draftUseCase) draftProduct(ctx context.Context, op, editID, productID string) (*model.PartialProduct, error) {
	edit, err := uc.getEdit(ctx, op, editID)
	if err != nil {
		return nil, err
	}
	p, err := uc.repo.FindPartialProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.RangeID != edit.PartialRangeID {
		return nil, apperr.Newf(apperr.NotFound, op, "product %s not found in edit %s", productID, editID)
	}
	return p, nil
}

func (uc *draftUseCase) UpdateProduct(ctx context.Context, editID string, p *model.PartialProduct) error {
	const op = "draft.UpdateProduct"
	return uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := uc.draftProduct(ctx, op, editID, p.ID); err != nil {
			return err
		}
		p.UpdatedAt = uc.now()
		return uc.repo.UpdatePartialProduct(ctx, p)
	})
}

func (uc *draftUseCase) SetProductValues(ctx context.Context, editID, productID string, valueIDs []string) error {
	const op = "draft.SetProductValues"
	return uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := uc.draftProduct(ctx, op, editID, productID); err != nil {
			return err
		}
		if _, err := uc.checkValues(ctx, op, valueIDs); err != nil {
			return err
		}
		if err := uc.repo.ReplacePartialProductValueLinks(ctx, productID, valueIDs); err != nil {
			return err
		}
		return uc.repo.AddEditOptionValues(ctx, editID, valueIDs)
	})
}

// DeleteProduct removes a variation invented in this draft. Variations that
// exist in the live range must be marked end-of-line instead.
func (uc *draftUseCase) DeleteProduct(ctx context.Context, editID, productID string) error {
	const op = "draft.DeleteProduct"
	return uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := uc.draftProduct(ctx, op, editID, productID)
		if err != nil {
			return err
		}
		if p.PreExisting {
			return apperr.New(apperr.InvalidState, op, "cannot silently drop an existing variation; mark end-of-line instead")
		}
		return uc.repo.DeletePartialProduct(ctx, productID)
	})
}
