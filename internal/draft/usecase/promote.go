package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/draft"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"go.uber.org/zap"
)

// Promote copies the draft into its live range and completes it in one
// transaction, then destroys the draft. Rejections leave both sides
// untouched. Unexpected failures also record the error on the live range.
func (uc *draftUseCase) Promote(ctx context.Context, editID, userID string) (*model.ProductRange, error) {
	const op = "draft.Promote"
	start := time.Now()
	var liveID string
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		d, err := uc.LoadDraft(ctx, editID)
		if err != nil {
			return err
		}
		if d.Edit.UserID != userID {
			return apperr.Conflict(op, d.Edit.UserID)
		}
		liveID = d.LiveRangeID()
		if liveID == "" {
			return apperr.New(apperr.InvalidState, op, "Draft is not attached to a range")
		}
		if err := d.Tree.CheckVariations(op); err != nil {
			return err
		}
		if err := checkDraftBarcodes(op, d); err != nil {
			return err
		}
		return uc.promote(ctx, op, d, userID)
	})

	if err != nil {
		if apperr.KindOf(err) != nil {
			draft.Promotions.WithLabelValues("rejected").Inc()
			return nil, err
		}
		draft.Promotions.WithLabelValues("failed").Inc()
		uc.logger.Error("promote failed", zap.String("edit_id", editID), zap.String("range_id", liveID), zap.Error(err))
		if liveID != "" {
			if rerr := uc.catalogue.RecordRangeError(ctx, liveID, err.Error()); rerr != nil {
				uc.logger.Error("failed to record range error", zap.String("range_id", liveID), zap.Error(rerr))
			}
		}
		return nil, err
	}

	draft.Promotions.WithLabelValues("ok").Inc()
	draft.PromoteDuration.Observe(time.Since(start).Seconds())
	uc.logger.Info("range promoted", zap.String("range_id", liveID), zap.String("user_id", userID))

	uc.catalogue.InvalidateSearchCache(ctx)
	if uc.publisher != nil {
		if err := uc.publisher.PublishRangePromoted(ctx, liveID, userID); err != nil {
			uc.logger.Warn("failed to publish range promotion", zap.String("range_id", liveID), zap.Error(err))
		}
	}
	return uc.catalogue.GetRange(ctx, liveID)
}

func checkDraftBarcodes(op string, d *draft.Draft) error {
	seen := map[string]string{}
	for _, p := range d.Products {
		if p.Barcode == "" {
			continue
		}
		if other, ok := seen[p.Barcode]; ok {
			return apperr.Newf(apperr.InvalidState, op, "Products %s and %s share the barcode %s", other, p.SKU, p.Barcode)
		}
		seen[p.Barcode] = p.SKU
	}
	return nil
}

func (uc *draftUseCase) promote(ctx context.Context, op string, d *draft.Draft, userID string) error {
	liveID := d.LiveRangeID()
	now := uc.now()

	live, err := uc.catalogue.GetRange(ctx, liveID)
	if err != nil {
		return err
	}
	live.Name = d.Range.Name
	live.Department = d.Range.Department
	live.Description = d.Range.Description
	live.SearchTerms = d.Range.SearchTerms
	live.IsEndOfLine = d.Range.IsEndOfLine
	live.Hidden = d.Range.Hidden
	live.ManagedByID = d.Range.ManagedByID
	live.UpdatedAt = now
	if err := uc.live.UpdateRange(ctx, live); err != nil {
		return err
	}

	opts := make([]model.RangeOption, 0, len(d.Tree.Options))
	for _, o := range d.Tree.Options {
		opts = append(opts, model.RangeOption{ID: newID(), OptionID: o.Option.ID, Variation: o.Variation})
	}
	if err := uc.live.ReplaceRangeOptions(ctx, liveID, opts); err != nil {
		return err
	}

	existing, err := uc.live.ListProducts(ctx, liveID)
	if err != nil {
		return err
	}
	byID := make(map[string]model.Product, len(existing))
	for _, p := range existing {
		byID[p.ID] = p
	}

	// Products dropped from the draft go first and changing barcodes are
	// cleared, so the final rows never collide with a value still held by a
	// row of this range.
	finalBarcode := map[string]string{}
	for _, dp := range d.Products {
		if original, ok := lookupOriginal(byID, dp.OriginalProductID); ok {
			finalBarcode[original.ID] = dp.Barcode
		}
	}
	for _, p := range existing {
		if _, ok := finalBarcode[p.ID]; ok {
			continue
		}
		if err := uc.live.DeleteProduct(ctx, p.ID); err != nil {
			return err
		}
	}
	for _, p := range existing {
		barcode, ok := finalBarcode[p.ID]
		if !ok || p.Barcode == "" || p.Barcode == barcode {
			continue
		}
		cleared := p
		cleared.Barcode = ""
		cleared.UpdatedAt = now
		if err := uc.live.UpdateProduct(ctx, &cleared); err != nil {
			return err
		}
	}

	for _, dp := range d.Products {
		p := dp.Product
		p.RangeID = liveID
		p.UpdatedAt = now
		if original, ok := lookupOriginal(byID, dp.OriginalProductID); ok {
			p.ID = original.ID
			p.SKU = original.SKU
			p.CreatedAt = original.CreatedAt
			err = uc.live.UpdateProduct(ctx, &p)
		} else {
			p.ID = newID()
			p.CreatedAt = now
			err = uc.live.CreateProduct(ctx, &p)
		}
		if err != nil {
			if errors.Is(err, catalogue.ErrDuplicate) {
				e := apperr.Wrap(apperr.InvalidState, op, err)
				e.Msg = "Product " + p.SKU + " conflicts with an existing product"
				if p.Barcode != "" {
					e.Msg = "Barcode " + p.Barcode + " is already used by another product"
				}
				return e
			}
			return err
		}
		if err := uc.live.ReplaceProductValueLinks(ctx, p.ID, d.Tree.Links[dp.ID]); err != nil {
			return err
		}
	}

	if err := uc.catalogue.CompleteRange(ctx, liveID, userID); err != nil {
		return err
	}
	return uc.repo.DeletePartialRange(ctx, d.Range.ID)
}

func lookupOriginal(live map[string]model.Product, id *string) (model.Product, bool) {
	if id == nil {
		return model.Product{}, false
	}
	p, ok := live[*id]
	return p, ok
}

// Discard destroys the draft and its edit. The live range is not touched.
func (uc *draftUseCase) Discard(ctx context.Context, editID string) error {
	const op = "draft.Discard"
	var edit *model.ProductEdit
	err := uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		edit, err = uc.getEdit(ctx, op, editID)
		if err != nil {
			return err
		}
		return uc.repo.DeletePartialRange(ctx, edit.PartialRangeID)
	})
	if err != nil {
		return err
	}
	uc.logger.Info("product edit discarded", zap.String("edit_id", editID), zap.String("user_id", edit.UserID))
	return nil
}
