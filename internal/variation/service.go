package variation

import (
	"context"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/draft"
	"github.com/fekuna/omnipos-backoffice/internal/draft/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"go.uber.org/zap"
)

// Selection names an option and its values as submitted by the editor.
type Selection struct {
	Option string
	Values []string
}

type Service struct {
	drafts    draft.UseCase
	catalogue catalogue.UseCase
	tx        catalogue.TxManager
	logger    logger.ZapLogger
}

func NewService(drafts draft.UseCase, cat catalogue.UseCase, tx catalogue.TxManager, log logger.ZapLogger) *Service {
	return &Service{drafts: drafts, catalogue: cat, tx: tx, logger: log}
}

// Axes resolves selections into options and values, creating the ones that
// do not exist yet.
func (s *Service) Axes(ctx context.Context, selections []Selection) ([]Axis, error) {
	axes := make([]Axis, 0, len(selections))
	for _, sel := range selections {
		name := strings.TrimSpace(sel.Option)
		if name == "" {
			return nil, apperr.Invalid("variation.Axes", map[string]string{"options": "Option name is required."})
		}
		o, err := s.catalogue.GetOrCreateOption(ctx, name)
		if err != nil {
			return nil, err
		}
		axis := Axis{Option: *o}
		for _, raw := range sel.Values {
			value := strings.TrimSpace(raw)
			if value == "" {
				continue
			}
			v, err := s.catalogue.GetOrCreateOptionValue(ctx, o.ID, value)
			if err != nil {
				return nil, err
			}
			axis.Values = append(axis.Values, *v)
		}
		axes = append(axes, axis)
	}
	return axes, nil
}

// Tuples maps rows of value names, one name per axis, onto tuples.
func Tuples(axes []Axis, rows [][]string) ([]Tuple, error) {
	const op = "variation.Tuples"
	out := make([]Tuple, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(axes) {
			return nil, apperr.Invalid(op, map[string]string{"excluded": "Each combination needs one value per option."})
		}
		t := make(Tuple, len(axes))
		for i, name := range row {
			found := false
			for _, v := range axes[i].Values {
				if v.Value == strings.TrimSpace(name) {
					t[i], found = v, true
					break
				}
			}
			if !found {
				return nil, apperr.Invalid(op, map[string]string{"excluded": "Unknown value " + name + " for option " + axes[i].Option.Name + "."})
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// Setup makes the axes the draft's variation options and brings the draft's
// products in line with them. A draft holding only its newly created initial
// variation is split into the variations; otherwise the products are
// reconciled.
func (s *Service) Setup(ctx context.Context, editID string, axes []Axis, excluded []Tuple) error {
	expanded, err := Expand(axes)
	if err != nil {
		return err
	}
	if _, err := Remaining(expanded, excluded); err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.drafts.LoadDraft(ctx, editID)
		if err != nil {
			return err
		}
		if err := s.drafts.SetRangeOptions(ctx, editID, rangeOptions(d, axes)); err != nil {
			return err
		}

		if initial, ok := initialVariation(d, axes); ok {
			remaining, _ := Remaining(expanded, excluded)
			return s.CreateVariations(ctx, editID, initial.ID, remaining)
		}
		return s.Reconcile(ctx, editID, expanded, excluded)
	})
}

// rangeOptions keeps the draft's listing options that are not axes and marks
// every axis as a variation option. Variation options missing from axes are
// dropped, which the draft refuses for pre-existing ones.
func rangeOptions(d *draft.Draft, axes []Axis) []dto.RangeOptionInput {
	isAxis := map[string]bool{}
	opts := make([]dto.RangeOptionInput, 0, len(axes)+len(d.Tree.Options))
	for _, a := range axes {
		isAxis[a.Option.ID] = true
		opts = append(opts, dto.RangeOptionInput{OptionID: a.Option.ID, Variation: true})
	}
	for _, o := range d.Tree.Options {
		if !isAxis[o.Option.ID] && !o.Variation {
			opts = append(opts, dto.RangeOptionInput{OptionID: o.Option.ID, Variation: o.Variation})
		}
	}
	return opts
}

func initialVariation(d *draft.Draft, axes []Axis) (*model.PartialProduct, bool) {
	if len(d.Products) != 1 || d.Products[0].PreExisting {
		return nil, false
	}
	p := &d.Products[0]
	for _, a := range axes {
		if _, ok := d.Tree.ProductValue(p.ID, a.Option.ID); ok {
			return nil, false
		}
	}
	return p, true
}

// Reconcile keeps the products whose key is in expanded minus excluded,
// creates the missing ones from the range-wide values and deletes products
// invented in this draft that are no longer wanted. A pre-existing product
// that would be dropped fails the whole call.
func (s *Service) Reconcile(ctx context.Context, editID string, expanded, excluded []Tuple) error {
	const op = "variation.Reconcile"
	remaining, err := Remaining(expanded, excluded)
	if err != nil {
		return err
	}
	options := optionIDs(expanded)

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.drafts.LoadDraft(ctx, editID)
		if err != nil {
			return err
		}

		want := make(map[string]bool, len(remaining))
		for _, t := range remaining {
			want[t.Key()] = true
		}
		have := map[string]bool{}
		var stale []model.PartialProduct
		for _, p := range d.Products {
			key, ok := productKey(d.Tree, p.ID, options)
			if ok && want[key] && !have[key] {
				have[key] = true
				continue
			}
			if p.PreExisting {
				return apperr.Newf(apperr.InvalidState, op,
					"Variation %s: cannot silently drop an existing variation; mark end-of-line instead", p.SKU)
			}
			stale = append(stale, p)
		}

		created := 0
		for _, t := range remaining {
			if have[t.Key()] {
				continue
			}
			if _, err := s.drafts.CreateProduct(ctx, editID, &dto.NewProductInput{ValueIDs: t.ValueIDs()}); err != nil {
				return err
			}
			created++
		}
		for _, p := range stale {
			if err := s.drafts.DeleteProduct(ctx, editID, p.ID); err != nil {
				return err
			}
		}
		if err := s.drafts.AdmitOptionValues(ctx, editID, paletteOf(expanded)); err != nil {
			return err
		}

		s.logger.Info("variations reconciled", zap.String("edit_id", editID),
			zap.Int("created", created), zap.Int("deleted", len(stale)), zap.Int("kept", len(have)))
		return nil
	})
}

// CreateVariations replaces the initial variation with one product per
// tuple. Each product copies the initial variation's attributes and listing
// values.
func (s *Service) CreateVariations(ctx context.Context, editID, productID string, tuples []Tuple) error {
	const op = "variation.CreateVariations"
	if len(tuples) == 0 {
		return apperr.Invalid(op, map[string]string{"options": "Select at least one combination."})
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.drafts.LoadDraft(ctx, editID)
		if err != nil {
			return err
		}
		initial, ok := d.Product(productID)
		if !ok {
			return apperr.Newf(apperr.NotFound, op, "product %s not found in edit %s", productID, editID)
		}
		if initial.PreExisting {
			return apperr.New(apperr.InvalidState, op, "cannot silently drop an existing variation; mark end-of-line instead")
		}

		axisOption := map[string]bool{}
		for _, id := range optionIDs(tuples) {
			axisOption[id] = true
		}
		var listing []string
		for _, valueID := range d.Tree.Links[initial.ID] {
			if !axisOption[d.Tree.Values[valueID].OptionID] {
				listing = append(listing, valueID)
			}
		}

		for _, t := range tuples {
			info := initial.ProductInfo
			input := &dto.NewProductInput{
				ValueIDs: append(t.ValueIDs(), listing...),
				Info:     &info,
			}
			if _, err := s.drafts.CreateProduct(ctx, editID, input); err != nil {
				return err
			}
		}
		if err := s.drafts.DeleteProduct(ctx, editID, initial.ID); err != nil {
			return err
		}
		if err := s.drafts.AdmitOptionValues(ctx, editID, paletteOf(tuples)); err != nil {
			return err
		}
		s.logger.Info("variations created", zap.String("edit_id", editID), zap.Int("count", len(tuples)))
		return nil
	})
}

func paletteOf(tuples []Tuple) []string {
	seen := map[string]bool{}
	var ids []string
	for _, t := range tuples {
		for _, v := range t {
			if !seen[v.ID] {
				seen[v.ID] = true
				ids = append(ids, v.ID)
			}
		}
	}
	return ids
}
