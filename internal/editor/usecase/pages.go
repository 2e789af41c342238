package usecase

import (
	"context"
	"maps"
	"slices"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/draft"
	draftdto "github.com/fekuna/omnipos-backoffice/internal/draft/dto"
	"github.com/fekuna/omnipos-backoffice/internal/editor"
	"github.com/fekuna/omnipos-backoffice/internal/editor/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/variation"
)

func (uc *editorUseCase) apply(ctx context.Context, st *state, page editor.PageID, r editor.Record) error {
	switch page {
	case editor.BasicInfo:
		form, err := editor.BindBasicInfo(r)
		if err != nil {
			return err
		}
		return uc.drafts.UpdateRangeDetails(ctx, st.draft.Edit.ID, form.DetailsInput())
	case editor.ProductInfo:
		return uc.applyProductInfo(ctx, st.draft, r)
	case editor.ListingOptions:
		return uc.applySingleListing(ctx, st.draft, r)
	case editor.VariationOptions:
		form, err := editor.BindVariationOptions(r)
		if err != nil {
			return err
		}
		return uc.setupVariations(ctx, st.draft, form.Selections(), form.ExcludedRows())
	case editor.UnusedVariations:
		form, err := editor.BindUnusedVariations(r)
		if err != nil {
			return err
		}
		selections, err := currentSelections(st)
		if err != nil {
			return err
		}
		return uc.setupVariations(ctx, st.draft, selections, form.ExcludedRows())
	case editor.VariationInfo:
		return uc.applyVariationInfo(ctx, st.draft, r)
	case editor.VariationListingOptions:
		form, err := editor.BindListing(r, true)
		if err != nil {
			return err
		}
		return uc.applyListing(ctx, st.draft, form, "")
	}
	return apperr.Newf(apperr.NotFound, "editor.SubmitPage", "unknown page %q", page)
}

// applyProductInfo turns an empty draft's form into its initial variation.
// Otherwise the submitted fields are written onto every product.
func (uc *editorUseCase) applyProductInfo(ctx context.Context, d *draft.Draft, r editor.Record) error {
	form, err := editor.BindProductInfo(r)
	if err != nil {
		return err
	}
	if len(d.Products) == 0 {
		var info model.ProductInfo
		form.Apply(&info, r)
		_, err := uc.drafts.CreateProduct(ctx, d.Edit.ID, &draftdto.NewProductInput{Info: &info})
		return err
	}
	for _, p := range d.Products {
		updated := p
		form.Apply(&updated.ProductInfo, r)
		if err := uc.drafts.UpdateProduct(ctx, d.Edit.ID, &updated); err != nil {
			return err
		}
	}
	return nil
}

func (uc *editorUseCase) applySingleListing(ctx context.Context, d *draft.Draft, r editor.Record) error {
	const op = "editor.ListingOptions"
	if len(d.Products) != 1 {
		return apperr.New(apperr.InvalidState, op, "Listing options apply to single products only.")
	}
	form, err := editor.BindListing(r, false)
	if err != nil {
		return err
	}
	return uc.applyListing(ctx, d, form, d.Products[0].ID)
}

// currentSelections rebuilds the variation options from the stored variation
// options page, or from the draft when that page was never posted.
func currentSelections(st *state) ([]variation.Selection, error) {
	if rec, ok := st.records[editor.VariationOptions]; ok && !rec.Empty() {
		form, err := editor.BindVariationOptions(rec)
		if err != nil {
			return nil, err
		}
		return form.Selections(), nil
	}
	var out []variation.Selection
	for _, list := range st.draft.Tree.VariationOptionValues() {
		sel := variation.Selection{Option: list.Option.Name}
		for _, v := range list.Values {
			sel.Values = append(sel.Values, v.Value)
		}
		out = append(out, sel)
	}
	return out, nil
}

func (uc *editorUseCase) setupVariations(ctx context.Context, d *draft.Draft, selections []variation.Selection, excludedRows [][]string) error {
	axes, err := uc.variations.Axes(ctx, selections)
	if err != nil {
		return err
	}
	excluded, err := variation.Tuples(axes, excludedRows)
	if err != nil {
		return err
	}
	return uc.variations.Setup(ctx, d.Edit.ID, axes, excluded)
}

// applyVariationInfo validates every posted row before writing any of them.
// Barcodes must differ between the draft's variations.
func (uc *editorUseCase) applyVariationInfo(ctx context.Context, d *draft.Draft, r editor.Record) error {
	const op = "editor.VariationInfo"
	fields := map[string]string{}
	final := map[string]string{}
	var updates []model.PartialProduct

	for _, p := range d.Products {
		final[p.ID] = p.Barcode
		row, rec, err := editor.BindVariationRow(r, p.ID)
		if err != nil {
			fe := apperr.FieldErrors(err)
			if fe == nil {
				return err
			}
			maps.Copy(fields, fe)
			continue
		}
		if rec.Empty() {
			continue
		}
		updated := p
		row.Apply(&updated, rec)
		final[p.ID] = updated.Barcode
		updates = append(updates, updated)
	}

	owner := map[string]string{}
	for _, p := range d.Products {
		barcode := final[p.ID]
		if barcode == "" {
			continue
		}
		if _, taken := owner[barcode]; taken {
			fields["barcode:"+p.ID] = "Barcode is already used by another variation."
			continue
		}
		owner[barcode] = p.ID
	}
	if len(fields) > 0 {
		return apperr.Invalid(op, fields)
	}

	for i := range updates {
		if err := uc.drafts.UpdateProduct(ctx, d.Edit.ID, &updates[i]); err != nil {
			return err
		}
	}
	return nil
}

// applyListing assigns listing option values. With productID set every entry
// applies to that product; otherwise the form names the product per entry.
// Values of the draft's other options are kept.
func (uc *editorUseCase) applyListing(ctx context.Context, d *draft.Draft, form *editor.ListingForm, productID string) error {
	const op = "editor.Listing"
	assigned := map[string]map[string]string{}
	var names []string
	for i, name := range form.Options {
		pid := productID
		if pid == "" {
			pid = form.Products[i]
		}
		if _, ok := d.Product(pid); !ok {
			return apperr.Invalid(op, map[string]string{"product": "Unknown variation."})
		}
		if assigned[pid] == nil {
			assigned[pid] = map[string]string{}
		}
		assigned[pid][name] = form.Values[i]
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil
	}

	options := map[string]model.ProductOption{}
	opts := make([]draftdto.RangeOptionInput, 0, len(d.Tree.Options)+len(names))
	onRange := map[string]bool{}
	for _, o := range d.Tree.Options {
		opts = append(opts, draftdto.RangeOptionInput{OptionID: o.Option.ID, Variation: o.Variation})
		onRange[o.Option.ID] = true
		if o.Variation && slices.Contains(names, o.Option.Name) {
			return apperr.Invalid(op, map[string]string{
				"listing_option": "Option " + o.Option.Name + " is a variation option.",
			})
		}
	}
	for _, name := range names {
		o, err := uc.catalogue.GetOrCreateOption(ctx, name)
		if err != nil {
			return err
		}
		options[name] = *o
		if !onRange[o.ID] {
			opts = append(opts, draftdto.RangeOptionInput{OptionID: o.ID, Variation: false})
			onRange[o.ID] = true
		}
	}
	if err := uc.drafts.SetRangeOptions(ctx, d.Edit.ID, opts); err != nil {
		return err
	}

	for _, pid := range slices.Sorted(maps.Keys(assigned)) {
		values := assigned[pid]
		var ids []string
		for _, o := range d.Tree.Options {
			if _, replaced := values[o.Option.Name]; replaced {
				continue
			}
			if v, ok := d.Tree.ProductValue(pid, o.Option.ID); ok {
				ids = append(ids, v.ID)
			}
		}
		for _, name := range slices.Sorted(maps.Keys(values)) {
			if values[name] == "" {
				continue
			}
			v, err := uc.catalogue.GetOrCreateOptionValue(ctx, options[name].ID, values[name])
			if err != nil {
				return err
			}
			ids = append(ids, v.ID)
		}
		if err := uc.drafts.SetProductValues(ctx, d.Edit.ID, pid, ids); err != nil {
			return err
		}
	}
	return nil
}

func (uc *editorUseCase) view(st *state, page editor.PageID) *dto.PageView {
	d := st.draft
	view := &dto.PageView{
		RangeID:     d.LiveRangeID(),
		EditID:      d.Edit.ID,
		Page:        string(page),
		Title:       page.Title(),
		ProductType: string(st.graph.Type),
		Data:        map[string][]string{},
		Range: &dto.RangeView{
			ID:          d.Range.ID,
			SKU:         d.Range.SKU,
			Name:        d.Range.Name,
			Department:  d.Range.Department,
			Description: d.Range.Description,
			SearchTerms: d.Range.SearchTerms,
			IsEndOfLine: d.Range.IsEndOfLine,
			Hidden:      d.Range.Hidden,
			Status:      d.Range.Status,
		},
		Valid: d.ValidVariations(),
	}
	if rec, ok := st.records[page]; ok {
		view.Data = rec
	}
	for _, p := range editor.Pages() {
		view.Pages = append(view.Pages, dto.PageLink{
			ID:      string(p),
			Title:   p.Title(),
			Enabled: st.graph.Enabled(p),
			Visible: st.graph.Visible(p),
			Stored:  st.graph.Stored[p],
		})
	}
	view.Options = optionViews(d.Tree)
	for i := range d.Products {
		view.Products = append(view.Products, productRow(d, &d.Products[i]))
	}
	return view
}

func optionViews(tree *catalogue.Tree) []dto.OptionView {
	values := map[string][]string{}
	for _, list := range append(tree.VariationOptionValues(), tree.ListingOptionValues()...) {
		for _, v := range list.Values {
			values[list.Option.ID] = append(values[list.Option.ID], v.Value)
		}
	}
	out := make([]dto.OptionView, 0, len(tree.Options))
	for _, o := range tree.Options {
		out = append(out, dto.OptionView{
			Name:        o.Option.Name,
			Variation:   o.Variation,
			PreExisting: o.PreExisting,
			Values:      values[o.Option.ID],
		})
	}
	return out
}

func productRow(d *draft.Draft, p *model.PartialProduct) dto.ProductRow {
	row := dto.ProductRow{
		ID:          p.ID,
		SKU:         p.SKU,
		Barcode:     p.Barcode,
		Variation:   d.Tree.VariationKey(p.ID).String(),
		Values:      map[string]string{},
		Info:        p.ProductInfo,
		IsEndOfLine: p.IsEndOfLine,
		PreExisting: p.PreExisting,
	}
	for _, o := range d.Tree.Options {
		if v, ok := d.Tree.ProductValue(p.ID, o.Option.ID); ok {
			row.Values[o.Option.Name] = v.Value
		}
	}
	return row
}
