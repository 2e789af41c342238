package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/draft"
	"github.com/fekuna/omnipos-backoffice/internal/editor"
	"github.com/fekuna/omnipos-backoffice/internal/editor/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/fekuna/omnipos-backoffice/internal/session"
	"github.com/fekuna/omnipos-backoffice/internal/variation"
	"go.uber.org/zap"
)

type editorUseCase struct {
	drafts     draft.UseCase
	variations *variation.Service
	catalogue  catalogue.UseCase
	pages      editor.PageRepository
	sessions   session.Store
	tx         catalogue.TxManager
	logger     logger.ZapLogger
	now        func() time.Time
}

func NewEditorUseCase(
	drafts draft.UseCase,
	variations *variation.Service,
	cat catalogue.UseCase,
	pages editor.PageRepository,
	sessions session.Store,
	tx catalogue.TxManager,
	log logger.ZapLogger,
) editor.UseCase {
	return &editorUseCase{
		drafts:     drafts,
		variations: variations,
		catalogue:  cat,
		pages:      pages,
		sessions:   sessions,
		tx:         tx,
		logger:     log,
		now:        time.Now,
	}
}

// state is a draft with its stored pages.
type state struct {
	draft   *draft.Draft
	records map[editor.PageID]editor.Record
	graph   *editor.Graph
}

func (uc *editorUseCase) load(ctx context.Context, editID string) (*state, error) {
	d, err := uc.drafts.LoadDraft(ctx, editID)
	if err != nil {
		return nil, err
	}
	rows, err := uc.pages.ListPages(ctx, editID)
	if err != nil {
		return nil, err
	}
	records := make(map[editor.PageID]editor.Record, len(rows))
	stored := make(map[editor.PageID]bool, len(rows))
	for _, row := range rows {
		page := editor.PageID(row.Page)
		if !page.Valid() {
			continue
		}
		rec, err := editor.DecodeRecord(row.Data)
		if err != nil {
			return nil, err
		}
		records[page] = rec
		stored[page] = !rec.Empty()
	}
	return &state{
		draft:   d,
		records: records,
		graph:   editor.NewGraph(editor.ProductTypeOf(len(d.Products)), stored),
	}, nil
}

func (uc *editorUseCase) save(ctx context.Context, editID string, page editor.PageID, rec editor.Record) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	return uc.pages.SavePage(ctx, &model.ProductEditPage{
		EditID:    editID,
		Page:      string(page),
		Data:      data,
		UpdatedAt: uc.now(),
	})
}

// mirror copies a page record into the browser session. The page store stays
// authoritative, so failures only warn.
func (uc *editorUseCase) mirror(ctx context.Context, key string, page editor.PageID, rec editor.Record) {
	sid := session.ID(ctx)
	if sid == "" || uc.sessions == nil {
		return
	}
	data, err := rec.Encode()
	if err == nil {
		err = uc.sessions.Save(ctx, sid, key, string(page), data)
	}
	if err != nil {
		uc.logger.Warn("failed to mirror page to session", zap.String("page", string(page)), zap.Error(err))
	}
}

func (uc *editorUseCase) clearSession(ctx context.Context, key string) {
	sid := session.ID(ctx)
	if sid == "" || uc.sessions == nil {
		return
	}
	if err := uc.sessions.Clear(ctx, sid, key); err != nil {
		uc.logger.Warn("failed to clear editor session", zap.String("key", key), zap.Error(err))
	}
}

func (uc *editorUseCase) StartForm(ctx context.Context) (*dto.PageView, error) {
	view := &dto.PageView{
		Page:  string(editor.BasicInfo),
		Title: editor.BasicInfo.Title(),
		Data:  map[string][]string{},
	}
	sid := session.ID(ctx)
	if sid == "" || uc.sessions == nil {
		return view, nil
	}
	data, err := uc.sessions.Load(ctx, sid, session.NewProductKey())
	if err != nil {
		uc.logger.Warn("failed to load new product session", zap.Error(err))
		return view, nil
	}
	if raw, ok := data[string(editor.BasicInfo)]; ok {
		if rec, err := editor.DecodeRecord(raw); err == nil {
			view.Data = rec
		}
	}
	return view, nil
}

// Start creates a range in CREATING state from the basic info form and
// opens it for userID.
func (uc *editorUseCase) Start(ctx context.Context, userID string, r editor.Record) (*editor.Outcome, error) {
	form, err := editor.BindBasicInfo(r)
	if err != nil {
		uc.mirror(ctx, session.NewProductKey(), editor.BasicInfo, r)
		editor.PageSubmissions.WithLabelValues(string(editor.BasicInfo), "invalid").Inc()
		return nil, err
	}
	rec := editor.Normalize(editor.BasicInfo, r)

	var out *editor.Outcome
	err = uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		edit, err := uc.drafts.StartRange(ctx, form.CreateInput(userID), userID)
		if err != nil {
			return err
		}
		if err := uc.save(ctx, edit.ID, editor.BasicInfo, rec); err != nil {
			return err
		}
		st, err := uc.load(ctx, edit.ID)
		if err != nil {
			return err
		}
		out = &editor.Outcome{
			RangeID: st.draft.LiveRangeID(),
			Next:    st.graph.Next(editor.BasicInfo, editor.Intent{Kind: editor.IntentContinue}),
		}
		return nil
	})
	if err != nil {
		uc.recordFailure(editor.BasicInfo, err)
		return nil, err
	}
	editor.PageSubmissions.WithLabelValues(string(editor.BasicInfo), "saved").Inc()
	uc.clearSession(ctx, session.NewProductKey())
	uc.mirror(ctx, session.EditProductKey(out.RangeID), editor.BasicInfo, rec)
	uc.logger.Info("range started", zap.String("range_id", out.RangeID), zap.String("user_id", userID))
	return out, nil
}

func (uc *editorUseCase) Continue(ctx context.Context, userID string) (*dto.ContinueView, error) {
	groups, err := uc.drafts.ListEdits(ctx)
	if err != nil {
		return nil, err
	}
	view := &dto.ContinueView{}
	for _, g := range groups {
		others := g
		others.Edits = nil
		for _, e := range g.Edits {
			if e.UserID == userID {
				view.Mine = append(view.Mine, e)
			} else {
				others.Edits = append(others.Edits, e)
			}
		}
		if len(others.Edits) > 0 {
			view.Others = append(view.Others, others)
		}
	}
	return view, nil
}

func (uc *editorUseCase) Resume(ctx context.Context, rangeID, userID string) (editor.PageID, error) {
	edit, err := uc.drafts.OpenEdit(ctx, rangeID, userID)
	if err != nil {
		return "", err
	}
	st, err := uc.load(ctx, edit.ID)
	if err != nil {
		return "", err
	}
	return st.graph.Resume(), nil
}

func (uc *editorUseCase) ShowPage(ctx context.Context, rangeID string, page editor.PageID, userID string) (*dto.PageView, error) {
	const op = "editor.ShowPage"
	edit, err := uc.drafts.EditFor(ctx, rangeID, userID)
	if err != nil {
		return nil, err
	}
	st, err := uc.load(ctx, edit.ID)
	if err != nil {
		return nil, err
	}
	if !st.graph.Enabled(page) {
		return nil, apperr.Newf(apperr.InvalidState, op, "Page %s is not available until the earlier pages are complete.", page.Title())
	}
	return uc.view(st, page), nil
}

// SubmitPage applies the page's form to the draft, stores the record and
// resolves the next page from the updated draft.
func (uc *editorUseCase) SubmitPage(ctx context.Context, rangeID string, page editor.PageID, userID string, r editor.Record, in editor.Intent) (*editor.Outcome, error) {
	const op = "editor.SubmitPage"
	edit, err := uc.drafts.EditFor(ctx, rangeID, userID)
	if err != nil {
		return nil, err
	}
	rec := editor.Normalize(page, r)

	var out *editor.Outcome
	err = uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		st, err := uc.load(ctx, edit.ID)
		if err != nil {
			return err
		}
		if page == editor.Finish {
			return apperr.New(apperr.InvalidState, op, "The range is finished by completing it.")
		}
		if !st.graph.Enabled(page) {
			return apperr.Newf(apperr.InvalidState, op, "Page %s is not available until the earlier pages are complete.", page.Title())
		}
		if err := uc.apply(ctx, st, page, r); err != nil {
			return err
		}
		if err := uc.save(ctx, edit.ID, page, rec); err != nil {
			return err
		}
		st, err = uc.load(ctx, edit.ID)
		if err != nil {
			return err
		}
		out = &editor.Outcome{RangeID: rangeID, Next: st.graph.Next(page, in)}
		return nil
	})
	if err != nil {
		uc.recordFailure(page, err)
		return nil, err
	}
	editor.PageSubmissions.WithLabelValues(string(page), "saved").Inc()
	uc.mirror(ctx, session.EditProductKey(rangeID), page, rec)
	uc.logger.Debug("editor page saved",
		zap.String("range_id", rangeID), zap.String("page", string(page)), zap.String("next", string(out.Next)))
	return out, nil
}

func (uc *editorUseCase) recordFailure(page editor.PageID, err error) {
	switch apperr.KindOf(err) {
	case apperr.InvalidInput:
		editor.PageSubmissions.WithLabelValues(string(page), "invalid").Inc()
	case nil:
		editor.PageSubmissions.WithLabelValues(string(page), "failed").Inc()
		uc.logger.Error("editor page failed", zap.String("page", string(page)), zap.Error(err))
	default:
		editor.PageSubmissions.WithLabelValues(string(page), "rejected").Inc()
	}
}

func (uc *editorUseCase) ShowProduct(ctx context.Context, productID, userID string) (*dto.ProductView, error) {
	const op = "editor.ShowProduct"
	edit, err := uc.drafts.EditForProduct(ctx, productID, userID)
	if err != nil {
		return nil, err
	}
	d, err := uc.drafts.LoadDraft(ctx, edit.ID)
	if err != nil {
		return nil, err
	}
	p, ok := d.Product(productID)
	if !ok {
		return nil, apperr.Newf(apperr.NotFound, op, "product %s not found", productID)
	}
	return &dto.ProductView{
		RangeID: d.LiveRangeID(),
		Product: productRow(d, p),
		Data:    map[string][]string{},
	}, nil
}

// SubmitProduct updates one draft product and returns to the variation
// overview.
func (uc *editorUseCase) SubmitProduct(ctx context.Context, productID, userID string, r editor.Record) (*editor.Outcome, error) {
	const op = "editor.SubmitProduct"
	edit, err := uc.drafts.EditForProduct(ctx, productID, userID)
	if err != nil {
		return nil, err
	}
	form, err := editor.BindVariation(r)
	if err != nil {
		return nil, err
	}

	var out *editor.Outcome
	err = uc.tx.RunInTx(ctx, func(ctx context.Context) error {
		st, err := uc.load(ctx, edit.ID)
		if err != nil {
			return err
		}
		p, ok := st.draft.Product(productID)
		if !ok {
			return apperr.Newf(apperr.NotFound, op, "product %s not found", productID)
		}
		updated := *p
		form.Apply(&updated, r)
		if err := uc.drafts.UpdateProduct(ctx, edit.ID, &updated); err != nil {
			return err
		}
		if r.Has("listing_option") {
			listing, err := editor.BindListing(r, false)
			if err != nil {
				return err
			}
			if err := uc.applyListing(ctx, st.draft, listing, productID); err != nil {
				return err
			}
		}
		next := editor.VariationInfo
		if st.graph.Type != editor.TypeVariation {
			next = editor.ProductInfo
		}
		out = &editor.Outcome{RangeID: st.draft.LiveRangeID(), Next: next}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Complete promotes the draft into the live range.
func (uc *editorUseCase) Complete(ctx context.Context, rangeID, userID string) (*model.ProductRange, error) {
	edit, err := uc.drafts.EditFor(ctx, rangeID, userID)
	if err != nil {
		return nil, err
	}
	pr, err := uc.drafts.Promote(ctx, edit.ID, userID)
	if err != nil {
		uc.recordFailure(editor.Finish, err)
		return nil, err
	}
	editor.PageSubmissions.WithLabelValues(string(editor.Finish), "saved").Inc()
	uc.clearSession(ctx, session.EditProductKey(rangeID))
	return pr, nil
}

func (uc *editorUseCase) Discard(ctx context.Context, rangeID, userID string) error {
	edit, err := uc.drafts.EditFor(ctx, rangeID, userID)
	if err != nil {
		return err
	}
	if err := uc.drafts.Discard(ctx, edit.ID); err != nil {
		return err
	}
	uc.clearSession(ctx, session.EditProductKey(rangeID))
	return nil
}
