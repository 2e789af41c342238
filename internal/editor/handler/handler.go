package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/auth"
	"github.com/fekuna/omnipos-backoffice/internal/editor"
	"github.com/fekuna/omnipos-backoffice/internal/editor/dto"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	catalogueRangePath  = "/catalogue/range/"
	catalogueSearchPath = "/catalogue/search/"
)

type EditorHandler struct {
	uc     editor.UseCase
	prefix string
	logger logger.ZapLogger
}

func NewEditorHandler(uc editor.UseCase, prefix string, log logger.ZapLogger) *EditorHandler {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &EditorHandler{uc: uc, prefix: prefix, logger: log}
}

// Register mounts the editor routes on rg, which must be rooted at the
// handler's prefix.
func (h *EditorHandler) Register(rg gin.IRoutes) {
	rg.GET("/continue/", h.Continue)
	rg.GET("/resume/:range_id/", h.Resume)
	rg.GET("/start/", h.StartForm)
	rg.POST("/start/", h.Start)
	rg.GET("/complete/:range_id/", h.pageAlias(editor.Finish))
	rg.POST("/complete/:range_id/", h.Complete)
	rg.POST("/discard/:range_id/", h.Discard)
	rg.GET("/edit_new_variation/:product_id/", h.ShowProduct)
	rg.POST("/edit_new_variation/:product_id/", h.SubmitProduct)
	rg.GET("/page/:range_id/:page/", h.ShowPage)
	rg.POST("/page/:range_id/:page/", h.SubmitPage)

	for path, page := range aliases {
		rg.GET("/"+path+"/:range_id/", h.pageAlias(page))
		rg.POST("/"+path+"/:range_id/", h.submitAlias(page))
	}
}

// aliases are the named routes for pages that have one.
var aliases = map[string]editor.PageID{
	"edit_range_details":       editor.BasicInfo,
	"create_initial_variation": editor.ProductInfo,
	"setup_variations":         editor.VariationOptions,
	"edit_all_variations":      editor.VariationInfo,
}

// PageURL is where page of the range being edited is served.
func (h *EditorHandler) PageURL(rangeID string, page editor.PageID) string {
	for path, p := range aliases {
		if p == page {
			return h.prefix + path + "/" + rangeID + "/"
		}
	}
	if page == editor.Finish {
		return h.prefix + "complete/" + rangeID + "/"
	}
	return h.prefix + "page/" + rangeID + "/" + string(page) + "/"
}

func (h *EditorHandler) Continue(c *gin.Context) {
	view, err := h.uc.Continue(c.Request.Context(), auth.GetUserID(c.Request.Context()))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *EditorHandler) Resume(c *gin.Context) {
	rangeID := c.Param("range_id")
	page, err := h.uc.Resume(c.Request.Context(), rangeID, auth.GetUserID(c.Request.Context()))
	if err != nil {
		h.fail(c, err, &dto.PageView{RangeID: rangeID, Data: map[string][]string{}})
		return
	}
	c.Redirect(http.StatusFound, h.PageURL(rangeID, page))
}

func (h *EditorHandler) StartForm(c *gin.Context) {
	view, err := h.uc.StartForm(c.Request.Context())
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *EditorHandler) Start(c *gin.Context) {
	rec, ok := h.record(c)
	if !ok {
		return
	}
	out, err := h.uc.Start(c.Request.Context(), auth.GetUserID(c.Request.Context()), rec)
	if err != nil {
		h.fail(c, err, &dto.PageView{
			Page:  string(editor.BasicInfo),
			Title: editor.BasicInfo.Title(),
			Data:  rec,
		})
		return
	}
	c.Redirect(http.StatusFound, h.PageURL(out.RangeID, out.Next))
}

func (h *EditorHandler) ShowPage(c *gin.Context) {
	page, err := editor.ParsePage(c.Param("page"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	h.show(c, c.Param("range_id"), page)
}

func (h *EditorHandler) SubmitPage(c *gin.Context) {
	page, err := editor.ParsePage(c.Param("page"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	if page == editor.Finish {
		h.Complete(c)
		return
	}
	h.submit(c, c.Param("range_id"), page)
}

func (h *EditorHandler) pageAlias(page editor.PageID) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.show(c, c.Param("range_id"), page)
	}
}

func (h *EditorHandler) submitAlias(page editor.PageID) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.submit(c, c.Param("range_id"), page)
	}
}

func (h *EditorHandler) show(c *gin.Context, rangeID string, page editor.PageID) {
	ctx := c.Request.Context()
	view, err := h.uc.ShowPage(ctx, rangeID, page, auth.GetUserID(ctx))
	if errors.Is(err, apperr.InvalidState) {
		c.Redirect(http.StatusFound, h.prefix+"resume/"+rangeID+"/")
		return
	}
	if err != nil {
		h.fail(c, err, &dto.PageView{RangeID: rangeID, Page: string(page), Title: page.Title(), Data: map[string][]string{}})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *EditorHandler) submit(c *gin.Context, rangeID string, page editor.PageID) {
	rec, ok := h.record(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	userID := auth.GetUserID(ctx)
	out, err := h.uc.SubmitPage(ctx, rangeID, page, userID, rec, editor.ParseIntent(c.Request.PostForm))
	if err != nil {
		h.fail(c, err, h.rerender(c, rangeID, page, rec))
		return
	}
	c.Redirect(http.StatusFound, h.PageURL(out.RangeID, out.Next))
}

// rerender rebuilds the page with the submitted data in place of the stored
// record.
func (h *EditorHandler) rerender(c *gin.Context, rangeID string, page editor.PageID, rec editor.Record) *dto.PageView {
	ctx := c.Request.Context()
	view, err := h.uc.ShowPage(ctx, rangeID, page, auth.GetUserID(ctx))
	if err != nil {
		view = &dto.PageView{RangeID: rangeID, Page: string(page), Title: page.Title()}
	}
	view.Data = rec
	return view
}

func (h *EditorHandler) ShowProduct(c *gin.Context) {
	ctx := c.Request.Context()
	view, err := h.uc.ShowProduct(ctx, c.Param("product_id"), auth.GetUserID(ctx))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *EditorHandler) SubmitProduct(c *gin.Context) {
	rec, ok := h.record(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	productID := c.Param("product_id")
	out, err := h.uc.SubmitProduct(ctx, productID, auth.GetUserID(ctx), rec)
	if err != nil {
		view, verr := h.uc.ShowProduct(ctx, productID, auth.GetUserID(ctx))
		if verr != nil {
			h.fail(c, err, nil)
			return
		}
		view.Data = rec
		view.Errors = apperr.FieldErrors(err)
		if apperr.KindOf(err) != nil && view.Errors == nil {
			view.Message = apperr.Message(err)
		}
		h.respond(c, err, view)
		return
	}
	c.Redirect(http.StatusFound, h.PageURL(out.RangeID, out.Next))
}

func (h *EditorHandler) Complete(c *gin.Context) {
	ctx := c.Request.Context()
	rangeID := c.Param("range_id")
	pr, err := h.uc.Complete(ctx, rangeID, auth.GetUserID(ctx))
	if err != nil {
		h.fail(c, err, h.rerender(c, rangeID, editor.Finish, editor.Record{}))
		return
	}
	c.Redirect(http.StatusFound, catalogueRangePath+pr.ID+"/")
}

func (h *EditorHandler) Discard(c *gin.Context) {
	ctx := c.Request.Context()
	rangeID := c.Param("range_id")
	if err := h.uc.Discard(ctx, rangeID, auth.GetUserID(ctx)); err != nil {
		h.fail(c, err, &dto.PageView{RangeID: rangeID, Data: map[string][]string{}})
		return
	}
	c.Redirect(http.StatusFound, catalogueSearchPath)
}

func (h *EditorHandler) record(c *gin.Context) (editor.Record, bool) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed form"})
		return nil, false
	}
	return editor.RecordFromValues(c.Request.PostForm), true
}

// fail renders err. Classified errors other than NotFound re-render view
// with the error attached; anything unclassified is a 500.
func (h *EditorHandler) fail(c *gin.Context, err error, view *dto.PageView) {
	if view == nil {
		h.respond(c, err, nil)
		return
	}
	view.Errors = apperr.FieldErrors(err)
	if view.Errors == nil || apperr.KindOf(err) != apperr.InvalidInput {
		view.Message = apperr.Message(err)
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind == apperr.ConflictingEdit {
		view.EditingUser = ae.UserID
	}
	if view.Data == nil {
		view.Data = map[string][]string{}
	}
	h.respond(c, err, view)
}

func (h *EditorHandler) respond(c *gin.Context, err error, view any) {
	switch kind := apperr.KindOf(err); {
	case kind == apperr.NotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": apperr.Message(err)})
	case kind == nil:
		h.logger.Error("editor request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	case view == nil:
		c.JSON(http.StatusOK, gin.H{"message": apperr.Message(err), "errors": apperr.FieldErrors(err)})
	default:
		c.JSON(http.StatusOK, view)
	}
}
