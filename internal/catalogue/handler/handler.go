package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CatalogueHandler struct {
	uc     catalogue.UseCase
	logger logger.ZapLogger
}

func NewCatalogueHandler(uc catalogue.UseCase, log logger.ZapLogger) *CatalogueHandler {
	return &CatalogueHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *CatalogueHandler) Register(rg gin.IRoutes) {
	rg.GET("/search/", h.SearchRanges)
	rg.GET("/range/:range_id/", h.GetRange)
	rg.GET("/options/", h.ListOptions)
	rg.GET("/options/:option_id/values/", h.ListOptionValues)
}

const defaultPageSize = 25

type searchQuery struct {
	Query    string `form:"q" binding:"max=200"`
	Status   string `form:"status" binding:"omitempty,oneof=CREATING COMPLETE ERROR"`
	Public   bool   `form:"public"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type searchResponse struct {
	Ranges   []dto.RangeSummary `json:"ranges"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

func (h *CatalogueHandler) SearchRanges(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	}
	filters := &dto.RangeFilters{
		SearchQuery: q.Query,
		Status:      model.RangeStatus(q.Status),
		PublicOnly:  q.Public,
		Page:        q.Page,
		PageSize:    q.PageSize,
	}

	ranges, total, err := h.uc.SearchRanges(c.Request.Context(), filters)
	if err != nil {
		h.fail(c, "failed to search ranges", err)
		return
	}
	c.JSON(http.StatusOK, searchResponse{
		Ranges:   ranges,
		Total:    total,
		Page:     filters.Page,
		PageSize: filters.PageSize,
	})
}

func (h *CatalogueHandler) GetRange(c *gin.Context) {
	detail, err := h.uc.GetRangeDetail(c.Request.Context(), c.Param("range_id"))
	if err != nil {
		h.fail(c, "failed to load range", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *CatalogueHandler) ListOptions(c *gin.Context) {
	options, err := h.uc.ListOptions(c.Request.Context())
	if err != nil {
		h.fail(c, "failed to list options", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"options": options})
}

func (h *CatalogueHandler) ListOptionValues(c *gin.Context) {
	values, err := h.uc.ListOptionValues(c.Request.Context(), c.Param("option_id"))
	if err != nil {
		h.fail(c, "failed to list option values", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"values": values})
}

func (h *CatalogueHandler) fail(c *gin.Context, msg string, err error) {
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": apperr.Message(err)})
	case apperr.InvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": apperr.Message(err), "errors": apperr.FieldErrors(err)})
	default:
		h.logger.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
