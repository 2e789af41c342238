package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/fekuna/omnipos-backoffice/internal/validation"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ValidationHandler serves the read-only validation log views. Every view
// takes ?level= to hide failures below that level.
type ValidationHandler struct {
	uc     validation.UseCase
	logger logger.ZapLogger
}

func NewValidationHandler(uc validation.UseCase, log logger.ZapLogger) *ValidationHandler {
	return &ValidationHandler{uc: uc, logger: log}
}

func (h *ValidationHandler) Register(rg gin.IRoutes) {
	rg.GET("/", h.Overview)
	rg.GET("/app/:app/", h.App)
	rg.GET("/model/:app/:model/", h.Model)
}

func (h *ValidationHandler) level(c *gin.Context) (validation.Level, bool) {
	level, err := validation.ParseLevel(c.Query("level"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": apperr.Message(err), "errors": apperr.FieldErrors(err)})
		return 0, false
	}
	return level, true
}

func (h *ValidationHandler) Overview(c *gin.Context) {
	level, ok := h.level(c)
	if !ok {
		return
	}
	view, err := h.uc.Overview(c.Request.Context(), level)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ValidationHandler) App(c *gin.Context) {
	level, ok := h.level(c)
	if !ok {
		return
	}
	view, err := h.uc.App(c.Request.Context(), c.Param("app"), level)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ValidationHandler) Model(c *gin.Context) {
	level, ok := h.level(c)
	if !ok {
		return
	}
	view, err := h.uc.Model(c.Request.Context(), c.Param("app"), c.Param("model"), level)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *ValidationHandler) fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.NotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": apperr.Message(err)})
		return
	}
	h.logger.Error("validation view failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
