package server

import (
	"net/http"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/auth"
	catH "github.com/fekuna/omnipos-backoffice/internal/catalogue/handler"
	editorH "github.com/fekuna/omnipos-backoffice/internal/editor/handler"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/fekuna/omnipos-backoffice/internal/session"
	validationH "github.com/fekuna/omnipos-backoffice/internal/validation/handler"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Editor     *editorH.EditorHandler
	Catalogue  *catH.CatalogueHandler
	Validation *validationH.ValidationHandler
}

// NewRouter mounts the editor under prefix and the read-only views beside
// it. Every back-office route needs an authenticated user.
func NewRouter(h Handlers, prefix string, secureCookies bool, log logger.ZapLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	editor := router.Group(prefix, auth.Middleware(), session.Middleware(secureCookies))
	h.Editor.Register(editor)

	catalogue := router.Group("/catalogue", auth.Middleware())
	h.Catalogue.Register(catalogue)

	validation := router.Group("/validation", auth.Middleware())
	h.Validation.Register(validation)

	return router
}

func requestLogger(log logger.ZapLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request failed", fields...)
			return
		}
		log.Debug("request", fields...)
	}
}
