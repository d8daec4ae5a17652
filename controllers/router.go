package controllers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/books_ledger/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts the ledger API under /api/v1 behind the session and
// loader middlewares. extra runs before them (cors, rate limiting).
func NewRouter(lc *LedgerController, logger *logrus.Logger, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.Use(extra...)
	r.Use(gin.Recovery())

	api := r.Group("/api/v1",
		middlewares.SessionMiddleware(),
		middlewares.LoaderMiddleware(lc.engine),
		middlewares.ErrorLogger(logger),
	)
	lc.RegisterRoutes(api)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})
	return r
}
