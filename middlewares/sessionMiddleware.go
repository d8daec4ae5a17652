package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/books_ledger/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderBusinessId    = "X-Business-Id"
	HeaderUserId        = "X-User-Id"
	HeaderUserName      = "X-User-Name"
	HeaderCorrelationId = "X-Correlation-Id"
)

// SessionMiddleware copies the caller's business, user and correlation id
// from request headers into the request context. Requests without a valid
// business id are rejected; every ledger operation is scoped to one.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessId := strings.TrimSpace(c.GetHeader(HeaderBusinessId))
		if _, err := uuid.Parse(businessId); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + HeaderBusinessId})
			return
		}

		ctx := utils.SetBusinessIdInContext(c.Request.Context(), businessId)
		if name := strings.TrimSpace(c.GetHeader(HeaderUserName)); name != "" {
			ctx = utils.SetUserNameInContext(ctx, name)
		}
		if id, err := strconv.Atoi(c.GetHeader(HeaderUserId)); err == nil && id > 0 {
			ctx = utils.SetUserIdInContext(ctx, id)
		}
		correlationId := utils.CorrelationIdFromContextOrNew(ctx)
		if v := strings.TrimSpace(c.GetHeader(HeaderCorrelationId)); v != "" {
			correlationId = v
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)
		c.Header(HeaderCorrelationId, correlationId)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
