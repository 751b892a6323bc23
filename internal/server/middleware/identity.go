package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/maeum-ai/maeum-api/internal/store"
)

// VisitorHeader carries the anonymous visitor id. There is no real auth; the
// id only scopes conversations to a browser session.
const VisitorHeader = "X-Visitor-Id"

// Identity reads the visitor id from the request header, issuing a fresh one
// when absent or malformed. The id is echoed back so clients can persist it.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		visitorID := c.GetHeader(VisitorHeader)
		if _, err := uuid.Parse(visitorID); err != nil {
			visitorID = uuid.NewString()
		}

		c.Header(VisitorHeader, visitorID)

		ctx := context.WithValue(c.Request.Context(), store.ContextKeyVisitorID, visitorID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// VisitorID extracts the visitor id injected by Identity.
func VisitorID(ctx context.Context) string {
	id, _ := ctx.Value(store.ContextKeyVisitorID).(string)
	return id
}
