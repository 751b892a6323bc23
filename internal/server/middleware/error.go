package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeum-ai/maeum-api/pkg/api"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error a handler attached to the context.
// Problems serialize as-is per RFC 9457; anything else collapses to a 500.
// Streaming handlers that already started a response never attach errors, so
// this only fires on plain JSON endpoints and pre-stream failures.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		if problem, ok := err.(*api.Problem); ok {
			if problem.Log != nil {
				logger.Error("request failed",
					zap.Int("status", problem.Status),
					zap.Error(problem.Log),
				)
			}

			// RFC 9457 dictates the json is at the root
			c.JSON(problem.Status, problem)
			c.Abort()
			return
		}

		logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, api.NewError(
			http.StatusInternalServerError,
			"Internal Server Error",
			"An unexpected error occurred.",
		))
		c.Abort()
	}
}
