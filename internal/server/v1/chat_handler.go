package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeum-ai/maeum-api/internal/chat"
	"github.com/maeum-ai/maeum-api/internal/server/validator"
	"github.com/maeum-ai/maeum-api/pkg/api"
)

type ChatHandler struct {
	chat      *chat.Service
	validator *validator.Validator
}

func NewChatHandler(service *chat.Service, v *validator.Validator) *ChatHandler {
	return &ChatHandler{
		chat:      service,
		validator: v,
	}
}

// StreamTurn runs one conversation turn as a server-sent event stream.
// Failures before the first event map to plain HTTP statuses through the
// error middleware; everything after is reported in-band, terminated by
// exactly one done or error event.
func (h *ChatHandler) StreamTurn(c *gin.Context) {
	var req api.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
		return
	}

	started := false
	emit := func(event api.Event) {
		if !started {
			h.writeStreamHeaders(c)
			started = true
		}

		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return
		}
		_, _ = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event.Kind, payload)
		c.Writer.Flush()
	}

	err := h.chat.StreamTurn(c.Request.Context(), c.Param("id"), req, emit)
	if err != nil {
		// nothing was emitted yet, so a plain error response is still possible
		var problem *api.Problem
		if errors.As(err, &problem) {
			_ = c.Error(problem)
			return
		}
		_ = c.Error(api.InternalError("Failed to process turn", err))
	}
}

func (h *ChatHandler) writeStreamHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()
}
