package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maeum-ai/maeum-api/internal/pricing"
	"github.com/maeum-ai/maeum-api/pkg/api"
)

type ModelHandler struct {
	registry *pricing.Registry
}

func NewModelHandler(registry *pricing.Registry) *ModelHandler {
	return &ModelHandler{registry: registry}
}

func (h *ModelHandler) ListModels(c *gin.Context) {
	descriptors := h.registry.List()

	out := make([]api.Model, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, api.Model{
			ID:                  d.ID,
			Name:                d.Name,
			Vendor:              string(d.Family),
			InputUSDPerMillion:  d.InputUSDPerMillion,
			OutputUSDPerMillion: d.OutputUSDPerMillion,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   out,
	})
}
