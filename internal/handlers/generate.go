package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pktikkani/mindful-poster/internal/posts"
	"github.com/pktikkani/mindful-poster/pkg/logging"
)

// GenerateHandler triggers a generation cycle on demand. The route is guarded
// by the shared bearer secret so only the operator can burn model tokens.
type GenerateHandler struct {
	pipeline Pipeline
	logger   logging.Logger
}

func NewGenerateHandler(pipeline Pipeline, logger logging.Logger) *GenerateHandler {
	return &GenerateHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// Handle processes POST /generate.
func (h *GenerateHandler) Handle(c *gin.Context) {
	post, err := h.pipeline.Start(c.Request.Context())
	if err != nil {
		h.logger.WithFields(logging.Fields{
			"error": err.Error(),
		}).Error("Manual generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Generation failed"})
		return
	}

	if post.Status == posts.StatusGenerationFailed {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   post.ErrorDetail,
			"post_id": post.ID,
			"theme":   post.Theme,
			"status":  string(post.Status),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"post_id": post.ID,
		"theme":   post.Theme,
		"status":  string(post.Status),
		"hook":    post.Hook,
	})
}
