package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pktikkani/mindful-poster/internal/posts"
	"github.com/pktikkani/mindful-poster/internal/workflow"
	"github.com/pktikkani/mindful-poster/pkg/logging"
)

// dashboardLimit caps the rows shown on the dashboard.
const dashboardLimit = 20

// DashboardHandler renders the operator overview of recent posts.
type DashboardHandler struct {
	reader   PostReader
	pipeline Pipeline
	logger   logging.Logger
}

func NewDashboardHandler(reader PostReader, pipeline Pipeline, logger logging.Logger) *DashboardHandler {
	return &DashboardHandler{
		reader:   reader,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Handle processes GET /dashboard. An optional status query parameter
// narrows the listing to one lifecycle state.
func (h *DashboardHandler) Handle(c *gin.Context) {
	var filter posts.Status
	if raw := c.Query("status"); raw != "" {
		status, ok := posts.ParseStatus(raw)
		if !ok {
			renderResult(c, http.StatusBadRequest, resultPage{
				Title:   "Unknown Status",
				Message: fmt.Sprintf("%q is not a post status.", raw),
				Color:   colorAmber,
			})
			return
		}
		filter = status
	}

	recent, err := h.reader.List(c.Request.Context(), filter, dashboardLimit)
	if err != nil {
		h.logger.WithFields(logging.Fields{
			"error": err.Error(),
		}).Error("Failed to list posts for dashboard")
		renderResult(c, http.StatusInternalServerError, resultPage{
			Title:   "Something Went Wrong",
			Message: "The dashboard could not be loaded. Please refresh.",
			Color:   colorRed,
		})
		return
	}

	page := dashboardPage{Rows: make([]dashboardRow, 0, len(recent))}
	for i, post := range recent {
		label, color := statusBadge(post.Status)
		page.Rows = append(page.Rows, dashboardRow{
			Index:       i + 1,
			StatusLabel: label,
			StatusColor: color,
			Theme:       post.Theme,
			Hook:        post.Hook,
			Created:     formatCreated(post.CreatedAt),
			Cost:        formatCost(post.Usage),
			PreviewURL:  h.pipeline.ActionURL(workflow.ActionPreview, post.ID),
		})
	}
	renderPage(c, http.StatusOK, dashboardTmpl, page)
}
