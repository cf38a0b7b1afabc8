package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pktikkani/mindful-poster/internal/posts"
	"github.com/pktikkani/mindful-poster/internal/workflow"
	"github.com/pktikkani/mindful-poster/pkg/logging"
)

// CallbackHandler serves the links embedded in the review email: approve,
// reject, and the token-guarded preview page.
type CallbackHandler struct {
	pipeline Pipeline
	reader   PostReader
	logger   logging.Logger
}

func NewCallbackHandler(pipeline Pipeline, reader PostReader, logger logging.Logger) *CallbackHandler {
	return &CallbackHandler{
		pipeline: pipeline,
		reader:   reader,
		logger:   logger,
	}
}

// Approve handles GET /approve/:id.
func (h *CallbackHandler) Approve(c *gin.Context) {
	h.resolve(c, workflow.ActionApprove)
}

// Reject handles GET /reject/:id.
func (h *CallbackHandler) Reject(c *gin.Context) {
	h.resolve(c, workflow.ActionReject)
}

func (h *CallbackHandler) resolve(c *gin.Context, action string) {
	id := c.Param("id")
	token := c.Query("token")

	post, err := h.pipeline.Resolve(c.Request.Context(), id, action, token)
	switch {
	case errors.Is(err, workflow.ErrInvalidToken):
		renderResult(c, http.StatusUnauthorized, resultPage{
			Title:   "Invalid Link",
			Message: "This action link is invalid or was issued for a different post.",
			Color:   colorRed,
		})
		return
	case errors.Is(err, posts.ErrNotFound):
		renderResult(c, http.StatusNotFound, resultPage{
			Title:   "Post Not Found",
			Message: "No post exists for this link.",
			Color:   colorAmber,
		})
		return
	case err != nil:
		h.logger.WithFields(logging.Fields{
			"error":   err.Error(),
			"post_id": id,
			"action":  action,
		}).Error("Failed to resolve review decision")
		renderResult(c, http.StatusInternalServerError, resultPage{
			Title:   "Something Went Wrong",
			Message: "The decision could not be recorded. Please try the link again.",
			Color:   colorRed,
		})
		return
	}

	status, page := outcomePage(action, post)
	renderResult(c, status, page)
}

// outcomePage maps the post's state after a decision to the page shown to
// the approver. Repeated clicks land here with the already settled state,
// so every state needs a sensible answer.
func outcomePage(action string, post posts.Post) (int, resultPage) {
	if action == workflow.ActionApprove {
		switch post.Status {
		case posts.StatusPublished:
			return http.StatusOK, resultPage{
				Title:   "Post Published",
				Message: "The post was approved and published to Instagram.",
				Details: []string{
					fmt.Sprintf("Theme: %s", post.Theme),
					fmt.Sprintf("Instagram post: %s", post.InstagramPostID),
				},
				Color: colorGreen,
			}
		case posts.StatusPublishFailed:
			return http.StatusOK, resultPage{
				Title:   "Publishing Failed",
				Message: "The approval was recorded but publishing to Instagram failed.",
				Details: []string{post.ErrorDetail},
				Color:   colorRed,
			}
		case posts.StatusApproved:
			return http.StatusOK, resultPage{
				Title:   "Approval Recorded",
				Message: "The post is approved and publishing is in progress.",
				Details: []string{fmt.Sprintf("Theme: %s", post.Theme)},
				Color:   colorGreen,
			}
		case posts.StatusRejected:
			return http.StatusOK, resultPage{
				Title:   "Previously Rejected",
				Message: "This post was already rejected and will not be published.",
				Color:   colorAmber,
			}
		}
	}

	if action == workflow.ActionReject {
		switch post.Status {
		case posts.StatusRejected:
			return http.StatusOK, resultPage{
				Title:   "Post Rejected",
				Message: "The post was rejected. A fresh draft will be generated in the next cycle.",
				Details: []string{fmt.Sprintf("Theme: %s", post.Theme)},
				Color:   colorRed,
			}
		case posts.StatusApproved, posts.StatusPublished, posts.StatusPublishFailed:
			return http.StatusOK, resultPage{
				Title:   "Cannot Reject",
				Message: "This post was already approved.",
				Color:   colorAmber,
			}
		}
	}

	label, _ := statusBadge(post.Status)
	return http.StatusOK, resultPage{
		Title:   "No Action Taken",
		Message: fmt.Sprintf("This post is currently in state %q and the link had no effect.", label),
		Color:   colorAmber,
	}
}

// Preview handles GET /preview/:id.
func (h *CallbackHandler) Preview(c *gin.Context) {
	id := c.Param("id")
	token := c.Query("token")

	if !h.pipeline.VerifyToken(workflow.ActionPreview, id, token) {
		renderResult(c, http.StatusUnauthorized, resultPage{
			Title:   "Invalid Link",
			Message: "This preview link is invalid or was issued for a different post.",
			Color:   colorRed,
		})
		return
	}

	post, err := h.reader.Get(c.Request.Context(), id)
	if errors.Is(err, posts.ErrNotFound) {
		renderResult(c, http.StatusNotFound, resultPage{
			Title:   "Post Not Found",
			Message: "No post exists for this link.",
			Color:   colorAmber,
		})
		return
	}
	if err != nil {
		h.logger.WithFields(logging.Fields{
			"error":   err.Error(),
			"post_id": id,
		}).Error("Failed to load post for preview")
		renderResult(c, http.StatusInternalServerError, resultPage{
			Title:   "Something Went Wrong",
			Message: "The preview could not be loaded. Please try the link again.",
			Color:   colorRed,
		})
		return
	}

	label, color := statusBadge(post.Status)
	page := previewPage{
		Post:        post,
		StatusLabel: label,
		StatusColor: color,
		Created:     formatCreated(post.CreatedAt),
		Cost:        formatCost(post.Usage),
	}
	if post.Status == posts.StatusAwaitingApproval {
		page.ShowActions = true
		page.ApproveURL = h.pipeline.ActionURL(workflow.ActionApprove, post.ID)
		page.RejectURL = h.pipeline.ActionURL(workflow.ActionReject, post.ID)
	}
	renderPage(c, http.StatusOK, previewTmpl, page)
}
