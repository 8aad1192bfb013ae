package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-coach/internal/http/response"
	"github.com/yungbote/neurobridge-coach/internal/services"
)

type FeedbackHandler struct {
	feedback services.FeedbackService
}

func NewFeedbackHandler(feedback services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

type submitFeedbackRequest struct {
	Rating    *int           `json:"rating"`
	Sentiment string         `json:"sentiment"`
	Text      string         `json:"text"`
	Context   map[string]any `json:"context"`
}

// POST /api/coach/sessions/:id/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req submitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	fb, err := h.feedback.Submit(c.Request.Context(), services.FeedbackInput{
		SessionID:  id,
		Rating:     req.Rating,
		Sentiment:  req.Sentiment,
		Text:       req.Text,
		Indicators: req.Context,
	})
	if err != nil {
		response.RespondAPIError(c, err, "submit_feedback_failed")
		return
	}
	response.RespondCreated(c, gin.H{"feedback": fb})
}

// GET /api/coach/sessions/:id/feedback
func (h *FeedbackHandler) ListForSession(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rows, err := h.feedback.ListForSession(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "list_feedback_failed")
		return
	}
	response.RespondOK(c, gin.H{"feedback": rows})
}

// GET /api/coach/feedback
func (h *FeedbackHandler) ListForLearner(c *gin.Context) {
	learnerID, ok := learnerScope(c)
	if !ok {
		return
	}
	rows, err := h.feedback.ListForLearner(c.Request.Context(), learnerID, intQuery(c, "limit", 50))
	if err != nil {
		response.RespondAPIError(c, err, "list_feedback_failed")
		return
	}
	response.RespondOK(c, gin.H{"feedback": rows})
}
