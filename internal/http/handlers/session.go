package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coach/internal/http/response"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/services"
)

type SessionHandler struct {
	log      *logger.Logger
	sessions services.SessionService
}

func NewSessionHandler(log *logger.Logger, sessions services.SessionService) *SessionHandler {
	return &SessionHandler{log: log.With("handler", "SessionHandler"), sessions: sessions}
}

type startSessionRequest struct {
	CourseID  uuid.UUID `json:"course_id" binding:"required"`
	ChapterID uuid.UUID `json:"chapter_id" binding:"required"`
}

// POST /api/coach/sessions
func (h *SessionHandler) Start(c *gin.Context) {
	if _, ok := requireLearner(c); !ok {
		return
	}
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	s, created, err := h.sessions.GetOrCreateActive(c.Request.Context(), req.CourseID, req.ChapterID)
	if err != nil {
		response.RespondAPIError(c, err, "start_session_failed")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"session": s, "created": created})
}

// GET /api/coach/sessions
func (h *SessionHandler) List(c *gin.Context) {
	learnerID, ok := learnerScope(c)
	if !ok {
		return
	}
	rows, err := h.sessions.List(c.Request.Context(), learnerID, intQuery(c, "limit", 20))
	if err != nil {
		response.RespondAPIError(c, err, "list_sessions_failed")
		return
	}
	response.RespondOK(c, gin.H{"sessions": rows})
}

// GET /api/coach/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	s, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_session_failed")
		return
	}
	response.RespondOK(c, gin.H{"session": s})
}

// GET /api/coach/sessions/:id/transcript?last=N
func (h *SessionHandler) Transcript(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	msgs, err := h.sessions.Transcript(c.Request.Context(), id, intQuery(c, "last", 0))
	if err != nil {
		response.RespondAPIError(c, err, "get_transcript_failed")
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// GET /api/coach/sessions/:id/insights
func (h *SessionHandler) Insights(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rows, err := h.sessions.Insights(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_insights_failed")
		return
	}
	response.RespondOK(c, gin.H{"insights": rows})
}

// POST /api/coach/sessions/:id/complete
func (h *SessionHandler) Complete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	s, err := h.sessions.Complete(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "complete_session_failed")
		return
	}
	response.RespondOK(c, gin.H{"session": s})
}

// GET /api/coach/sessions/:id/report
func (h *SessionHandler) Report(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rep, err := h.sessions.Report(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_report_failed")
		return
	}
	response.RespondOK(c, gin.H{"report": rep})
}

// POST /api/coach/sessions/:id/analyze
func (h *SessionHandler) Analyze(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rep, err := h.sessions.Analyze(c.Request.Context(), id)
	if err != nil {
		h.log.Warn("Analysis retry failed", "session_id", id, "error", err)
		response.RespondAPIError(c, err, "analyze_session_failed")
		return
	}
	response.RespondOK(c, gin.H{"report": rep})
}
