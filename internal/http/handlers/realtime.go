package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/neurobridge-coach/internal/http/response"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/realtime"
	"github.com/yungbote/neurobridge-coach/internal/services"
)

type RealtimeHandler struct {
	log      *logger.Logger
	realtime services.RealtimeService
	engine   *realtime.Engine
	upgrader *websocket.Upgrader
}

func NewRealtimeHandler(log *logger.Logger, rt services.RealtimeService, engine *realtime.Engine, allowedOrigins []string) *RealtimeHandler {
	return &RealtimeHandler{
		log:      log.With("handler", "RealtimeHandler"),
		realtime: rt,
		engine:   engine,
		upgrader: realtime.NewUpgrader(allowedOrigins),
	}
}

type realtimeSessionRequest struct {
	CourseID  uuid.UUID `json:"course_id" binding:"required"`
	ChapterID uuid.UUID `json:"chapter_id" binding:"required"`
}

// POST /api/coach/realtime/session
func (h *RealtimeHandler) CreateSession(c *gin.Context) {
	if _, ok := requireLearner(c); !ok {
		return
	}
	var req realtimeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	cred, err := h.realtime.CreateCredential(c.Request.Context(), req.CourseID, req.ChapterID)
	if err != nil {
		response.RespondAPIError(c, err, "realtime_session_failed")
		return
	}
	response.RespondOK(c, gin.H{"client_secret": cred})
}

type sdpRequest struct {
	Credential string `json:"credential" binding:"required"`
	SDP        string `json:"sdp" binding:"required"`
}

// POST /api/coach/realtime/sdp
func (h *RealtimeHandler) ExchangeSDP(c *gin.Context) {
	if _, ok := requireLearner(c); !ok {
		return
	}
	var req sdpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	answer, err := h.realtime.ExchangeSDP(c.Request.Context(), req.Credential, req.SDP)
	if err != nil {
		response.RespondAPIError(c, err, "sdp_exchange_failed")
		return
	}
	response.RespondOK(c, gin.H{"sdp": answer})
}

// GET /api/coach/realtime/ws?course_id=&chapter_id=&token=
func (h *RealtimeHandler) Control(c *gin.Context) {
	if _, ok := requireLearner(c); !ok {
		return
	}
	courseID, ok := uuidQuery(c, "course_id")
	if !ok {
		return
	}
	chapterID, ok := uuidQuery(c, "chapter_id")
	if !ok {
		return
	}
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	err = h.engine.Serve(c.Request.Context(), realtime.WrapConn(ws), realtime.Binding{CourseID: courseID, ChapterID: chapterID})
	if err != nil {
		h.log.Info("Realtime connection rejected", "course_id", courseID, "chapter_id", chapterID, "error", err)
	}
}
