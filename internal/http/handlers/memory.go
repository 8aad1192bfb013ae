package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-coach/internal/http/response"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/memory"
	"github.com/yungbote/neurobridge-coach/internal/services"
)

type MemoryHandler struct {
	memories services.MemoryService
}

func NewMemoryHandler(memories services.MemoryService) *MemoryHandler {
	return &MemoryHandler{memories: memories}
}

// GET /api/coach/memories?q=...&limit=&context_type=&min_score=
func (h *MemoryHandler) Search(c *gin.Context) {
	learnerID, ok := learnerScope(c)
	if !ok {
		return
	}
	opts := memory.SearchOptions{
		Limit:       intQuery(c, "limit", memory.DefaultLimit),
		MinScore:    floatQuery(c, "min_score"),
		ContextType: strings.TrimSpace(c.Query("context_type")),
		IncludeTags: splitCSV(c.Query("tags")),
		ExcludeTags: splitCSV(c.Query("exclude_tags")),
	}
	res, err := h.memories.Search(c.Request.Context(), learnerID, c.Query("q"), opts)
	if err != nil {
		response.RespondAPIError(c, err, "search_memories_failed")
		return
	}
	response.RespondOK(c, res)
}

type addMemoryRequest struct {
	Text         string     `json:"text" binding:"required"`
	SessionID    *uuid.UUID `json:"session_id"`
	Tags         []string   `json:"tags"`
	ContextTypes []string   `json:"context_types"`
	Importance   int        `json:"importance"`
}

// POST /api/coach/memories
func (h *MemoryHandler) Add(c *gin.Context) {
	learnerID, ok := requireLearner(c)
	if !ok {
		return
	}
	var req addMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	m, err := h.memories.Add(c.Request.Context(), memory.AddInput{
		LearnerID:    learnerID,
		SessionID:    req.SessionID,
		RawText:      req.Text,
		Tags:         req.Tags,
		ContextTypes: req.ContextTypes,
		Importance:   req.Importance,
		Source:       "api",
	})
	if err != nil {
		response.RespondAPIError(c, err, "add_memory_failed")
		return
	}
	response.RespondCreated(c, gin.H{"memory": m})
}

func splitCSV(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
