package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-coach/internal/http/response"
	"github.com/yungbote/neurobridge-coach/internal/services"
)

type ProfileHandler struct {
	profiles services.ProfileService
}

func NewProfileHandler(profiles services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GET /api/coach/profile
func (h *ProfileHandler) GetLearnerProfile(c *gin.Context) {
	learnerID, ok := learnerScope(c)
	if !ok {
		return
	}
	p, err := h.profiles.LearnerProfile(c.Request.Context(), learnerID)
	if err != nil {
		response.RespondAPIError(c, err, "get_profile_failed")
		return
	}
	response.RespondOK(c, gin.H{"profile": p})
}

// GET /api/coach/profile/courses
func (h *ProfileHandler) ListCourseProfiles(c *gin.Context) {
	learnerID, ok := learnerScope(c)
	if !ok {
		return
	}
	rows, err := h.profiles.CourseProfiles(c.Request.Context(), learnerID)
	if err != nil {
		response.RespondAPIError(c, err, "list_course_profiles_failed")
		return
	}
	response.RespondOK(c, gin.H{"profiles": rows})
}

// GET /api/coach/profile/courses/:course_id
func (h *ProfileHandler) GetCourseProfile(c *gin.Context) {
	learnerID, ok := learnerScope(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "course_id")
	if !ok {
		return
	}
	p, err := h.profiles.CourseProfile(c.Request.Context(), learnerID, courseID)
	if err != nil {
		response.RespondAPIError(c, err, "get_course_profile_failed")
		return
	}
	response.RespondOK(c, gin.H{"profile": p})
}
