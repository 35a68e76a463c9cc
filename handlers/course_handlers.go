package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"smartid-server-go/db"
	"smartid-server-go/models"
)

// ListCourses handles GET /api/courses/
func (h *APIHandler) ListCourses(c *gin.Context) {
	courses, err := h.store.ListCourses(c.Request.Context())
	if err != nil {
		h.fail(c, "courses", err)
		return
	}
	if professorID := c.Query("professorId"); professorID != "" {
		mine := make([]models.Course, 0, len(courses))
		for _, course := range courses {
			if course.ProfessorID == professorID {
				mine = append(mine, course)
			}
		}
		courses = mine
	}
	respondList(c, courses)
}

type CourseRequest struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required"`
	ProfessorID string `json:"professorId" validate:"required"`
	Schedule    string `json:"schedule"`
}

// AddCourse handles POST /api/courses/
func (h *APIHandler) AddCourse(c *gin.Context) {
	var req CourseRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	prof, err := h.store.GetUser(ctx, req.ProfessorID)
	if errors.Is(err, db.ErrNotFound) || (err == nil && prof.Role != models.RoleProfessor) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": map[string]string{"professorId": "Unknown professor"}})
		return
	}
	if err != nil {
		h.fail(c, "course", err)
		return
	}

	course := models.Course{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Code:        strings.TrimSpace(req.Code),
		ProfessorID: prof.ID,
		Professor:   prof.Name,
		Schedule:    req.Schedule,
	}
	if err := h.store.AddCourse(ctx, course); err != nil {
		h.fail(c, "course", err)
		return
	}

	if !prof.IsEnrolled(course.ID) {
		prof.EnrolledCourses = append(prof.EnrolledCourses, course.ID)
		if err := h.store.UpdateUser(ctx, *prof); err != nil {
			h.log.Warn("attaching course to professor", err, personOf(principal(c)))
		}
	}
	c.JSON(http.StatusCreated, course)
}
