package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smartid-server-go/auth"
	"smartid-server-go/models"
)

// ListUsers handles GET /api/auth/users/?role=STUDENT
func (h *APIHandler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, "users", err)
		return
	}
	if role := models.Role(strings.ToUpper(c.Query("role"))); role != models.RoleNone {
		filtered := make([]models.User, 0, len(users))
		for _, u := range users {
			if u.Role == role {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	respondList(c, users)
}

type EnrollRequest struct {
	Name            string      `json:"name" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Role            models.Role `json:"role" validate:"required,oneof=STUDENT PROFESSOR"`
	UserID          string      `json:"userId"`
	Password        string      `json:"password" validate:"omitempty,min=8"`
	EnrolledCourses []string    `json:"enrolledCourses"`
	Consent         bool        `json:"consent" validate:"required"`
	FaceImage       string      `json:"faceImage"`
}

type EnrollResponse struct {
	User     models.User `json:"user"`
	Password string      `json:"password"`
}

// EnrollUser handles POST /api/auth/users/. The password is only ever
// returned in this response.
func (h *APIHandler) EnrollUser(c *gin.Context) {
	var req EnrollRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	for _, id := range req.EnrolledCourses {
		if _, err := h.store.GetCourse(ctx, id); err != nil {
			h.fail(c, "course "+id, err)
			return
		}
	}

	id := strings.TrimSpace(req.UserID)
	if id == "" {
		generated, err := auth.GenerateUserID(req.Role)
		if err != nil {
			h.fail(c, "enrollment", err)
			return
		}
		id = generated
	}
	password := req.Password
	if password == "" {
		generated, err := auth.GeneratePassword()
		if err != nil {
			h.fail(c, "enrollment", err)
			return
		}
		password = generated
	}

	user := models.User{
		ID:              id,
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		Role:            req.Role,
		Status:          models.UserActive,
		HasAccess:       true,
		EnrolledCourses: append([]string{}, req.EnrolledCourses...),
		EnrolledDate:    h.now().Format("2006-01-02"),
	}
	if err := user.SetPassword(password); err != nil {
		h.fail(c, "enrollment", err)
		return
	}
	if err := h.store.AddUser(ctx, user); err != nil {
		h.fail(c, "enrollment", err)
		return
	}

	h.log.Info("enrolled "+string(user.Role)+" "+user.ID, personOf(principal(c)))
	c.JSON(http.StatusCreated, EnrollResponse{User: user, Password: password})
}

type UpdateUserRequest struct {
	Name            *string   `json:"name" validate:"omitempty,min=1"`
	Email           *string   `json:"email" validate:"omitempty,email"`
	Status          *string   `json:"status" validate:"omitempty,oneof=active inactive"`
	EnrolledCourses *[]string `json:"enrolledCourses"`
	Password        *string   `json:"password" validate:"omitempty,min=8"`
}

// UpdateUser handles PATCH /api/auth/users/:id/
func (h *APIHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	user, err := h.store.GetUser(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "user", err)
		return
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.Status != nil {
		user.Status = *req.Status
	}
	if req.EnrolledCourses != nil {
		user.EnrolledCourses = append([]string{}, (*req.EnrolledCourses)...)
	}
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			h.fail(c, "user", err)
			return
		}
	}

	if err := h.store.UpdateUser(ctx, *user); err != nil {
		h.fail(c, "user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ToggleAccess handles PATCH /api/auth/users/:id/toggle_access/
func (h *APIHandler) ToggleAccess(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.store.GetUser(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "user", err)
		return
	}
	user.HasAccess = !user.HasAccess
	if err := h.store.UpdateUser(ctx, *user); err != nil {
		h.fail(c, "user", err)
		return
	}
	h.log.Info("toggled access for "+user.ID, map[string]interface{}{"hasAccess": user.HasAccess}, personOf(principal(c)))
	c.JSON(http.StatusOK, user)
}
