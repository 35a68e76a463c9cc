package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"smartid-server-go/auth"
	"smartid-server-go/db"
	"smartid-server-go/models"
)

type LoginRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required"`
	Role     models.Role `json:"role" validate:"omitempty,role"`
}

type LoginResponse struct {
	User   models.User    `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// Login handles POST /api/auth/users/login/
func (h *APIHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	if len(user.PasswordHash) == 0 || user.CheckPassword(req.Password) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if req.Role != models.RoleNone && req.Role != user.Role {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account is not registered as " + string(req.Role)})
		return
	}
	if !user.CanSignIn() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access has been disabled for this account"})
		return
	}

	tokens, err := h.jwt.GenerateTokenPair(auth.PrincipalOf(user))
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	h.log.Info("user logged in", personOf(auth.PrincipalOf(user)))
	c.JSON(http.StatusOK, LoginResponse{User: *user, Tokens: tokens})
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// RefreshToken handles POST /api/auth/token/refresh/
func (h *APIHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if !h.bind(c, &req) {
		return
	}

	claims, err := h.jwt.ValidateToken(req.Refresh, auth.KindRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	user, err := h.store.GetUser(c.Request.Context(), claims.UserID)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User no longer exists"})
		return
	}
	if err != nil {
		h.fail(c, "token refresh", err)
		return
	}
	if !user.CanSignIn() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access has been disabled for this account"})
		return
	}

	access, err := h.jwt.GenerateAccessToken(auth.PrincipalOf(user))
	if err != nil {
		h.fail(c, "token refresh", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

type SignUpRequest struct {
	FullName        string      `json:"fullName" validate:"required"`
	Email           string      `json:"email" validate:"required,email"`
	Password        string      `json:"password" validate:"required,min=8"`
	ConfirmPassword string      `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            models.Role `json:"role" validate:"required,oneof=STUDENT PROFESSOR"`
	StudentID       string      `json:"studentId" validate:"required_if=Role STUDENT"`
	AgreeToTerms    bool        `json:"agreeToTerms" validate:"required"`
}

// SignUp handles POST /api/auth/signup/
func (h *APIHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if !h.bind(c, &req) {
		return
	}

	id := strings.TrimSpace(req.StudentID)
	if req.Role != models.RoleStudent || id == "" {
		generated, err := auth.GenerateUserID(req.Role)
		if err != nil {
			h.fail(c, "sign up", err)
			return
		}
		id = generated
	}

	user := models.User{
		ID:              id,
		Name:            strings.TrimSpace(req.FullName),
		Email:           strings.TrimSpace(req.Email),
		Role:            req.Role,
		Status:          models.UserActive,
		HasAccess:       true,
		EnrolledCourses: []string{},
		EnrolledDate:    h.now().Format("2006-01-02"),
	}
	if err := user.SetPassword(req.Password); err != nil {
		h.fail(c, "sign up", err)
		return
	}
	if err := h.store.AddUser(c.Request.Context(), user); err != nil {
		h.fail(c, "sign up", err)
		return
	}
	h.log.Info("user signed up", personOf(auth.PrincipalOf(&user)))
	c.JSON(http.StatusCreated, user)
}

type MeResponse struct {
	User       models.User    `json:"user"`
	Dashboard  string         `json:"dashboard"`
	Navigation []auth.NavItem `json:"navigation"`
}

// Me handles GET /api/auth/users/me/
func (h *APIHandler) Me(c *gin.Context) {
	p := principal(c)
	user, err := h.store.GetUser(c.Request.Context(), p.ID)
	if err != nil {
		h.fail(c, "user", err)
		return
	}
	c.JSON(http.StatusOK, MeResponse{
		User:       *user,
		Dashboard:  auth.DashboardPath(user.Role),
		Navigation: auth.Navigation(user.Role),
	})
}
