package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"smartid-server-go/auth"
	"smartid-server-go/db"
	"smartid-server-go/logger"
	"smartid-server-go/middleware"
	"smartid-server-go/models"
)

// APIHandler holds the dependencies for API handlers
type APIHandler struct {
	store    db.Store
	jwt      *auth.JWTService
	log      logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(store db.Store, jwtService *auth.JWTService, log logger.Logger) *APIHandler {
	return &APIHandler{
		store:    store,
		jwt:      jwtService,
		log:      log,
		validate: newValidator(),
		now:      time.Now,
	}
}

// RegisterRoutes mounts every endpoint under /api.
func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	admin := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleProfessor)

	api := router.Group("/api")
	api.GET("/ping", PingHandler)

	// Public auth routes
	api.POST("/auth/users/login/", h.Login)
	api.POST("/auth/token/refresh/", h.RefreshToken)
	api.POST("/auth/signup/", h.SignUp)

	protected := api.Group("", middleware.RequireAuth(h.jwt))
	{
		protected.GET("/auth/users/me/", h.Me)
		protected.GET("/auth/users/", staff, h.ListUsers)
		protected.POST("/auth/users/", admin, h.EnrollUser)
		protected.PATCH("/auth/users/:id/", admin, h.UpdateUser)
		protected.PATCH("/auth/users/:id/toggle_access/", admin, h.ToggleAccess)

		protected.GET("/courses/", h.ListCourses)
		protected.POST("/courses/", admin, h.AddCourse)

		protected.GET("/attendance/sessions/", h.ListSessions)
		protected.POST("/attendance/sessions/", staff, h.StartSession)
		protected.POST("/attendance/sessions/:id/stop/", staff, h.StopSession)
		protected.GET("/attendance/records/", h.ListRecords)
		protected.POST("/attendance/records/", h.MarkAttendance)
		protected.PATCH("/attendance/records/:id/", staff, h.UpdateRecord)

		protected.GET("/reports/attendance/", staff, h.AttendanceReport)
		protected.GET("/reports/attendance/today/", h.TodayReport)
		protected.GET("/reports/attendance/export/", staff, h.ExportReport)
		protected.GET("/dashboard/", h.Dashboard)

		protected.GET("/notifications/", h.ListNotifications)
		protected.PATCH("/notifications/:id/read/", h.MarkNotificationRead)
		protected.GET("/settings/attendance-methods/", h.ListAttendanceMethods)
		protected.PATCH("/settings/attendance-methods/:method/", admin, h.SetAttendanceMethod)

		protected.POST("/import/students", admin, h.ImportStudents)
	}
}

// list is the envelope of every collection response.
type list struct {
	Count   int         `json:"count"`
	Results interface{} `json:"results"`
}

func respondList[T any](c *gin.Context, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, list{Count: len(items), Results: items})
}

// principal returns the caller set by RequireAuth.
func principal(c *gin.Context) *auth.Principal {
	p, _ := middleware.GetPrincipal(c)
	return p
}

func personOf(p *auth.Principal) logger.Person {
	if p == nil {
		return logger.Person{}
	}
	return logger.Person{ID: p.ID, Username: p.Username, Email: p.Email}
}

// bind decodes the JSON body into req and validates it. It writes the 400
// response itself and reports whether the handler may continue.
func (h *APIHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fieldErrors(verrs)})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// fail maps store errors to responses. Unexpected errors are logged and
// reported as 500 without details.
func (h *APIHandler) fail(c *gin.Context, what string, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, db.ErrEmailExists):
		c.JSON(http.StatusConflict, gin.H{"error": db.ErrEmailExists.Error()})
	case errors.Is(err, db.ErrIDExists):
		c.JSON(http.StatusConflict, gin.H{"error": db.ErrIDExists.Error()})
	case errors.Is(err, db.ErrSessionActive):
		c.JSON(http.StatusConflict, gin.H{"error": "A session is already active for this course"})
	case errors.Is(err, db.ErrAttendanceExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Attendance already recorded"})
	default:
		h.log.Error(c.Request.Method+" "+c.FullPath()+": "+what, err, personOf(principal(c)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process " + what})
	}
}

// --- Ping Handler ---
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
