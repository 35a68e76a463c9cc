package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"smartid-server-go/db"
	"smartid-server-go/models"
	"smartid-server-go/report"
)

// --- Session Handlers ---

// ListSessions handles GET /api/attendance/sessions/?courseId=&status=
func (h *APIHandler) ListSessions(c *gin.Context) {
	sessions, err := h.store.ListSessions(c.Request.Context())
	if err != nil {
		h.fail(c, "sessions", err)
		return
	}
	courseID, status := c.Query("courseId"), c.Query("status")
	out := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if courseID != "" && s.CourseID != courseID {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, s)
	}
	respondList(c, out)
}

type StartSessionRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

// StartSession handles POST /api/attendance/sessions/
func (h *APIHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	p := principal(c)

	course, err := h.store.GetCourse(ctx, req.CourseID)
	if err != nil {
		h.fail(c, "course", err)
		return
	}
	if p.Role == models.RoleProfessor && course.ProfessorID != p.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not teach this course"})
		return
	}

	now := h.now()
	session := models.Session{
		ID:        uuid.NewString(),
		CourseID:  course.ID,
		Date:      now.Format(report.DateLayout),
		StartTime: now.Format("15:04"),
		Status:    models.SessionActive,
	}
	if err := h.store.AddSession(ctx, session); err != nil {
		h.fail(c, "session", err)
		return
	}

	notification := models.Notification{
		ID:        uuid.NewString(),
		Title:     "Session Started",
		Message:   course.Code + " session has started",
		Timestamp: now,
		Role:      models.NotifyAll,
	}
	if err := h.store.AddNotification(ctx, notification); err != nil {
		h.log.Warn("adding session notification", err, personOf(p))
	}

	h.log.Info("session started for "+course.Code, personOf(p))
	c.JSON(http.StatusCreated, session)
}

// StopSession handles POST /api/attendance/sessions/:id/stop/
func (h *APIHandler) StopSession(c *gin.Context) {
	ctx := c.Request.Context()
	p := principal(c)

	session, err := h.store.GetSession(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "session", err)
		return
	}
	if session.Status != models.SessionActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Session is not active"})
		return
	}
	if p.Role == models.RoleProfessor {
		course, err := h.store.GetCourse(ctx, session.CourseID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			h.fail(c, "course", err)
			return
		}
		if course == nil || course.ProfessorID != p.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not teach this course"})
			return
		}
	}

	session.Status = models.SessionCompleted
	session.EndTime = h.now().Format("15:04")
	if err := h.store.UpdateSession(ctx, *session); err != nil {
		h.fail(c, "session", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// --- Attendance Record Handlers ---

// ListRecords handles GET /api/attendance/records/?sessionId=&studentId=
// Students only ever see their own records.
func (h *APIHandler) ListRecords(c *gin.Context) {
	records, err := h.store.ListAttendance(c.Request.Context())
	if err != nil {
		h.fail(c, "attendance records", err)
		return
	}
	sessionID, studentID := c.Query("sessionId"), c.Query("studentId")
	if p := principal(c); p.Role == models.RoleStudent {
		studentID = p.ID
	}
	out := make([]models.AttendanceRecord, 0, len(records))
	for _, r := range records {
		if sessionID != "" && r.SessionID != sessionID {
			continue
		}
		if studentID != "" && r.StudentID != studentID {
			continue
		}
		out = append(out, r)
	}
	respondList(c, out)
}

type MarkAttendanceRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	StudentID string `json:"studentId"`
	Method    string `json:"method" validate:"omitempty,oneof=face fingerprint rfid qr"`
}

// MarkAttendance handles POST /api/attendance/records/. Students check
// themselves in; staff name the student.
func (h *APIHandler) MarkAttendance(c *gin.Context) {
	var req MarkAttendanceRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	p := principal(c)

	studentID := req.StudentID
	if p.Role == models.RoleStudent {
		studentID = p.ID
	}
	if studentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": map[string]string{"studentId": "This field is required"}})
		return
	}

	if req.Method != "" {
		methods, err := h.store.ListAttendanceMethods(ctx)
		if err != nil {
			h.fail(c, "attendance methods", err)
			return
		}
		for _, m := range methods {
			if m.Key == req.Method && !m.Enabled {
				c.JSON(http.StatusForbidden, gin.H{"error": m.Name + " is disabled"})
				return
			}
		}
	}

	session, err := h.store.GetSession(ctx, req.SessionID)
	if err != nil {
		h.fail(c, "session", err)
		return
	}
	if session.Status != models.SessionActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Session is not active"})
		return
	}
	student, err := h.store.GetUser(ctx, studentID)
	if err != nil {
		h.fail(c, "student", err)
		return
	}
	if student.Role != models.RoleStudent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only students can be marked present"})
		return
	}

	now := h.now()
	record := models.AttendanceRecord{
		ID:            uuid.NewString(),
		SessionID:     session.ID,
		StudentID:     studentID,
		Status:        models.StatusPresent,
		Timestamp:     &now,
		ArrivalStatus: session.ArrivalAt(now),
	}
	if err := h.store.AddAttendance(ctx, record); err != nil {
		h.fail(c, "attendance record", err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

type UpdateRecordRequest struct {
	Status        string `json:"status" validate:"omitempty,oneof=present absent"`
	ArrivalStatus string `json:"arrivalStatus" validate:"omitempty,oneof=on-time late absent pending"`
}

// UpdateRecord handles PATCH /api/attendance/records/:id/
func (h *APIHandler) UpdateRecord(c *gin.Context) {
	var req UpdateRecordRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()

	record, err := h.store.GetAttendance(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "attendance record", err)
		return
	}

	switch req.Status {
	case models.StatusAbsent:
		record.Status = models.StatusAbsent
		record.Timestamp = nil
		record.ArrivalStatus = models.ArrivalAbsent
	case models.StatusPresent:
		record.Status = models.StatusPresent
		if record.Timestamp == nil {
			now := h.now()
			record.Timestamp = &now
		}
		if record.ArrivalStatus == models.ArrivalAbsent || record.ArrivalStatus == "" {
			record.ArrivalStatus = models.ArrivalOnTime
		}
	}
	if req.ArrivalStatus != "" {
		record.ArrivalStatus = req.ArrivalStatus
	}

	if err := h.store.UpdateAttendance(ctx, *record); err != nil {
		h.fail(c, "attendance record", err)
		return
	}
	c.JSON(http.StatusOK, record)
}
