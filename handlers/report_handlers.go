package handlers

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"smartid-server-go/db"
	"smartid-server-go/models"
	"smartid-server-go/report"
)

type ReportResponse struct {
	Filter report.Filter `json:"filter"`
	report.Result
}

// reportFilter reads courseId, startDate and endDate from the query string.
// It writes the 400 response itself on malformed dates.
func reportFilter(c *gin.Context) (report.Filter, bool) {
	var f report.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: " + err.Error()})
		return f, false
	}
	fields := map[string]string{}
	for name, v := range map[string]string{"startDate": f.StartDate, "endDate": f.EndDate} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(report.DateLayout, v); err != nil {
			fields[name] = "Must be a date in YYYY-MM-DD format"
		}
	}
	if len(fields) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fields})
		return f, false
	}
	return f, true
}

// AttendanceReport handles GET /api/reports/attendance/
func (h *APIHandler) AttendanceReport(c *gin.Context) {
	f, ok := reportFilter(c)
	if !ok {
		return
	}
	snap, err := db.LoadSnapshot(c.Request.Context(), h.store)
	if err != nil {
		h.fail(c, "report", err)
		return
	}

	sessions, attendance := f.Apply(snap.Sessions, snap.Attendance)
	res := report.Summarize(attendance, sessions, snap.Courses)
	if len(res.Orphans) > 0 {
		h.log.Warn("attendance records left out of report", map[string]interface{}{"orphans": len(res.Orphans)})
	}
	c.JSON(http.StatusOK, ReportResponse{Filter: f, Result: res})
}

type TodayResponse struct {
	Date    string                    `json:"date"`
	Chart   []report.DateRow          `json:"chart"`
	Rows    []report.DateCourseRow    `json:"rows"`
	Records []models.AttendanceRecord `json:"records"`
}

// TodayReport handles GET /api/reports/attendance/today/. Students get their
// own records only.
func (h *APIHandler) TodayReport(c *gin.Context) {
	snap, err := db.LoadSnapshot(c.Request.Context(), h.store)
	if err != nil {
		h.fail(c, "report", err)
		return
	}

	now := h.now()
	f := report.Today(now)
	if courseID := c.Query("courseId"); courseID != "" {
		f.CourseID = courseID
	}
	sessions, attendance := f.Apply(snap.Sessions, snap.Attendance)
	if p := principal(c); p.Role == models.RoleStudent {
		own := make([]models.AttendanceRecord, 0, len(attendance))
		for _, r := range attendance {
			if r.StudentID == p.ID {
				own = append(own, r)
			}
		}
		attendance = own
	}

	c.JSON(http.StatusOK, TodayResponse{
		Date:    f.StartDate,
		Chart:   report.TodayChart(now, attendance, sessions),
		Rows:    report.AggregateByDateAndCourse(attendance, sessions, snap.Courses),
		Records: attendance,
	})
}

// ExportReport handles GET /api/reports/attendance/export/?format=csv|xlsx
func (h *APIHandler) ExportReport(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", report.FormatCSV))
	if format != report.FormatCSV && format != report.FormatXLSX {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": map[string]string{"format": "Must be one of: csv xlsx"}})
		return
	}
	f, ok := reportFilter(c)
	if !ok {
		return
	}
	snap, err := db.LoadSnapshot(c.Request.Context(), h.store)
	if err != nil {
		h.fail(c, "export", err)
		return
	}

	sessions, attendance := f.Apply(snap.Sessions, snap.Attendance)
	rows := report.AggregateByDateAndCourse(attendance, sessions, snap.Courses)

	var buf bytes.Buffer
	if err := report.Write(&buf, format, rows); err != nil {
		h.fail(c, "export", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+report.ExportFilename(h.now(), format)+`"`)
	c.Data(http.StatusOK, report.ContentType(format), buf.Bytes())
}

// Dashboard handles GET /api/dashboard/ and returns the summary for the
// caller's role.
func (h *APIHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	p := principal(c)

	snap, err := db.LoadSnapshot(ctx, h.store)
	if err != nil {
		h.fail(c, "dashboard", err)
		return
	}
	data := report.Data(snap)

	switch p.Role {
	case models.RoleAdmin:
		c.JSON(http.StatusOK, report.BuildAdminDashboard(data))
	case models.RoleProfessor:
		c.JSON(http.StatusOK, report.BuildProfessorDashboard(data, h.now()))
	case models.RoleStudent:
		student, err := h.store.GetUser(ctx, p.ID)
		if err != nil {
			h.fail(c, "student", err)
			return
		}
		c.JSON(http.StatusOK, report.BuildStudentDashboard(data, *student))
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Unknown role"})
	}
}
