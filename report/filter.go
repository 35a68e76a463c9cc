package report

import (
	"time"

	"smartid-server-go/models"
)

// DateLayout is the calendar date format used by sessions and filters.
const DateLayout = "2006-01-02"

// AllCourses selects every course in a Filter.
const AllCourses = "all"

// Filter narrows the sessions that feed a report. Zero values match everything.
type Filter struct {
	CourseID  string `form:"courseId" json:"courseId"`
	StartDate string `form:"startDate" json:"startDate"` // inclusive, YYYY-MM-DD
	EndDate   string `form:"endDate" json:"endDate"`     // inclusive, YYYY-MM-DD
}

// Today returns a filter matching sessions held on now's calendar date.
func Today(now time.Time) Filter {
	d := now.Format(DateLayout)
	return Filter{StartDate: d, EndDate: d}
}

// Match reports whether s passes the filter. Dates compare lexically, which
// is chronological for YYYY-MM-DD.
func (f Filter) Match(s *models.Session) bool {
	if f.CourseID != "" && f.CourseID != AllCourses && s.CourseID != f.CourseID {
		return false
	}
	if f.StartDate != "" && s.Date < f.StartDate {
		return false
	}
	if f.EndDate != "" && s.Date > f.EndDate {
		return false
	}
	return true
}

// Apply returns the sessions passing the filter and the attendance records
// that belong to one of them. The inputs are not modified.
func (f Filter) Apply(sessions []models.Session, attendance []models.AttendanceRecord) ([]models.Session, []models.AttendanceRecord) {
	keptSessions := make([]models.Session, 0, len(sessions))
	ids := make(map[string]struct{}, len(sessions))
	for i := range sessions {
		if f.Match(&sessions[i]) {
			keptSessions = append(keptSessions, sessions[i])
			ids[sessions[i].ID] = struct{}{}
		}
	}

	keptAttendance := make([]models.AttendanceRecord, 0, len(attendance))
	for _, rec := range attendance {
		if _, ok := ids[rec.SessionID]; ok {
			keptAttendance = append(keptAttendance, rec)
		}
	}
	return keptSessions, keptAttendance
}

// TodayChart aggregates by date and substitutes a single zero row for today
// when nothing was recorded, so the chart always has a bar to draw.
func TodayChart(now time.Time, attendance []models.AttendanceRecord, sessions []models.Session) []DateRow {
	rows := AggregateByDate(attendance, sessions)
	if len(rows) == 0 {
		return []DateRow{{Date: now.Format(DateLayout)}}
	}
	return rows
}
