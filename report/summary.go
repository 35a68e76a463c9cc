package report

import "smartid-server-go/models"

// Orphan reasons
const (
	ReasonMissingSession = "missing_session"
	ReasonMissingCourse  = "missing_course"
)

// Orphan describes an attendance record that could not be placed in the
// date+course table.
type Orphan struct {
	RecordID  string `json:"recordId"`
	SessionID string `json:"sessionId"`
	CourseID  string `json:"courseId,omitempty"`
	Reason    string `json:"reason"`
}

// Result bundles the table rows, the chart rows and the records that were
// left out of the table.
type Result struct {
	Rows    []DateCourseRow `json:"rows"`
	Chart   []DateRow       `json:"chart"`
	Orphans []Orphan        `json:"orphans"`
}

// Summarize runs both aggregations and reports which records were dropped
// from the date+course table and why. A record with a session but no course
// still shows up in Chart.
func Summarize(attendance []models.AttendanceRecord, sessions []models.Session, courses []models.Course) Result {
	idx := newIndex(sessions, courses)
	res := Result{
		Rows:    aggregate(attendance, idx, byDateAndCourse),
		Chart:   aggregate(attendance, idx, byDate),
		Orphans: make([]Orphan, 0),
	}
	for i := range attendance {
		rec := &attendance[i]
		sess, ok := idx.sessions[rec.SessionID]
		if !ok {
			res.Orphans = append(res.Orphans, Orphan{
				RecordID:  rec.ID,
				SessionID: rec.SessionID,
				Reason:    ReasonMissingSession,
			})
			continue
		}
		if _, ok := idx.courses[sess.CourseID]; !ok {
			res.Orphans = append(res.Orphans, Orphan{
				RecordID:  rec.ID,
				SessionID: rec.SessionID,
				CourseID:  sess.CourseID,
				Reason:    ReasonMissingCourse,
			})
		}
	}
	return res
}
