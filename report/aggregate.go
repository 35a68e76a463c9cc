// Package report rolls attendance records up into the per-date and
// per-date-and-course summaries behind the report table, the attendance
// chart and the exports.
//
// Records are joined to their session and course by id; the first match wins
// when ids repeat. A record whose session (or, for course rows, whose
// session's course) cannot be found contributes nothing. Rows come out in the
// order their key is first seen while walking the attendance slice.
package report

import (
	"math"

	"smartid-server-go/models"
)

// DateCourseRow is one line of the attendance table.
type DateCourseRow struct {
	Date    string `json:"date"`
	Course  string `json:"course"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
	// Percentage is nil when the row holds no records.
	Percentage *int `json:"percentage"`
}

// DateRow is one bar of the attendance chart.
type DateRow struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

type dateCourseKey struct {
	date     string
	courseID string
}

// index resolves foreign keys. Only the first occurrence of an id is kept.
type index struct {
	sessions map[string]*models.Session
	courses  map[string]*models.Course
}

func newIndex(sessions []models.Session, courses []models.Course) index {
	idx := index{
		sessions: make(map[string]*models.Session, len(sessions)),
		courses:  make(map[string]*models.Course, len(courses)),
	}
	for i := range sessions {
		if _, ok := idx.sessions[sessions[i].ID]; !ok {
			idx.sessions[sessions[i].ID] = &sessions[i]
		}
	}
	for i := range courses {
		if _, ok := idx.courses[courses[i].ID]; !ok {
			idx.courses[courses[i].ID] = &courses[i]
		}
	}
	return idx
}

// tally is the per-row counter shared by every row type.
type tally struct {
	present int
	absent  int
}

func (t *tally) count(status string) {
	if status == models.StatusPresent {
		t.present++
	} else {
		t.absent++
	}
}

// grouping describes one aggregation: how to key a record and how to build
// the output row from the key's first record and the final tally.
type grouping[K comparable, R any] struct {
	key   func(rec *models.AttendanceRecord, idx index) (K, bool)
	build func(rec *models.AttendanceRecord, idx index, t tally) R
}

// aggregate runs a single pass over attendance, counting per key.
func aggregate[K comparable, R any](attendance []models.AttendanceRecord, idx index, g grouping[K, R]) []R {
	order := make([]K, 0)
	first := make(map[K]*models.AttendanceRecord)
	tallies := make(map[K]*tally)

	for i := range attendance {
		rec := &attendance[i]
		k, ok := g.key(rec, idx)
		if !ok {
			continue
		}
		t, seen := tallies[k]
		if !seen {
			t = &tally{}
			tallies[k] = t
			first[k] = rec
			order = append(order, k)
		}
		t.count(rec.Status)
	}

	rows := make([]R, 0, len(order))
	for _, k := range order {
		rows = append(rows, g.build(first[k], idx, *tallies[k]))
	}
	return rows
}

var byDateAndCourse = grouping[dateCourseKey, DateCourseRow]{
	key: func(rec *models.AttendanceRecord, idx index) (dateCourseKey, bool) {
		sess, ok := idx.sessions[rec.SessionID]
		if !ok {
			return dateCourseKey{}, false
		}
		course, ok := idx.courses[sess.CourseID]
		if !ok {
			return dateCourseKey{}, false
		}
		return dateCourseKey{date: sess.Date, courseID: course.ID}, true
	},
	build: func(rec *models.AttendanceRecord, idx index, t tally) DateCourseRow {
		sess := idx.sessions[rec.SessionID]
		course := idx.courses[sess.CourseID]
		return DateCourseRow{
			Date:       sess.Date,
			Course:     course.Name,
			Present:    t.present,
			Absent:     t.absent,
			Percentage: Percentage(t.present, t.absent),
		}
	},
}

var byDate = grouping[string, DateRow]{
	key: func(rec *models.AttendanceRecord, idx index) (string, bool) {
		sess, ok := idx.sessions[rec.SessionID]
		if !ok {
			return "", false
		}
		return sess.Date, true
	},
	build: func(rec *models.AttendanceRecord, idx index, t tally) DateRow {
		return DateRow{
			Date:    idx.sessions[rec.SessionID].Date,
			Present: t.present,
			Absent:  t.absent,
		}
	},
}

// AggregateByDateAndCourse groups attendance by (session date, course) and
// counts present and absent records. Any status other than "present" counts
// as absent.
func AggregateByDateAndCourse(attendance []models.AttendanceRecord, sessions []models.Session, courses []models.Course) []DateCourseRow {
	return aggregate(attendance, newIndex(sessions, courses), byDateAndCourse)
}

// AggregateByDate groups attendance by session date only.
func AggregateByDate(attendance []models.AttendanceRecord, sessions []models.Session) []DateRow {
	return aggregate(attendance, newIndex(sessions, nil), byDate)
}

// Percentage returns round(present / (present+absent) * 100), or nil when
// there is nothing to divide by.
func Percentage(present, absent int) *int {
	total := present + absent
	if total <= 0 {
		return nil
	}
	p := int(math.Round(float64(present) / float64(total) * 100))
	return &p
}
