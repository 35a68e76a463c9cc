package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartid-server-go/models"
)

func pct(n int) *int { return &n }

func fixture() ([]models.AttendanceRecord, []models.Session, []models.Course) {
	sessions := []models.Session{
		{ID: "1", CourseID: "1", Date: "2025-11-13", StartTime: "09:00", EndTime: "10:30", Status: models.SessionCompleted},
		{ID: "2", CourseID: "2", Date: "2025-11-13", StartTime: "11:00", EndTime: "12:30", Status: models.SessionActive},
		{ID: "3", CourseID: "1", Date: "2025-11-12", StartTime: "09:00", EndTime: "10:30", Status: models.SessionCompleted},
	}
	courses := []models.Course{
		{ID: "1", Name: "Computer Science 101", Code: "CS101"},
		{ID: "2", Name: "Data Structures", Code: "CS201"},
	}
	attendance := []models.AttendanceRecord{
		{ID: "1", SessionID: "1", StudentID: "S001", Status: "present", ArrivalStatus: "on-time"},
		{ID: "2", SessionID: "1", StudentID: "S002", Status: "present", ArrivalStatus: "late"},
		{ID: "3", SessionID: "1", StudentID: "S004", Status: "absent", ArrivalStatus: "absent"},
		{ID: "4", SessionID: "2", StudentID: "S003", Status: "present", ArrivalStatus: "on-time"},
		{ID: "5", SessionID: "2", StudentID: "S004", Status: "present", ArrivalStatus: "late"},
		{ID: "6", SessionID: "3", StudentID: "S001", Status: "present", ArrivalStatus: "on-time"},
	}
	return attendance, sessions, courses
}

func TestAggregateByDateAndCourse(t *testing.T) {
	oneSession := []models.Session{{ID: "1", CourseID: "1", Date: "2025-11-13"}}
	oneCourse := []models.Course{{ID: "1", Name: "CS101"}}

	tests := []struct {
		name       string
		attendance []models.AttendanceRecord
		sessions   []models.Session
		courses    []models.Course
		want       []DateCourseRow
	}{
		{
			name: "empty input",
			want: []DateCourseRow{},
		},
		{
			name: "two present one absent",
			attendance: []models.AttendanceRecord{
				{SessionID: "1", Status: "present"},
				{SessionID: "1", Status: "present"},
				{SessionID: "1", Status: "absent"},
			},
			sessions: oneSession,
			courses:  oneCourse,
			want:     []DateCourseRow{{Date: "2025-11-13", Course: "CS101", Present: 2, Absent: 1, Percentage: pct(67)}},
		},
		{
			name:       "all absent",
			attendance: []models.AttendanceRecord{{SessionID: "1", Status: "absent"}},
			sessions:   oneSession,
			courses:    oneCourse,
			want:       []DateCourseRow{{Date: "2025-11-13", Course: "CS101", Present: 0, Absent: 1, Percentage: pct(0)}},
		},
		{
			name: "unrecognised status counts as absent",
			attendance: []models.AttendanceRecord{
				{SessionID: "1", Status: "present"},
				{SessionID: "1", Status: "excused"},
				{SessionID: "1", Status: ""},
			},
			sessions: oneSession,
			courses:  oneCourse,
			want:     []DateCourseRow{{Date: "2025-11-13", Course: "CS101", Present: 1, Absent: 2, Percentage: pct(33)}},
		},
		{
			name:       "orphan record dropped",
			attendance: []models.AttendanceRecord{{SessionID: "404", Status: "present"}},
			sessions:   oneSession,
			courses:    oneCourse,
			want:       []DateCourseRow{},
		},
		{
			name:       "orphan session dropped",
			attendance: []models.AttendanceRecord{{SessionID: "1", Status: "present"}},
			sessions:   []models.Session{{ID: "1", CourseID: "missing", Date: "2025-11-13"}},
			courses:    oneCourse,
			want:       []DateCourseRow{},
		},
		{
			name: "same date different courses",
			attendance: []models.AttendanceRecord{
				{SessionID: "a", Status: "present"},
				{SessionID: "b", Status: "absent"},
			},
			sessions: []models.Session{
				{ID: "a", CourseID: "1", Date: "2025-11-13"},
				{ID: "b", CourseID: "2", Date: "2025-11-13"},
			},
			courses: []models.Course{{ID: "1", Name: "CS101"}, {ID: "2", Name: "CS201"}},
			want: []DateCourseRow{
				{Date: "2025-11-13", Course: "CS101", Present: 1, Absent: 0, Percentage: pct(100)},
				{Date: "2025-11-13", Course: "CS201", Present: 0, Absent: 1, Percentage: pct(0)},
			},
		},
		{
			name: "two sessions of one course on one date share a row",
			attendance: []models.AttendanceRecord{
				{SessionID: "a", Status: "present"},
				{SessionID: "b", Status: "absent"},
			},
			sessions: []models.Session{
				{ID: "a", CourseID: "1", Date: "2025-11-13"},
				{ID: "b", CourseID: "1", Date: "2025-11-13"},
			},
			courses: oneCourse,
			want:    []DateCourseRow{{Date: "2025-11-13", Course: "CS101", Present: 1, Absent: 1, Percentage: pct(50)}},
		},
		{
			name: "first duplicate id wins",
			attendance: []models.AttendanceRecord{
				{SessionID: "1", Status: "present"},
			},
			sessions: []models.Session{
				{ID: "1", CourseID: "1", Date: "2025-11-13"},
				{ID: "1", CourseID: "1", Date: "2025-11-14"},
			},
			courses: []models.Course{{ID: "1", Name: "CS101"}, {ID: "1", Name: "Other"}},
			want:    []DateCourseRow{{Date: "2025-11-13", Course: "CS101", Present: 1, Absent: 0, Percentage: pct(100)}},
		},
		{
			name: "first-seen order, not date order",
			attendance: []models.AttendanceRecord{
				{SessionID: "late", Status: "present"},
				{SessionID: "early", Status: "present"},
			},
			sessions: []models.Session{
				{ID: "early", CourseID: "1", Date: "2025-11-01"},
				{ID: "late", CourseID: "1", Date: "2025-11-20"},
			},
			courses: oneCourse,
			want: []DateCourseRow{
				{Date: "2025-11-20", Course: "CS101", Present: 1, Percentage: pct(100)},
				{Date: "2025-11-01", Course: "CS101", Present: 1, Percentage: pct(100)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateByDateAndCourse(tt.attendance, tt.sessions, tt.courses)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregateByDate(t *testing.T) {
	attendance, sessions, _ := fixture()

	got := AggregateByDate(attendance, sessions)
	assert.Equal(t, []DateRow{
		{Date: "2025-11-13", Present: 4, Absent: 1},
		{Date: "2025-11-12", Present: 1, Absent: 0},
	}, got)

	assert.Equal(t, []DateRow{}, AggregateByDate(nil, nil))
	assert.Empty(t, AggregateByDate([]models.AttendanceRecord{{SessionID: "x"}}, sessions))
}

func TestAggregateByDate_NoCourseNeeded(t *testing.T) {
	attendance := []models.AttendanceRecord{{SessionID: "1", Status: "present"}}
	sessions := []models.Session{{ID: "1", CourseID: "gone", Date: "2025-11-13"}}

	assert.Empty(t, AggregateByDateAndCourse(attendance, sessions, nil))
	assert.Equal(t, []DateRow{{Date: "2025-11-13", Present: 1}}, AggregateByDate(attendance, sessions))
}

func TestAggregate_Pure(t *testing.T) {
	attendance, sessions, courses := fixture()
	origAttendance := append([]models.AttendanceRecord(nil), attendance...)
	origSessions := append([]models.Session(nil), sessions...)
	origCourses := append([]models.Course(nil), courses...)

	first := AggregateByDateAndCourse(attendance, sessions, courses)
	second := AggregateByDateAndCourse(attendance, sessions, courses)
	assert.Equal(t, first, second)
	require.NotEmpty(t, first)
	assert.NotSame(t, &first[0], &second[0])
	assert.NotSame(t, first[0].Percentage, second[0].Percentage)

	firstChart := AggregateByDate(attendance, sessions)
	assert.Equal(t, firstChart, AggregateByDate(attendance, sessions))

	assert.Equal(t, origAttendance, attendance)
	assert.Equal(t, origSessions, sessions)
	assert.Equal(t, origCourses, courses)
}

func TestPercentage(t *testing.T) {
	assert.Nil(t, Percentage(0, 0))
	assert.Equal(t, 67, *Percentage(2, 1))
	assert.Equal(t, 50, *Percentage(1, 1))
	assert.Equal(t, 100, *Percentage(3, 0))
	assert.Equal(t, 0, *Percentage(0, 4))
	// half rounds up
	assert.Equal(t, 13, *Percentage(1, 7))
}

func TestSummarize(t *testing.T) {
	attendance, sessions, courses := fixture()
	attendance = append(attendance,
		models.AttendanceRecord{ID: "7", SessionID: "ghost", Status: "present"},
		models.AttendanceRecord{ID: "8", SessionID: "9", Status: "absent"},
	)
	sessions = append(sessions, models.Session{ID: "9", CourseID: "deleted", Date: "2025-11-14"})

	res := Summarize(attendance, sessions, courses)

	assert.Equal(t, AggregateByDateAndCourse(attendance, sessions, courses), res.Rows)
	assert.Equal(t, AggregateByDate(attendance, sessions), res.Chart)
	assert.Equal(t, []Orphan{
		{RecordID: "7", SessionID: "ghost", Reason: ReasonMissingSession},
		{RecordID: "8", SessionID: "9", CourseID: "deleted", Reason: ReasonMissingCourse},
	}, res.Orphans)

	empty := Summarize(nil, nil, nil)
	assert.Empty(t, empty.Rows)
	assert.NotNil(t, empty.Orphans)
}
