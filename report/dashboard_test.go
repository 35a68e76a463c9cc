package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartid-server-go/models"
)

func dashboardData() Data {
	attendance, sessions, courses := fixture()
	return Data{
		Users: []models.User{
			{ID: "A001", Role: models.RoleAdmin, Status: models.UserActive, HasAccess: true},
			{ID: "P001", Role: models.RoleProfessor, Status: models.UserActive, HasAccess: true, EnrolledCourses: []string{"1"}},
			{ID: "S001", Name: "Ahmed Ali", Role: models.RoleStudent, Status: models.UserActive, HasAccess: true, EnrolledCourses: []string{"1", "2"}},
			{ID: "S003", Name: "Hassan Raza", Role: models.RoleStudent, Status: models.UserActive, HasAccess: true, EnrolledCourses: []string{"2"}},
			{ID: "S004", Name: "Sara Ahmed", Role: models.RoleStudent, Status: models.UserActive, HasAccess: true, EnrolledCourses: []string{"1", "2"}},
			{ID: "S009", Name: "Late Joiner", Role: models.RoleStudent, Status: models.UserInactive, HasAccess: false, EnrolledCourses: []string{"2"}},
		},
		Courses:    courses,
		Sessions:   sessions,
		Attendance: attendance,
		Methods:    models.DefaultAttendanceMethods(),
	}
}

func TestBuildAdminDashboard(t *testing.T) {
	got := BuildAdminDashboard(dashboardData())
	assert.Equal(t, AdminDashboard{
		TotalStudents:    4,
		ActiveStudents:   3,
		TotalCourses:     2,
		TotalRecords:     6,
		EnabledMethods:   3,
		TotalProfessors:  1,
		StudentsNoAccess: 1,
	}, got)
}

func TestBuildProfessorDashboard(t *testing.T) {
	now := time.Date(2025, 11, 13, 11, 30, 0, 0, time.UTC)
	got := BuildProfessorDashboard(dashboardData(), now)

	assert.Equal(t, 2, got.Courses)
	assert.Equal(t, 4, got.PresentToday)
	assert.Equal(t, 2, got.LateToday)
	assert.Equal(t, 1, got.AbsentToday)
	require.NotNil(t, got.ActiveSession)
	assert.Equal(t, "2", got.ActiveSession.ID)

	require.Len(t, got.Roster, 4)
	byStudent := map[string]string{}
	for _, e := range got.Roster {
		byStudent[e.Student.ID] = e.Record.Status
	}
	assert.Equal(t, map[string]string{
		"S001": models.ArrivalPending,
		"S003": models.StatusPresent,
		"S004": models.StatusPresent,
		"S009": models.ArrivalPending,
	}, byStudent)
}

func TestBuildProfessorDashboard_NoActiveSession(t *testing.T) {
	now := time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC)
	got := BuildProfessorDashboard(dashboardData(), now)
	assert.Nil(t, got.ActiveSession)
	assert.Empty(t, got.Roster)
	assert.Equal(t, 1, got.PresentToday)
}

func TestBuildStudentDashboard(t *testing.T) {
	d := dashboardData()
	got := BuildStudentDashboard(d, d.Users[2])

	assert.Equal(t, 2, got.EnrolledCourses)
	assert.Equal(t, 2, got.Present)
	assert.Equal(t, 0, got.Absent)
	assert.Equal(t, 0, got.Late)
	assert.Equal(t, 67, got.Percentage)
	assert.Equal(t, []CourseProgress{
		{CourseID: "1", Course: "Computer Science 101", Sessions: 2, Present: 2, Percentage: 100},
		{CourseID: "2", Course: "Data Structures", Sessions: 1, Present: 0, Percentage: 0},
	}, got.Courses)

	require.Len(t, got.Recent, 3)
	assert.Equal(t, "2025-11-12", got.Recent[0].Date)
	assert.Equal(t, models.StatusPresent, got.Recent[0].Status)
	assert.Equal(t, "Data Structures", got.Recent[1].Course)
	assert.Equal(t, models.ArrivalPending, got.Recent[1].Status)
}

func TestBuildStudentDashboard_NoSessions(t *testing.T) {
	got := BuildStudentDashboard(Data{}, models.User{ID: "S001"})
	assert.Equal(t, 0, got.Percentage)
	assert.Empty(t, got.Recent)
	assert.Empty(t, got.Courses)
}
