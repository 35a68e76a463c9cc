package db

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartid-server-go/logger"
	"smartid-server-go/models"
)

func testLogger() logger.Logger {
	return logger.NewWithWriter(io.Discard, "DB : ", logger.Options{})
}

func TestMemoryStore_Courses(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	empty, err := s.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, s.AddCourse(ctx, models.Course{ID: "2", Name: "Data Structures"}))
	require.NoError(t, s.AddCourse(ctx, models.Course{ID: "1", Name: "Computer Science 101"}))
	assert.Equal(t, ErrIDExists, s.AddCourse(ctx, models.Course{ID: "1", Name: "Again"}))

	courses, err := s.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "2", courses[0].ID, "insertion order")

	c, err := s.GetCourse(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Computer Science 101", c.Name)

	_, err = s.GetCourse(ctx, "9")
	assert.Equal(t, ErrNotFound, err)

	empty, err = s.IsEmpty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u := models.User{ID: "S001", Name: "Ahmed Ali", Email: "ahmed@student.edu", Role: models.RoleStudent, EnrolledCourses: []string{"1"}}
	require.NoError(t, s.AddUser(ctx, u))
	assert.Equal(t, ErrEmailExists, s.AddUser(ctx, models.User{ID: "S002", Email: "AHMED@student.edu"}))
	assert.Equal(t, ErrIDExists, s.AddUser(ctx, models.User{ID: "S001", Email: "other@student.edu"}))

	got, err := s.GetUserByEmail(ctx, "Ahmed@Student.edu")
	require.NoError(t, err)
	assert.Equal(t, "S001", got.ID)

	// returned users do not alias stored state
	got.EnrolledCourses[0] = "changed"
	again, err := s.GetUser(ctx, "S001")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, again.EnrolledCourses)

	require.NoError(t, s.AddUser(ctx, models.User{ID: "S002", Email: "fatima@student.edu"}))
	again.Email = "fatima@student.edu"
	assert.Equal(t, ErrEmailExists, s.UpdateUser(ctx, *again))

	again.Email = "ahmed.ali@student.edu"
	again.HasAccess = true
	require.NoError(t, s.UpdateUser(ctx, *again))
	got, err = s.GetUser(ctx, "S001")
	require.NoError(t, err)
	assert.True(t, got.HasAccess)
	assert.Equal(t, "ahmed.ali@student.edu", got.Email)

	assert.Equal(t, ErrNotFound, s.UpdateUser(ctx, models.User{ID: "nobody"}))
}

func TestMemoryStore_SessionsAndAttendance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.AddSession(ctx, models.Session{ID: "1", CourseID: "1", Status: models.SessionActive}))
	sess, err := s.GetSession(ctx, "1")
	require.NoError(t, err)
	sess.Status = models.SessionCompleted
	require.NoError(t, s.UpdateSession(ctx, *sess))
	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, sessions[0].Status)
	assert.Equal(t, ErrNotFound, s.UpdateSession(ctx, models.Session{ID: "2"}))

	require.NoError(t, s.AddAttendance(ctx, models.AttendanceRecord{ID: "1", SessionID: "1", Status: models.StatusAbsent}))
	rec, err := s.GetAttendance(ctx, "1")
	require.NoError(t, err)
	rec.Status = models.StatusPresent
	require.NoError(t, s.UpdateAttendance(ctx, *rec))
	records, err := s.ListAttendance(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPresent, records[0].Status)
	_, err = s.GetAttendance(ctx, "2")
	assert.Equal(t, ErrNotFound, err)
}

func TestMemoryStore_NotificationsAndMethods(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.AddNotification(ctx, models.Notification{ID: "1", Title: "Session Started", Role: models.NotifyAll}))
	require.NoError(t, s.MarkNotificationRead(ctx, "1"))
	ns, err := s.ListNotifications(ctx)
	require.NoError(t, err)
	assert.True(t, ns[0].Read)
	assert.Equal(t, ErrNotFound, s.MarkNotificationRead(ctx, "2"))

	m, err := s.SetAttendanceMethod(ctx, models.MethodQR, true)
	require.NoError(t, err)
	assert.True(t, m.Enabled)
	methods, err := s.ListAttendanceMethods(ctx)
	require.NoError(t, err)
	require.Len(t, methods, 4)
	assert.True(t, methods[3].Enabled)

	_, err = s.SetAttendanceMethod(ctx, "iris", true)
	assert.Equal(t, ErrNotFound, err)
}

func TestCheckAndSeed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, CheckAndSeed(ctx, s, testLogger()))
	snap, err := LoadSnapshot(ctx, s)
	require.NoError(t, err)
	assert.Len(t, snap.Courses, 3)
	assert.Len(t, snap.Users, 8)
	assert.Len(t, snap.Sessions, 3)
	assert.Len(t, snap.Attendance, 8)
	assert.Len(t, snap.Methods, 4)

	admin, err := s.GetUserByEmail(ctx, "admin@smartid.edu")
	require.NoError(t, err)
	assert.NoError(t, admin.CheckPassword("admin123"))
	assert.True(t, admin.HasAccess)

	// second run is a no-op
	require.NoError(t, CheckAndSeed(ctx, s, testLogger()))
	courses, err := s.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 3)
}
