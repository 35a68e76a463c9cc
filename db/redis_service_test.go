package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartid-server-go/config"
	"smartid-server-go/models"
)

// newTestRedis returns a RedisService backed by an in-process server.
func newTestRedis(t *testing.T) (*RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := InitializeRedisClient(context.Background(), config.Redis{Addr: mr.Addr()})
	require.NoError(t, err)
	s := NewRedisService(client, testLogger())
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

// stringify mimics what HGETALL hands back for fields written with HSET.
func stringify(fields map[string]interface{}) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v.(string)
	}
	return out
}

func TestRedisHashes_User(t *testing.T) {
	u := models.User{
		ID:              "S001",
		Name:            "Ahmed Ali",
		Email:           "ahmed@student.edu",
		Role:            models.RoleStudent,
		Status:          models.UserActive,
		HasAccess:       true,
		EnrolledCourses: []string{"1", "2"},
		EnrolledDate:    "2025-09-01",
		PasswordHash:    []byte("$2a$10$hash"),
	}
	assert.Equal(t, u, userFromHash(stringify(userFields(u))))

	u.EnrolledCourses = []string{}
	u.PasswordHash = nil
	assert.Equal(t, u, userFromHash(stringify(userFields(u))))
}

func TestRedisHashes_AttendanceTimestamp(t *testing.T) {
	ts := time.Date(2025, 11, 13, 9, 5, 0, 0, time.UTC)
	present := models.AttendanceRecord{ID: "1", SessionID: "1", StudentID: "S001", Status: models.StatusPresent, Timestamp: &ts, ArrivalStatus: models.ArrivalOnTime}
	got := recordFromHash(stringify(recordFields(present)))
	assert.True(t, ts.Equal(*got.Timestamp))

	absent := models.AttendanceRecord{ID: "3", SessionID: "1", StudentID: "S004", Status: models.StatusAbsent, ArrivalStatus: models.ArrivalAbsent}
	assert.Nil(t, recordFromHash(stringify(recordFields(absent))).Timestamp)
}

func TestRedisService_Contract(t *testing.T) {
	testStoreContract(t, func(t *testing.T) Store {
		s, _ := newTestRedis(t)
		return s
	})
}

func TestRedisService_Seed(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t)

	require.NoError(t, CheckAndSeed(ctx, s, testLogger()))
	snap, err := LoadSnapshot(ctx, s)
	require.NoError(t, err)
	assert.Len(t, snap.Courses, 3)
	assert.Len(t, snap.Users, 8)
	assert.Len(t, snap.Sessions, 3)
	assert.Len(t, snap.Attendance, 8)

	// the seeded active session and check-ins hold their claims
	assert.Equal(t, "2", mr.HGet(activeSessionsKey, "2"))
	assert.Equal(t, "4", mr.HGet(attendanceClaimKey+"2", "S003"))
	assert.Equal(t, ErrAttendanceExists, s.AddAttendance(ctx, models.AttendanceRecord{ID: "9", SessionID: "2", StudentID: "S003"}))

	admin, err := s.GetUserByEmail(ctx, "ADMIN@smartid.edu")
	require.NoError(t, err)
	assert.NoError(t, admin.CheckPassword("admin123"))

	// a second run finds data and leaves it alone
	require.NoError(t, CheckAndSeed(ctx, s, testLogger()))
	courses, err := s.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 3)
}

func TestRedisService_DanglingIDsAreSkipped(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t)

	require.NoError(t, s.AddCourse(ctx, models.Course{ID: "1", Name: "Computer Science 101", Code: "CS101"}))
	require.NoError(t, s.AddCourse(ctx, models.Course{ID: "2", Name: "Data Structures", Code: "CS201"}))
	mr.Del(courseInfoPrefix + "1")

	courses, err := s.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "CS201", courses[0].Code)

	_, err = s.GetCourse(ctx, "1")
	assert.Equal(t, ErrNotFound, err)
}

func TestRedisService_AttendanceMethods(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedis(t)

	m, err := s.SetAttendanceMethod(ctx, models.MethodQR, true)
	require.NoError(t, err)
	assert.True(t, m.Enabled)
	methods, err := s.ListAttendanceMethods(ctx)
	require.NoError(t, err)
	require.Len(t, methods, 4)
	assert.True(t, methods[3].Enabled)

	_, err = s.SetAttendanceMethod(ctx, "iris", true)
	assert.Equal(t, ErrNotFound, err)
	assert.Equal(t, ErrNotFound, s.MarkNotificationRead(ctx, "missing"))
}

func TestInitializeRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := InitializeRedisClient(ctx, config.Redis{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
