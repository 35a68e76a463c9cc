package db

import (
	"context"
	"errors"

	"smartid-server-go/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrEmailExists = errors.New("a user with this email already exists")
	ErrIDExists    = errors.New("an entry with this id already exists")

	// ErrAttendanceExists is returned by AddAttendance when the student
	// already has a record for the session.
	ErrAttendanceExists = errors.New("attendance already recorded")
	// ErrSessionActive is returned when a course would get a second active
	// session.
	ErrSessionActive = errors.New("a session is already active for this course")
)

// Store is the persistence layer behind the API. List methods return entries
// in insertion order; Get methods return ErrNotFound for unknown ids.
type Store interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	AddCourse(ctx context.Context, course models.Course) error

	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	AddUser(ctx context.Context, user models.User) error
	UpdateUser(ctx context.Context, user models.User) error

	ListSessions(ctx context.Context) ([]models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// AddSession and UpdateSession keep at most one active session per
	// course and return ErrSessionActive otherwise.
	AddSession(ctx context.Context, session models.Session) error
	UpdateSession(ctx context.Context, session models.Session) error

	ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error)
	GetAttendance(ctx context.Context, id string) (*models.AttendanceRecord, error)
	// AddAttendance returns ErrAttendanceExists when a record for the same
	// session and student is already stored.
	AddAttendance(ctx context.Context, record models.AttendanceRecord) error
	UpdateAttendance(ctx context.Context, record models.AttendanceRecord) error

	ListNotifications(ctx context.Context) ([]models.Notification, error)
	AddNotification(ctx context.Context, n models.Notification) error
	MarkNotificationRead(ctx context.Context, id string) error

	ListAttendanceMethods(ctx context.Context) ([]models.AttendanceMethod, error)
	SetAttendanceMethod(ctx context.Context, key string, enabled bool) (*models.AttendanceMethod, error)

	// IsEmpty reports whether no course has been stored yet.
	IsEmpty(ctx context.Context) (bool, error)
	Close() error
}

// Snapshot is the data every report reads, fetched in one go.
type Snapshot struct {
	Users      []models.User
	Courses    []models.Course
	Sessions   []models.Session
	Attendance []models.AttendanceRecord
	Methods    []models.AttendanceMethod
}

// LoadSnapshot reads all collections from s.
func LoadSnapshot(ctx context.Context, s Store) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Users, err = s.ListUsers(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Courses, err = s.ListCourses(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Sessions, err = s.ListSessions(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Attendance, err = s.ListAttendance(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Methods, err = s.ListAttendanceMethods(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
