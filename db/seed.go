package db

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"smartid-server-go/logger"
	"smartid-server-go/models"
)

type seedUser struct {
	user     models.User
	password string
}

func seedTime(s string) *time.Time {
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		panic(err)
	}
	return &t
}

var (
	seedCourses = []models.Course{
		{ID: "1", Name: "Computer Science 101", Code: "CS101", ProfessorID: "P001", Professor: "Dr. Smith", Schedule: "Mon/Wed 9:00-10:30"},
		{ID: "2", Name: "Data Structures", Code: "CS201", ProfessorID: "P002", Professor: "Dr. Johnson", Schedule: "Tue/Thu 11:00-12:30"},
		{ID: "3", Name: "Web Development", Code: "CS301", ProfessorID: "P001", Professor: "Dr. Williams", Schedule: "Mon/Wed 14:00-15:30"},
	}

	seedUsers = []seedUser{
		{models.User{ID: "A001", Name: "Admin User", Username: "admin", Email: "admin@smartid.edu", Role: models.RoleAdmin}, "admin123"},
		{models.User{ID: "P001", Name: "Dr. Smith", Email: "smith@professor.edu", Role: models.RoleProfessor, EnrolledCourses: []string{"1", "3"}}, "prof123"},
		{models.User{ID: "P002", Name: "Dr. Johnson", Email: "johnson@professor.edu", Role: models.RoleProfessor, EnrolledCourses: []string{"2"}}, "prof123"},
		{models.User{ID: "S001", Name: "Ahmed Ali", Email: "ahmed@student.edu", Role: models.RoleStudent, EnrolledCourses: []string{"1", "2"}, EnrolledDate: "2025-09-01"}, "student123"},
		{models.User{ID: "S002", Name: "Fatima Khan", Email: "fatima@student.edu", Role: models.RoleStudent, EnrolledCourses: []string{"1", "3"}, EnrolledDate: "2025-09-01"}, "student123"},
		{models.User{ID: "S003", Name: "Hassan Raza", Email: "hassan@student.edu", Role: models.RoleStudent, EnrolledCourses: []string{"2"}, EnrolledDate: "2025-09-05"}, "student123"},
		{models.User{ID: "S004", Name: "Sara Ahmed", Email: "sara@student.edu", Role: models.RoleStudent, EnrolledCourses: []string{"1", "2", "3"}, EnrolledDate: "2025-09-01"}, "student123"},
		{models.User{ID: "S005", Name: "Ali Khan", Email: "ali@student.edu", Role: models.RoleStudent, EnrolledCourses: []string{"3"}, EnrolledDate: "2025-09-10"}, "student123"},
	}

	seedSessions = []models.Session{
		{ID: "1", CourseID: "1", Date: "2025-11-13", StartTime: "09:00", EndTime: "10:30", Status: models.SessionCompleted},
		{ID: "2", CourseID: "2", Date: "2025-11-13", StartTime: "11:00", EndTime: "12:30", Status: models.SessionActive},
		{ID: "3", CourseID: "1", Date: "2025-11-12", StartTime: "09:00", EndTime: "10:30", Status: models.SessionCompleted},
	}

	seedAttendance = []models.AttendanceRecord{
		{ID: "1", SessionID: "1", StudentID: "S001", Status: models.StatusPresent, Timestamp: seedTime("2025-11-13T09:05:00"), ArrivalStatus: models.ArrivalOnTime},
		{ID: "2", SessionID: "1", StudentID: "S002", Status: models.StatusPresent, Timestamp: seedTime("2025-11-13T09:15:00"), ArrivalStatus: models.ArrivalLate},
		{ID: "3", SessionID: "1", StudentID: "S004", Status: models.StatusAbsent, ArrivalStatus: models.ArrivalAbsent},
		{ID: "4", SessionID: "2", StudentID: "S003", Status: models.StatusPresent, Timestamp: seedTime("2025-11-13T11:02:00"), ArrivalStatus: models.ArrivalOnTime},
		{ID: "5", SessionID: "2", StudentID: "S004", Status: models.StatusPresent, Timestamp: seedTime("2025-11-13T11:20:00"), ArrivalStatus: models.ArrivalLate},
		{ID: "6", SessionID: "3", StudentID: "S001", Status: models.StatusPresent, Timestamp: seedTime("2025-11-12T09:03:00"), ArrivalStatus: models.ArrivalOnTime},
		{ID: "7", SessionID: "3", StudentID: "S002", Status: models.StatusPresent, Timestamp: seedTime("2025-11-12T09:08:00"), ArrivalStatus: models.ArrivalOnTime},
		{ID: "8", SessionID: "3", StudentID: "S004", Status: models.StatusPresent, Timestamp: seedTime("2025-11-12T09:25:00"), ArrivalStatus: models.ArrivalLate},
	}

	seedNotifications = []models.Notification{
		{ID: "1", Title: "Session Started", Message: "CS101 session has started", Timestamp: *seedTime("2025-11-13T09:00:00"), Role: models.NotifyAll},
		{ID: "2", Title: "Low Attendance", Message: "CS201 has low attendance today", Timestamp: *seedTime("2025-11-13T08:30:00"), Role: string(models.RoleProfessor)},
		{ID: "3", Title: "Attendance Marked", Message: "Your attendance has been marked for CS101", Timestamp: *seedTime("2025-11-13T09:05:00"), Role: string(models.RoleStudent)},
	}
)

// CheckAndSeed seeds s when it holds no courses yet.
func CheckAndSeed(ctx context.Context, s Store, log logger.Logger) error {
	empty, err := s.IsEmpty(ctx)
	if err != nil {
		return errors.Wrap(err, "checking for existing data")
	}
	if !empty {
		log.Info("found existing data, skipping seed")
		return nil
	}
	log.Info("no courses found, adding initial data")
	return Seed(ctx, s, log)
}

// Seed adds the demo courses, accounts, sessions, attendance and
// notifications. Individual failures are logged and the first one returned.
func Seed(ctx context.Context, s Store, log logger.Logger) error {
	var first error
	fail := func(what, id string, err error) {
		log.Error("seeding "+what+" "+id, err)
		if first == nil {
			first = errors.Wrapf(err, "seeding %s %s", what, id)
		}
	}

	for _, c := range seedCourses {
		if err := s.AddCourse(ctx, c); err != nil {
			fail("course", c.ID, err)
		}
	}
	for _, su := range seedUsers {
		u := su.user
		u.Status = models.UserActive
		u.HasAccess = true
		if u.EnrolledCourses == nil {
			u.EnrolledCourses = []string{}
		}
		if err := u.SetPassword(su.password); err != nil {
			fail("user", u.ID, err)
			continue
		}
		if err := s.AddUser(ctx, u); err != nil {
			fail("user", u.ID, err)
		}
	}
	for _, sess := range seedSessions {
		if err := s.AddSession(ctx, sess); err != nil {
			fail("session", sess.ID, err)
		}
	}
	for _, r := range seedAttendance {
		if err := s.AddAttendance(ctx, r); err != nil {
			fail("attendance record", r.ID, err)
		}
	}
	for _, n := range seedNotifications {
		if err := s.AddNotification(ctx, n); err != nil {
			fail("notification", n.ID, err)
		}
	}

	log.Info("initial data added")
	return first
}
