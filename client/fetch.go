package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	"smartid-server-go/models"
)

// Resource names used as keys of Data.Errors
const (
	ResourceCourses    = "courses"
	ResourceUsers      = "users"
	ResourceSessions   = "sessions"
	ResourceAttendance = "attendance"
)

// Data is the result of FetchAll. A resource that failed keeps its zero
// value and has an entry in Errors.
type Data struct {
	Courses    []models.Course
	Students   []models.User
	Professors []models.User
	Sessions   []models.Session
	Attendance []models.AttendanceRecord
	Errors     map[string]error
}

// Err returns one of the recorded errors, or nil when every fetch succeeded.
func (d Data) Err() error {
	for _, name := range []string{ResourceCourses, ResourceUsers, ResourceSessions, ResourceAttendance} {
		if err, ok := d.Errors[name]; ok {
			return err
		}
	}
	return nil
}

// FetchAll loads courses, users, sessions and attendance concurrently. A
// failing fetch is logged and recorded; it never cancels the others.
func (c *Client) FetchAll(ctx context.Context) Data {
	var (
		d        = Data{Errors: map[string]error{}}
		courses  []models.Course
		users    Users
		sessions []models.Session
		records  []models.AttendanceRecord
		errs     [4]error
		g        errgroup.Group
	)

	g.Go(func() error {
		courses, errs[0] = c.GetCourses(ctx)
		return nil
	})
	g.Go(func() error {
		users, errs[1] = c.GetUsers(ctx)
		return nil
	})
	g.Go(func() error {
		sessions, errs[2] = c.GetSessions(ctx)
		return nil
	})
	g.Go(func() error {
		records, errs[3] = c.GetAttendanceRecords(ctx)
		return nil
	})
	_ = g.Wait()

	for i, name := range []string{ResourceCourses, ResourceUsers, ResourceSessions, ResourceAttendance} {
		if errs[i] != nil {
			c.log.Error("fetching "+name, errs[i])
			d.Errors[name] = errs[i]
		}
	}
	d.Courses = courses
	d.Students, d.Professors = users.Students, users.Professors
	d.Sessions = sessions
	d.Attendance = records
	return d
}
