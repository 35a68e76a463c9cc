package report

import (
	"time"

	"smartid-server-go/models"
)

// recentLimit caps the recent attendance list on the student dashboard.
const recentLimit = 10

// Data is everything the dashboards read.
type Data struct {
	Users      []models.User
	Courses    []models.Course
	Sessions   []models.Session
	Attendance []models.AttendanceRecord
	Methods    []models.AttendanceMethod
}

// AdminDashboard is the landing summary for administrators.
type AdminDashboard struct {
	TotalStudents    int `json:"totalStudents"`
	ActiveStudents   int `json:"activeStudents"`
	TotalCourses     int `json:"totalCourses"`
	TotalRecords     int `json:"totalRecords"`
	EnabledMethods   int `json:"enabledMethods"`
	TotalProfessors  int `json:"totalProfessors"`
	StudentsNoAccess int `json:"studentsWithoutAccess"`
}

// BuildAdminDashboard counts accounts, courses and records.
func BuildAdminDashboard(d Data) AdminDashboard {
	var out AdminDashboard
	for _, u := range d.Users {
		switch u.Role {
		case models.RoleStudent:
			out.TotalStudents++
			if u.Status == models.UserActive {
				out.ActiveStudents++
			}
			if !u.HasAccess {
				out.StudentsNoAccess++
			}
		case models.RoleProfessor:
			out.TotalProfessors++
		}
	}
	out.TotalCourses = len(d.Courses)
	out.TotalRecords = len(d.Attendance)
	for _, m := range d.Methods {
		if m.Enabled {
			out.EnabledMethods++
		}
	}
	return out
}

// RosterEntry pairs an enrolled student with their record for the active
// session. Record is a pending placeholder when the student has not checked in.
type RosterEntry struct {
	Student models.User             `json:"student"`
	Record  models.AttendanceRecord `json:"attendance"`
}

// ProfessorDashboard is the landing summary for professors.
type ProfessorDashboard struct {
	Courses       int             `json:"courses"`
	PresentToday  int             `json:"presentToday"`
	LateToday     int             `json:"lateToday"`
	AbsentToday   int             `json:"absentToday"`
	ActiveSession *models.Session `json:"activeSession"`
	Roster        []RosterEntry   `json:"roster"`
}

// BuildProfessorDashboard summarises today's sessions. Only the first active
// session of the day gets a roster.
func BuildProfessorDashboard(d Data, now time.Time) ProfessorDashboard {
	today := now.Format(DateLayout)
	out := ProfessorDashboard{Courses: len(d.Courses), Roster: make([]RosterEntry, 0)}

	idx := newIndex(d.Sessions, nil)
	for _, rec := range d.Attendance {
		sess, ok := idx.sessions[rec.SessionID]
		if !ok || sess.Date != today {
			continue
		}
		switch rec.Status {
		case models.StatusPresent:
			out.PresentToday++
		case models.StatusAbsent:
			out.AbsentToday++
		}
		if rec.ArrivalStatus == models.ArrivalLate {
			out.LateToday++
		}
	}

	for i := range d.Sessions {
		if d.Sessions[i].Date == today && d.Sessions[i].Status == models.SessionActive {
			active := d.Sessions[i]
			out.ActiveSession = &active
			break
		}
	}
	if out.ActiveSession == nil {
		return out
	}

	for _, u := range d.Users {
		if u.Role != models.RoleStudent || !u.IsEnrolled(out.ActiveSession.CourseID) {
			continue
		}
		entry := RosterEntry{
			Student: u,
			Record: models.AttendanceRecord{
				SessionID:     out.ActiveSession.ID,
				StudentID:     u.ID,
				Status:        models.ArrivalPending,
				ArrivalStatus: models.ArrivalPending,
			},
		}
		for _, rec := range d.Attendance {
			if rec.SessionID == out.ActiveSession.ID && rec.StudentID == u.ID {
				entry.Record = rec
				break
			}
		}
		out.Roster = append(out.Roster, entry)
	}
	return out
}

// CourseProgress is a student's attendance rate in one course.
type CourseProgress struct {
	CourseID   string `json:"courseId"`
	Course     string `json:"course"`
	Sessions   int    `json:"sessions"`
	Present    int    `json:"present"`
	Percentage int    `json:"percentage"`
}

// RecentEntry is one line of a student's attendance history.
type RecentEntry struct {
	Date          string     `json:"date"`
	Course        string     `json:"course"`
	Time          string     `json:"time"`
	Status        string     `json:"status"`
	ArrivalTime   *time.Time `json:"arrivalTime"`
	ArrivalStatus string     `json:"arrivalStatus"`
}

// StudentDashboard is the landing summary for students.
type StudentDashboard struct {
	EnrolledCourses int              `json:"enrolledCourses"`
	Present         int              `json:"present"`
	Late            int              `json:"late"`
	Absent          int              `json:"absent"`
	Percentage      int              `json:"percentage"`
	Courses         []CourseProgress `json:"courses"`
	Recent          []RecentEntry    `json:"recent"`
}

// BuildStudentDashboard summarises one student's attendance. The overall
// percentage is measured against every session on record and is 0 when there
// are none; the same rule applies per course.
func BuildStudentDashboard(d Data, student models.User) StudentDashboard {
	out := StudentDashboard{
		EnrolledCourses: len(student.EnrolledCourses),
		Courses:         make([]CourseProgress, 0, len(student.EnrolledCourses)),
		Recent:          make([]RecentEntry, 0, recentLimit),
	}

	mine := make(map[string]models.AttendanceRecord)
	for _, rec := range d.Attendance {
		if rec.StudentID != student.ID {
			continue
		}
		switch rec.Status {
		case models.StatusPresent:
			out.Present++
		case models.StatusAbsent:
			out.Absent++
		}
		if rec.ArrivalStatus == models.ArrivalLate {
			out.Late++
		}
		if _, ok := mine[rec.SessionID]; !ok {
			mine[rec.SessionID] = rec
		}
	}
	out.Percentage = ratio(out.Present, len(d.Sessions))

	idx := newIndex(nil, d.Courses)
	for _, courseID := range student.EnrolledCourses {
		progress := CourseProgress{CourseID: courseID}
		if c, ok := idx.courses[courseID]; ok {
			progress.Course = c.Name
		}
		for _, s := range d.Sessions {
			if s.CourseID != courseID {
				continue
			}
			progress.Sessions++
			if rec, ok := mine[s.ID]; ok && rec.Status == models.StatusPresent {
				progress.Present++
			}
		}
		progress.Percentage = ratio(progress.Present, progress.Sessions)
		out.Courses = append(out.Courses, progress)
	}

	// newest sessions first
	for i := len(d.Sessions) - 1; i >= 0 && len(out.Recent) < recentLimit; i-- {
		s := d.Sessions[i]
		entry := RecentEntry{
			Date:          s.Date,
			Course:        "Unknown",
			Time:          s.StartTime,
			Status:        models.ArrivalPending,
			ArrivalStatus: models.ArrivalPending,
		}
		if c, ok := idx.courses[s.CourseID]; ok {
			entry.Course = c.Name
		}
		if rec, ok := mine[s.ID]; ok {
			entry.Status = rec.Status
			entry.ArrivalTime = rec.Timestamp
			if rec.ArrivalStatus != "" {
				entry.ArrivalStatus = rec.ArrivalStatus
			}
		}
		out.Recent = append(out.Recent, entry)
	}
	return out
}

func ratio(n, total int) int {
	if total <= 0 {
		return 0
	}
	return *Percentage(n, total-n)
}
