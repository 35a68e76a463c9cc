package models

import "time"

// Role is the role of an authenticated user. The zero value means nobody is logged in.
type Role string

const (
	RoleNone      Role = ""
	RoleAdmin     Role = "ADMIN"
	RoleProfessor Role = "PROFESSOR"
	RoleStudent   Role = "STUDENT"
)

// Valid reports whether r is one of the three assignable roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleProfessor || r == RoleStudent
}

// Attendance status values
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// Arrival status values
const (
	ArrivalOnTime  = "on-time"
	ArrivalLate    = "late"
	ArrivalAbsent  = "absent"
	ArrivalPending = "pending"
)

// Session status values
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// User account status values
const (
	UserActive   = "active"
	UserInactive = "inactive"
)

// NotifyAll targets a notification at every role.
const NotifyAll = "ALL"

// Course represents a course
type Course struct {
	ID          string `json:"id" db:"id"`                         // Unique course ID
	Name        string `json:"name" db:"name"`                     // Course name, shown in reports
	Code        string `json:"code" db:"code"`                     // Short code, e.g. CS101
	ProfessorID string `json:"professorId" db:"professor_id"`      // ID of the teaching professor
	Professor   string `json:"professor,omitempty" db:"professor"` // Display name of the professor
	Schedule    string `json:"schedule" db:"schedule"`             // Free-form weekly schedule
}

// Session is one scheduled occurrence of a course
type Session struct {
	ID        string `json:"id" db:"id"`
	CourseID  string `json:"courseId" db:"course_id"`
	Date      string `json:"date" db:"date"`            // Calendar date, YYYY-MM-DD
	StartTime string `json:"startTime" db:"start_time"` // HH:MM
	EndTime   string `json:"endTime" db:"end_time"`     // HH:MM, empty while active
	Status    string `json:"status" db:"status"`        // active | completed
}

// AttendanceRecord is one student's outcome for one session
type AttendanceRecord struct {
	ID            string     `json:"id" db:"id"`
	SessionID     string     `json:"sessionId" db:"session_id"`
	StudentID     string     `json:"studentId" db:"student_id"`
	Status        string     `json:"status" db:"status"`                // present | absent
	Timestamp     *time.Time `json:"timestamp" db:"timestamp"`          // Arrival time, nil when absent
	ArrivalStatus string     `json:"arrivalStatus" db:"arrival_status"` // on-time | late | absent | pending
}

// User is an admin, professor or student account
type User struct {
	ID              string   `json:"id" db:"id"`
	Name            string   `json:"name" db:"name"`
	Username        string   `json:"username,omitempty" db:"username"`
	Email           string   `json:"email" db:"email"`
	Role            Role     `json:"role" db:"role"`
	Status          string   `json:"status" db:"status"`
	HasAccess       bool     `json:"hasAccess" db:"has_access"`
	EnrolledCourses []string `json:"enrolledCourses" db:"-"` // Courses attended (students) or taught (professors)
	EnrolledDate    string   `json:"enrolledDate" db:"enrolled_date"`
	PasswordHash    []byte   `json:"-" db:"password_hash"`
}

// IsEnrolled reports whether the user is attached to courseID.
func (u *User) IsEnrolled(courseID string) bool {
	for _, id := range u.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

// Notification is a message shown in the notification list
type Notification struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"read"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Role      string    `json:"role" db:"role"` // ALL or a Role
}

// VisibleTo reports whether a user with role r should see n.
func (n *Notification) VisibleTo(r Role) bool {
	return n.Role == NotifyAll || n.Role == string(r)
}

// AttendanceMethod is a check-in method that admins can switch on or off
type AttendanceMethod struct {
	Key     string `json:"key" db:"key"` // face | fingerprint | rfid | qr
	Name    string `json:"name" db:"name"`
	Enabled bool   `json:"enabled" db:"enabled"`
}

// Attendance method keys
const (
	MethodFace        = "face"
	MethodFingerprint = "fingerprint"
	MethodRFID        = "rfid"
	MethodQR          = "qr"
)

// DefaultAttendanceMethods returns the factory configuration of check-in methods.
func DefaultAttendanceMethods() []AttendanceMethod {
	return []AttendanceMethod{
		{Key: MethodFace, Name: "Face Recognition", Enabled: true},
		{Key: MethodFingerprint, Name: "Fingerprint", Enabled: true},
		{Key: MethodRFID, Name: "RFID Card", Enabled: true},
		{Key: MethodQR, Name: "QR Code", Enabled: false},
	}
}
