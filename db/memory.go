package db

import (
	"context"
	"strings"
	"sync"

	"smartid-server-go/models"
)

// MemoryStore keeps everything in process memory. It backs the test suite and
// the "memory" store driver.
type MemoryStore struct {
	mu            sync.RWMutex
	courses       []models.Course
	users         []models.User
	sessions      []models.Session
	attendance    []models.AttendanceRecord
	notifications []models.Notification
	methods       []models.AttendanceMethod
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{methods: models.DefaultAttendanceMethods()}
}

func (m *MemoryStore) ListCourses(_ context.Context) ([]models.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Course{}, m.courses...), nil
}

func (m *MemoryStore) GetCourse(_ context.Context, id string) (*models.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.courses {
		if m.courses[i].ID == id {
			c := m.courses[i]
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) AddCourse(_ context.Context, course models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.courses {
		if c.ID == course.ID {
			return ErrIDExists
		}
	}
	m.courses = append(m.courses, course)
	return nil
}

func cloneUser(u models.User) models.User {
	u.EnrolledCourses = append([]string{}, u.EnrolledCourses...)
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return u
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, cloneUser(u))
	}
	return users, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ID == id {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) AddUser(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrEmailExists
		}
		if u.ID == user.ID {
			return ErrIDExists
		}
	}
	m.users = append(m.users, cloneUser(user))
	return nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, u := range m.users {
		if u.ID == user.ID {
			idx = i
		} else if strings.EqualFold(u.Email, user.Email) {
			return ErrEmailExists
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	m.users[idx] = cloneUser(user)
	return nil
}

func (m *MemoryStore) ListSessions(_ context.Context) ([]models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Session{}, m.sessions...), nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			s := m.sessions[i]
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

// activeConflict reports whether another session of s's course is active.
// Callers hold the write lock.
func (m *MemoryStore) activeConflict(s models.Session) bool {
	if s.Status != models.SessionActive {
		return false
	}
	for _, other := range m.sessions {
		if other.ID != s.ID && other.CourseID == s.CourseID && other.Status == models.SessionActive {
			return true
		}
	}
	return false
}

func (m *MemoryStore) AddSession(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID == session.ID {
			return ErrIDExists
		}
	}
	if m.activeConflict(session) {
		return ErrSessionActive
	}
	m.sessions = append(m.sessions, session)
	return nil
}

func (m *MemoryStore) UpdateSession(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sessions {
		if m.sessions[i].ID == session.ID {
			if m.activeConflict(session) {
				return ErrSessionActive
			}
			m.sessions[i] = session
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ListAttendance(_ context.Context) ([]models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.AttendanceRecord{}, m.attendance...), nil
}

func (m *MemoryStore) GetAttendance(_ context.Context, id string) (*models.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.attendance {
		if m.attendance[i].ID == id {
			r := m.attendance[i]
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) AddAttendance(_ context.Context, record models.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.attendance {
		if r.ID == record.ID {
			return ErrIDExists
		}
		if r.SessionID == record.SessionID && r.StudentID == record.StudentID {
			return ErrAttendanceExists
		}
	}
	m.attendance = append(m.attendance, record)
	return nil
}

func (m *MemoryStore) UpdateAttendance(_ context.Context, record models.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, r := range m.attendance {
		if r.ID == record.ID {
			idx = i
		} else if r.SessionID == record.SessionID && r.StudentID == record.StudentID {
			return ErrAttendanceExists
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	m.attendance[idx] = record
	return nil
}

func (m *MemoryStore) ListNotifications(_ context.Context) ([]models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Notification{}, m.notifications...), nil
}

func (m *MemoryStore) AddNotification(_ context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.notifications {
		if existing.ID == n.ID {
			return ErrIDExists
		}
	}
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *MemoryStore) MarkNotificationRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			m.notifications[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) ListAttendanceMethods(_ context.Context) ([]models.AttendanceMethod, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.AttendanceMethod{}, m.methods...), nil
}

func (m *MemoryStore) SetAttendanceMethod(_ context.Context, key string, enabled bool) (*models.AttendanceMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.methods {
		if m.methods[i].Key == key {
			m.methods[i].Enabled = enabled
			method := m.methods[i]
			return &method, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) IsEmpty(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.courses) == 0, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
