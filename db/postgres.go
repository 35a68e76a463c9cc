package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"smartid-server-go/models"
)

// schema is applied by Migrate. Every table carries a serial seq column so
// lists come back in insertion order.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS courses (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		professor_id TEXT NOT NULL DEFAULT '',
		professor TEXT NOT NULL DEFAULT '',
		schedule TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		username TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		has_access BOOLEAN NOT NULL DEFAULT TRUE,
		enrolled_courses TEXT[] NOT NULL DEFAULT '{}',
		enrolled_date TEXT NOT NULL DEFAULT '',
		password_hash BYTEA
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email))`,
	`CREATE TABLE IF NOT EXISTS sessions (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS sessions_active_course_key
		ON sessions (course_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		status TEXT NOT NULL,
		timestamp TIMESTAMPTZ,
		arrival_status TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS attendance_records_session_student_key
		ON attendance_records (session_id, student_id)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		timestamp TIMESTAMPTZ NOT NULL,
		role TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_methods (
		key TEXT PRIMARY KEY,
		enabled BOOLEAN NOT NULL
	)`,
}

// PostgresStore keeps the data in PostgreSQL through sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to dsn, waiting for the server to come up.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	const maxAttempts = 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Migrate creates the tables when they do not exist yet.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting migration")
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "applying schema")
		}
	}
	return errors.Wrap(tx.Commit(), "committing migration")
}

func isUniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}

// conflict maps a unique violation to the sentinel registered for its
// constraint, falling back to ErrIDExists for primary keys. Other errors are
// returned unchanged.
func conflict(err error, byConstraint map[string]error) error {
	constraint, ok := isUniqueViolation(err)
	if !ok {
		return err
	}
	if sentinel, ok := byConstraint[constraint]; ok {
		return sentinel
	}
	return ErrIDExists
}

var (
	userConstraints    = map[string]error{"users_email_key": ErrEmailExists}
	sessionConstraints = map[string]error{"sessions_active_course_key": ErrSessionActive}
	recordConstraints  = map[string]error{"attendance_records_session_student_key": ErrAttendanceExists}
)

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return errors.Wrap(err, what)
}

func mustAffect(res sql.Result, err error, what string) error {
	if err != nil {
		return errors.Wrap(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, what)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Courses ---

const courseColumns = `id, name, code, professor_id, professor, schedule`

func (p *PostgresStore) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses := []models.Course{}
	err := p.db.SelectContext(ctx, &courses, `SELECT `+courseColumns+` FROM courses ORDER BY seq`)
	return courses, errors.Wrap(err, "listing courses")
}

func (p *PostgresStore) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var c models.Course
	err := p.db.GetContext(ctx, &c, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err, "getting course")
	}
	return &c, nil
}

func (p *PostgresStore) AddCourse(ctx context.Context, course models.Course) error {
	_, err := p.db.NamedExecContext(ctx, `INSERT INTO courses (`+courseColumns+`)
		VALUES (:id, :name, :code, :professor_id, :professor, :schedule)`, course)
	if _, ok := isUniqueViolation(err); ok {
		return ErrIDExists
	}
	return errors.Wrap(err, "adding course")
}

// --- Users ---

type userRow struct {
	models.User
	Courses pq.StringArray `db:"enrolled_courses"`
}

func (r userRow) toUser() models.User {
	u := r.User
	u.EnrolledCourses = append([]string{}, r.Courses...)
	return u
}

const userColumns = `id, name, username, email, role, status, has_access, enrolled_courses, enrolled_date, password_hash`

func (p *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var rows []userRow
	if err := p.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY seq`); err != nil {
		return nil, errors.Wrap(err, "listing users")
	}
	users := make([]models.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (p *PostgresStore) getUser(ctx context.Context, where string, arg string) (*models.User, error) {
	var r userRow
	if err := p.db.GetContext(ctx, &r, `SELECT `+userColumns+` FROM users WHERE `+where, arg); err != nil {
		return nil, notFound(err, "getting user")
	}
	u := r.toUser()
	return &u, nil
}

func (p *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return p.getUser(ctx, `id = $1`, id)
}

func (p *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.getUser(ctx, `LOWER(email) = $1`, strings.ToLower(email))
}

func userArgs(u models.User) userRow {
	return userRow{User: u, Courses: pq.StringArray(u.EnrolledCourses)}
}

func (p *PostgresStore) AddUser(ctx context.Context, user models.User) error {
	_, err := p.db.NamedExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES (:id, :name, :username, :email, :role, :status, :has_access, :enrolled_courses, :enrolled_date, :password_hash)`,
		userArgs(user))
	if err != nil {
		if c := conflict(err, userConstraints); c != err {
			return c
		}
		return errors.Wrap(err, "adding user")
	}
	return nil
}

func (p *PostgresStore) UpdateUser(ctx context.Context, user models.User) error {
	res, err := p.db.NamedExecContext(ctx, `UPDATE users SET
		name = :name, username = :username, email = :email, role = :role, status = :status,
		has_access = :has_access, enrolled_courses = :enrolled_courses,
		enrolled_date = :enrolled_date, password_hash = :password_hash
		WHERE id = :id`, userArgs(user))
	if err != nil {
		if c := conflict(err, userConstraints); c != err {
			return c
		}
		return errors.Wrap(err, "updating user")
	}
	return mustAffect(res, nil, "updating user")
}

// --- Sessions ---

const sessionColumns = `id, course_id, date, start_time, end_time, status`

func (p *PostgresStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	sessions := []models.Session{}
	err := p.db.SelectContext(ctx, &sessions, `SELECT `+sessionColumns+` FROM sessions ORDER BY seq`)
	return sessions, errors.Wrap(err, "listing sessions")
}

func (p *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := p.db.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "getting session")
	}
	return &s, nil
}

func (p *PostgresStore) AddSession(ctx context.Context, session models.Session) error {
	_, err := p.db.NamedExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`)
		VALUES (:id, :course_id, :date, :start_time, :end_time, :status)`, session)
	if c := conflict(err, sessionConstraints); c != err {
		return c
	}
	return errors.Wrap(err, "adding session")
}

func (p *PostgresStore) UpdateSession(ctx context.Context, session models.Session) error {
	res, err := p.db.NamedExecContext(ctx, `UPDATE sessions SET
		course_id = :course_id, date = :date, start_time = :start_time, end_time = :end_time, status = :status
		WHERE id = :id`, session)
	if c := conflict(err, sessionConstraints); c != err {
		return c
	}
	return mustAffect(res, err, "updating session")
}

// --- Attendance ---

const recordColumns = `id, session_id, student_id, status, timestamp, arrival_status`

func (p *PostgresStore) ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	records := []models.AttendanceRecord{}
	err := p.db.SelectContext(ctx, &records, `SELECT `+recordColumns+` FROM attendance_records ORDER BY seq`)
	return records, errors.Wrap(err, "listing attendance")
}

func (p *PostgresStore) GetAttendance(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	var r models.AttendanceRecord
	if err := p.db.GetContext(ctx, &r, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id); err != nil {
		return nil, notFound(err, "getting attendance record")
	}
	return &r, nil
}

func (p *PostgresStore) AddAttendance(ctx context.Context, record models.AttendanceRecord) error {
	_, err := p.db.NamedExecContext(ctx, `INSERT INTO attendance_records (`+recordColumns+`)
		VALUES (:id, :session_id, :student_id, :status, :timestamp, :arrival_status)`, record)
	if c := conflict(err, recordConstraints); c != err {
		return c
	}
	return errors.Wrap(err, "adding attendance record")
}

func (p *PostgresStore) UpdateAttendance(ctx context.Context, record models.AttendanceRecord) error {
	res, err := p.db.NamedExecContext(ctx, `UPDATE attendance_records SET
		session_id = :session_id, student_id = :student_id, status = :status,
		timestamp = :timestamp, arrival_status = :arrival_status
		WHERE id = :id`, record)
	if c := conflict(err, recordConstraints); c != err {
		return c
	}
	return mustAffect(res, err, "updating attendance record")
}

// --- Notifications ---

func (p *PostgresStore) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	ns := []models.Notification{}
	err := p.db.SelectContext(ctx, &ns, `SELECT id, title, message, read, timestamp, role FROM notifications ORDER BY seq`)
	return ns, errors.Wrap(err, "listing notifications")
}

func (p *PostgresStore) AddNotification(ctx context.Context, n models.Notification) error {
	_, err := p.db.NamedExecContext(ctx, `INSERT INTO notifications (id, title, message, read, timestamp, role)
		VALUES (:id, :title, :message, :read, :timestamp, :role)`, n)
	if c := conflict(err, nil); c != err {
		return c
	}
	return errors.Wrap(err, "adding notification")
}

func (p *PostgresStore) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	return mustAffect(res, err, "marking notification read")
}

// --- Attendance methods ---

func (p *PostgresStore) ListAttendanceMethods(ctx context.Context) ([]models.AttendanceMethod, error) {
	var stored []models.AttendanceMethod
	if err := p.db.SelectContext(ctx, &stored, `SELECT key, enabled FROM attendance_methods`); err != nil {
		return nil, errors.Wrap(err, "listing attendance methods")
	}
	methods := models.DefaultAttendanceMethods()
	for i := range methods {
		for _, s := range stored {
			if s.Key == methods[i].Key {
				methods[i].Enabled = s.Enabled
			}
		}
	}
	return methods, nil
}

func (p *PostgresStore) SetAttendanceMethod(ctx context.Context, key string, enabled bool) (*models.AttendanceMethod, error) {
	for _, m := range models.DefaultAttendanceMethods() {
		if m.Key != key {
			continue
		}
		_, err := p.db.ExecContext(ctx, `INSERT INTO attendance_methods (key, enabled) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET enabled = EXCLUDED.enabled`, key, enabled)
		if err != nil {
			return nil, errors.Wrapf(err, "setting attendance method %s", key)
		}
		m.Enabled = enabled
		return &m, nil
	}
	return nil, ErrNotFound
}

func (p *PostgresStore) IsEmpty(ctx context.Context) (bool, error) {
	var n int
	if err := p.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM courses`); err != nil {
		return false, errors.Wrap(err, "counting courses")
	}
	return n == 0, nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
