package db

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"smartid-server-go/config"
	"smartid-server-go/logger"
	"smartid-server-go/models"
)

const (
	coursesKey         = "courses"           // List: course IDs in insertion order
	courseInfoPrefix   = "course:"           // Hash prefix: course:{id} -> course details
	usersKey           = "users"             // List: user IDs in insertion order
	userInfoPrefix     = "user:"             // Hash prefix: user:{id} -> user details
	userEmailKey       = "users:email"       // Hash: lower-cased email -> user ID
	sessionsKey        = "sessions"          // List: session IDs in insertion order
	sessionInfoPrefix  = "session:"          // Hash prefix: session:{id} -> session details
	attendanceKey      = "attendance"        // List: record IDs in insertion order
	attendancePrefix   = "attendance:"       // Hash prefix: attendance:{id} -> record details
	notificationsKey   = "notifications"     // List: notification IDs in insertion order
	notificationPrefix = "notification:"     // Hash prefix: notification:{id} -> notification details
	methodsKey         = "attendance_method" // Hash: method key -> enabled flag
	activeSessionsKey  = "sessions:active"   // Hash: course ID -> ID of its active session
	attendanceClaimKey = "attendance_claim:"  // Hash prefix: attendance_claim:{sessionId} -> student ID -> record ID
)

// releaseClaim deletes field ARGV[1] of hash KEYS[1] only while it still
// holds ARGV[2].
var releaseClaim = redis.NewScript(`
if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[2] then
	return redis.call("HDEL", KEYS[1], ARGV[1])
end
return 0`)

// RedisService stores every collection as an ordered list of IDs plus one
// hash per entry.
type RedisService struct {
	Client *redis.Client
	log    logger.Logger
}

var _ Store = (*RedisService)(nil)

func NewRedisService(client *redis.Client, log logger.Logger) *RedisService {
	return &RedisService{Client: client, log: log}
}

// --- Encoding helpers ---

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func courseFields(c models.Course) map[string]interface{} {
	return map[string]interface{}{
		"id":          c.ID,
		"name":        c.Name,
		"code":        c.Code,
		"professorId": c.ProfessorID,
		"professor":   c.Professor,
		"schedule":    c.Schedule,
	}
}

func courseFromHash(data map[string]string) models.Course {
	return models.Course{
		ID:          data["id"],
		Name:        data["name"],
		Code:        data["code"],
		ProfessorID: data["professorId"],
		Professor:   data["professor"],
		Schedule:    data["schedule"],
	}
}

func userFields(u models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":              u.ID,
		"name":            u.Name,
		"username":        u.Username,
		"email":           u.Email,
		"role":            string(u.Role),
		"status":          u.Status,
		"hasAccess":       strconv.FormatBool(u.HasAccess),
		"enrolledCourses": strings.Join(u.EnrolledCourses, ","),
		"enrolledDate":    u.EnrolledDate,
		"passwordHash":    string(u.PasswordHash),
	}
}

func userFromHash(data map[string]string) models.User {
	hasAccess, _ := strconv.ParseBool(data["hasAccess"])
	u := models.User{
		ID:              data["id"],
		Name:            data["name"],
		Username:        data["username"],
		Email:           data["email"],
		Role:            models.Role(data["role"]),
		Status:          data["status"],
		HasAccess:       hasAccess,
		EnrolledCourses: splitList(data["enrolledCourses"]),
		EnrolledDate:    data["enrolledDate"],
	}
	if h := data["passwordHash"]; h != "" {
		u.PasswordHash = []byte(h)
	}
	return u
}

func sessionFields(s models.Session) map[string]interface{} {
	return map[string]interface{}{
		"id":        s.ID,
		"courseId":  s.CourseID,
		"date":      s.Date,
		"startTime": s.StartTime,
		"endTime":   s.EndTime,
		"status":    s.Status,
	}
}

func sessionFromHash(data map[string]string) models.Session {
	return models.Session{
		ID:        data["id"],
		CourseID:  data["courseId"],
		Date:      data["date"],
		StartTime: data["startTime"],
		EndTime:   data["endTime"],
		Status:    data["status"],
	}
}

func recordFields(r models.AttendanceRecord) map[string]interface{} {
	return map[string]interface{}{
		"id":            r.ID,
		"sessionId":     r.SessionID,
		"studentId":     r.StudentID,
		"status":        r.Status,
		"timestamp":     formatTime(r.Timestamp),
		"arrivalStatus": r.ArrivalStatus,
	}
}

func recordFromHash(data map[string]string) models.AttendanceRecord {
	return models.AttendanceRecord{
		ID:            data["id"],
		SessionID:     data["sessionId"],
		StudentID:     data["studentId"],
		Status:        data["status"],
		Timestamp:     parseTime(data["timestamp"]),
		ArrivalStatus: data["arrivalStatus"],
	}
}

func notificationFields(n models.Notification) map[string]interface{} {
	return map[string]interface{}{
		"id":        n.ID,
		"title":     n.Title,
		"message":   n.Message,
		"read":      strconv.FormatBool(n.Read),
		"timestamp": formatTime(&n.Timestamp),
		"role":      n.Role,
	}
}

func notificationFromHash(data map[string]string) models.Notification {
	read, _ := strconv.ParseBool(data["read"])
	n := models.Notification{
		ID:      data["id"],
		Title:   data["title"],
		Message: data["message"],
		Read:    read,
		Role:    data["role"],
	}
	if t := parseTime(data["timestamp"]); t != nil {
		n.Timestamp = *t
	}
	return n
}

// --- Generic collection helpers ---

// getHash returns the hash stored at key, or ErrNotFound when it is empty.
func (s *RedisService) getHash(ctx context.Context, key string) (map[string]string, error) {
	data, err := s.Client.HGetAll(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(err, "reading %s", key)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

// listHashes loads the hash of every ID in listKey in one pipeline.
func (s *RedisService) listHashes(ctx context.Context, listKey, prefix string) ([]map[string]string, error) {
	ids, err := s.Client.LRange(ctx, listKey, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(err, "reading %s ids", listKey)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.Client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, prefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(err, "reading %s", listKey)
	}

	out := make([]map[string]string, 0, len(ids))
	for i, cmd := range cmds {
		data := cmd.Val()
		if len(data) == 0 {
			s.log.Warn("dangling id in "+listKey, map[string]interface{}{"id": ids[i]})
			continue
		}
		out = append(out, data)
	}
	return out, nil
}

// checkNew returns ErrIDExists when prefix+id is already stored.
func (s *RedisService) checkNew(ctx context.Context, prefix, id string) error {
	exists, err := s.Client.Exists(ctx, prefix+id).Result()
	if err != nil {
		return errors.Wrapf(err, "checking %s%s", prefix, id)
	}
	if exists > 0 {
		return ErrIDExists
	}
	return nil
}

// add appends id to listKey and stores fields under prefix+id.
func (s *RedisService) add(ctx context.Context, listKey, prefix, id string, fields map[string]interface{}) error {
	if err := s.checkNew(ctx, prefix, id); err != nil {
		return err
	}
	pipe := s.Client.TxPipeline()
	pipe.RPush(ctx, listKey, id)
	pipe.HSet(ctx, prefix+id, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "adding %s%s", prefix, id)
	}
	return nil
}

// update overwrites the fields of an existing entry.
func (s *RedisService) update(ctx context.Context, prefix, id string, fields map[string]interface{}) error {
	exists, err := s.Client.Exists(ctx, prefix+id).Result()
	if err != nil {
		return errors.Wrapf(err, "checking %s%s", prefix, id)
	}
	if exists == 0 {
		return ErrNotFound
	}
	if err := s.Client.HSet(ctx, prefix+id, fields).Err(); err != nil {
		return errors.Wrapf(err, "updating %s%s", prefix, id)
	}
	return nil
}

// --- Course Operations ---

func (s *RedisService) ListCourses(ctx context.Context) ([]models.Course, error) {
	hashes, err := s.listHashes(ctx, coursesKey, courseInfoPrefix)
	if err != nil {
		return nil, err
	}
	courses := make([]models.Course, 0, len(hashes))
	for _, h := range hashes {
		courses = append(courses, courseFromHash(h))
	}
	return courses, nil
}

func (s *RedisService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	data, err := s.getHash(ctx, courseInfoPrefix+id)
	if err != nil {
		return nil, err
	}
	c := courseFromHash(data)
	return &c, nil
}

func (s *RedisService) AddCourse(ctx context.Context, course models.Course) error {
	if err := s.add(ctx, coursesKey, courseInfoPrefix, course.ID, courseFields(course)); err != nil {
		return err
	}
	s.log.Info("added course " + course.Code + " (" + course.ID + ")")
	return nil
}

// --- User Operations ---

func (s *RedisService) ListUsers(ctx context.Context) ([]models.User, error) {
	hashes, err := s.listHashes(ctx, usersKey, userInfoPrefix)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(hashes))
	for _, h := range hashes {
		users = append(users, userFromHash(h))
	}
	return users, nil
}

func (s *RedisService) GetUser(ctx context.Context, id string) (*models.User, error) {
	data, err := s.getHash(ctx, userInfoPrefix+id)
	if err != nil {
		return nil, err
	}
	u := userFromHash(data)
	return &u, nil
}

func (s *RedisService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := s.Client.HGet(ctx, userEmailKey, strings.ToLower(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "looking up user email")
	}
	return s.GetUser(ctx, id)
}

func (s *RedisService) AddUser(ctx context.Context, user models.User) error {
	email := strings.ToLower(user.Email)
	claimed, err := s.Client.HSetNX(ctx, userEmailKey, email, user.ID).Result()
	if err != nil {
		return errors.Wrap(err, "reserving user email")
	}
	if !claimed {
		return ErrEmailExists
	}
	if err := s.add(ctx, usersKey, userInfoPrefix, user.ID, userFields(user)); err != nil {
		s.Client.HDel(ctx, userEmailKey, email)
		return err
	}
	return nil
}

func (s *RedisService) UpdateUser(ctx context.Context, user models.User) error {
	old, err := s.GetUser(ctx, user.ID)
	if err != nil {
		return err
	}
	oldEmail, newEmail := strings.ToLower(old.Email), strings.ToLower(user.Email)
	if oldEmail != newEmail {
		claimed, err := s.Client.HSetNX(ctx, userEmailKey, newEmail, user.ID).Result()
		if err != nil {
			return errors.Wrap(err, "reserving user email")
		}
		if !claimed {
			return ErrEmailExists
		}
		s.Client.HDel(ctx, userEmailKey, oldEmail)
	}
	return s.update(ctx, userInfoPrefix, user.ID, userFields(user))
}

// --- Session Operations ---

func (s *RedisService) ListSessions(ctx context.Context) ([]models.Session, error) {
	hashes, err := s.listHashes(ctx, sessionsKey, sessionInfoPrefix)
	if err != nil {
		return nil, err
	}
	sessions := make([]models.Session, 0, len(hashes))
	for _, h := range hashes {
		sessions = append(sessions, sessionFromHash(h))
	}
	return sessions, nil
}

func (s *RedisService) GetSession(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.getHash(ctx, sessionInfoPrefix+id)
	if err != nil {
		return nil, err
	}
	sess := sessionFromHash(data)
	return &sess, nil
}

// claim sets field of key to id unless another id already holds it.
func (s *RedisService) claim(ctx context.Context, key, field, id string) (bool, error) {
	claimed, err := s.Client.HSetNX(ctx, key, field, id).Result()
	if err != nil {
		return false, errors.Wrapf(err, "claiming %s %s", key, field)
	}
	if claimed {
		return true, nil
	}
	holder, err := s.Client.HGet(ctx, key, field).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, errors.Wrapf(err, "reading %s %s", key, field)
	}
	return holder == id, nil
}

func (s *RedisService) release(ctx context.Context, key, field, id string) {
	if err := releaseClaim.Run(ctx, s.Client, []string{key}, field, id).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn("releasing "+key+" "+field, err)
	}
}

func (s *RedisService) AddSession(ctx context.Context, session models.Session) error {
	if err := s.checkNew(ctx, sessionInfoPrefix, session.ID); err != nil {
		return err
	}
	if session.Status == models.SessionActive {
		ok, err := s.claim(ctx, activeSessionsKey, session.CourseID, session.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSessionActive
		}
	}
	if err := s.add(ctx, sessionsKey, sessionInfoPrefix, session.ID, sessionFields(session)); err != nil {
		if session.Status == models.SessionActive {
			s.release(ctx, activeSessionsKey, session.CourseID, session.ID)
		}
		return err
	}
	return nil
}

func (s *RedisService) UpdateSession(ctx context.Context, session models.Session) error {
	old, err := s.GetSession(ctx, session.ID)
	if err != nil {
		return err
	}
	wasActive := old.Status == models.SessionActive
	isActive := session.Status == models.SessionActive
	if isActive && (!wasActive || old.CourseID != session.CourseID) {
		ok, err := s.claim(ctx, activeSessionsKey, session.CourseID, session.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSessionActive
		}
	}
	if err := s.update(ctx, sessionInfoPrefix, session.ID, sessionFields(session)); err != nil {
		return err
	}
	if wasActive && (!isActive || old.CourseID != session.CourseID) {
		s.release(ctx, activeSessionsKey, old.CourseID, session.ID)
	}
	return nil
}

// --- Attendance Operations ---

func (s *RedisService) ListAttendance(ctx context.Context) ([]models.AttendanceRecord, error) {
	hashes, err := s.listHashes(ctx, attendanceKey, attendancePrefix)
	if err != nil {
		return nil, err
	}
	records := make([]models.AttendanceRecord, 0, len(hashes))
	for _, h := range hashes {
		records = append(records, recordFromHash(h))
	}
	return records, nil
}

func (s *RedisService) GetAttendance(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	data, err := s.getHash(ctx, attendancePrefix+id)
	if err != nil {
		return nil, err
	}
	r := recordFromHash(data)
	return &r, nil
}

func (s *RedisService) AddAttendance(ctx context.Context, record models.AttendanceRecord) error {
	if err := s.checkNew(ctx, attendancePrefix, record.ID); err != nil {
		return err
	}
	claimKey := attendanceClaimKey + record.SessionID
	ok, err := s.claim(ctx, claimKey, record.StudentID, record.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAttendanceExists
	}
	if err := s.add(ctx, attendanceKey, attendancePrefix, record.ID, recordFields(record)); err != nil {
		s.release(ctx, claimKey, record.StudentID, record.ID)
		return err
	}
	return nil
}

func (s *RedisService) UpdateAttendance(ctx context.Context, record models.AttendanceRecord) error {
	old, err := s.GetAttendance(ctx, record.ID)
	if err != nil {
		return err
	}
	moved := old.SessionID != record.SessionID || old.StudentID != record.StudentID
	if moved {
		ok, err := s.claim(ctx, attendanceClaimKey+record.SessionID, record.StudentID, record.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAttendanceExists
		}
	}
	if err := s.update(ctx, attendancePrefix, record.ID, recordFields(record)); err != nil {
		return err
	}
	if moved {
		s.release(ctx, attendanceClaimKey+old.SessionID, old.StudentID, record.ID)
	}
	return nil
}

// --- Notification Operations ---

func (s *RedisService) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	hashes, err := s.listHashes(ctx, notificationsKey, notificationPrefix)
	if err != nil {
		return nil, err
	}
	ns := make([]models.Notification, 0, len(hashes))
	for _, h := range hashes {
		ns = append(ns, notificationFromHash(h))
	}
	return ns, nil
}

func (s *RedisService) AddNotification(ctx context.Context, n models.Notification) error {
	return s.add(ctx, notificationsKey, notificationPrefix, n.ID, notificationFields(n))
}

func (s *RedisService) MarkNotificationRead(ctx context.Context, id string) error {
	return s.update(ctx, notificationPrefix, id, map[string]interface{}{"read": "true"})
}

// --- Attendance Method Operations ---

func (s *RedisService) ListAttendanceMethods(ctx context.Context) ([]models.AttendanceMethod, error) {
	flags, err := s.Client.HGetAll(ctx, methodsKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, errors.Wrap(err, "reading attendance methods")
	}
	methods := models.DefaultAttendanceMethods()
	for i := range methods {
		if v, ok := flags[methods[i].Key]; ok {
			methods[i].Enabled, _ = strconv.ParseBool(v)
		}
	}
	return methods, nil
}

func (s *RedisService) SetAttendanceMethod(ctx context.Context, key string, enabled bool) (*models.AttendanceMethod, error) {
	for _, m := range models.DefaultAttendanceMethods() {
		if m.Key != key {
			continue
		}
		if err := s.Client.HSet(ctx, methodsKey, key, strconv.FormatBool(enabled)).Err(); err != nil {
			return nil, errors.Wrapf(err, "setting attendance method %s", key)
		}
		m.Enabled = enabled
		return &m, nil
	}
	return nil, ErrNotFound
}

// IsEmpty checks the length of the course list.
func (s *RedisService) IsEmpty(ctx context.Context) (bool, error) {
	n, err := s.Client.LLen(ctx, coursesKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, errors.Wrap(err, "counting courses")
	}
	return n == 0, nil
}

func (s *RedisService) Close() error {
	return s.Client.Close()
}

// --- Utility ---

// InitializeRedisClient creates a client for conf and pings the server.
func InitializeRedisClient(ctx context.Context, conf config.Redis) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "connecting to redis at %s db %d", conf.Addr, conf.DB)
	}
	return rdb, nil
}
