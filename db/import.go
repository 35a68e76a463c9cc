package db

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"smartid-server-go/logger"
	"smartid-server-go/models"
)

// ImportResult summarizes a roster import.
type ImportResult struct {
	Created  int `json:"created"`
	Enrolled int `json:"enrolled"`
	Skipped  int `json:"skipped"`
}

// Imported is the number of rows that changed the store.
func (r ImportResult) Imported() int {
	return r.Created + r.Enrolled
}

// ImportStudentsFromExcel reads a student roster from the first sheet of an
// xlsx stream and enrolls every student into courseID. Column A is the student
// ID, B the name and C the email; the first row is a header. Unknown students
// are created without a password and without access. courseID may be empty to
// only create accounts.
func ImportStudentsFromExcel(ctx context.Context, s Store, file io.Reader, courseID string, log logger.Logger) (ImportResult, error) {
	var res ImportResult
	if courseID != "" {
		if _, err := s.GetCourse(ctx, courseID); err != nil {
			return res, errors.Wrapf(err, "import target course %s", courseID)
		}
	}

	f, err := excelize.OpenReader(file)
	if err != nil {
		return res, errors.Wrap(err, "failed to open excel file")
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn("closing excel file", err)
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return res, errors.New("excel file does not contain any sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return res, errors.Wrapf(err, "failed to get rows from sheet %s", sheetName)
	}

	today := time.Now().Format("2006-01-02")
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		var id, name, email string
		if len(row) > 0 {
			id = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			name = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			email = strings.TrimSpace(row[2])
		}
		if id == "" || name == "" || email == "" {
			log.Warn("skipping incomplete roster row", map[string]interface{}{"row": i + 1, "id": id})
			res.Skipped++
			continue
		}

		created, enrolled, err := importStudent(ctx, s, id, name, email, courseID, today)
		if err != nil {
			log.Warn("skipping roster row", map[string]interface{}{"row": i + 1, "id": id}, err)
			res.Skipped++
			continue
		}
		switch {
		case created:
			res.Created++
		case enrolled:
			res.Enrolled++
		default:
			res.Skipped++
		}
	}

	log.Info("roster import finished", map[string]interface{}{
		"course": courseID, "created": res.Created, "enrolled": res.Enrolled, "skipped": res.Skipped,
	})
	return res, nil
}

func importStudent(ctx context.Context, s Store, id, name, email, courseID, today string) (created, enrolled bool, err error) {
	existing, err := s.GetUser(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		u := models.User{
			ID:              id,
			Name:            name,
			Email:           email,
			Role:            models.RoleStudent,
			Status:          models.UserActive,
			EnrolledCourses: []string{},
			EnrolledDate:    today,
		}
		if courseID != "" {
			u.EnrolledCourses = append(u.EnrolledCourses, courseID)
		}
		if err := s.AddUser(ctx, u); err != nil {
			return false, false, err
		}
		return true, false, nil
	case err != nil:
		return false, false, err
	}

	if existing.Role != models.RoleStudent {
		return false, false, errors.Errorf("user %s is a %s", id, existing.Role)
	}
	if courseID == "" || existing.IsEnrolled(courseID) {
		return false, false, nil
	}
	existing.EnrolledCourses = append(existing.EnrolledCourses, courseID)
	if err := s.UpdateUser(ctx, *existing); err != nil {
		return false, false, err
	}
	return false, true, nil
}
