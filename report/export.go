package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// NoData is how a missing percentage is rendered.
const NoData = "no data"

// SheetName is the worksheet that holds the attendance table in XLSX exports.
const SheetName = "Attendance"

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Header is the first line of every export.
var Header = []string{"Date", "Course", "Present", "Absent", "Percentage"}

// FormatPercentage renders p as "67%", or NoData when p is nil.
func FormatPercentage(p *int) string {
	if p == nil {
		return NoData
	}
	return strconv.Itoa(*p) + "%"
}

// ExportFilename returns the download name for an export produced at now.
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("attendance-report-%s.%s", now.Format(DateLayout), ext)
}

// ContentType returns the MIME type of an export format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

func record(row DateCourseRow) []string {
	return []string{
		row.Date,
		row.Course,
		strconv.Itoa(row.Present),
		strconv.Itoa(row.Absent),
		FormatPercentage(row.Percentage),
	}
}

// WriteCSV writes the header and one line per row.
func WriteCSV(w io.Writer, rows []DateCourseRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	for _, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}

// WriteXLSX writes the same table as WriteCSV into a single-sheet workbook.
// Counts are stored as numbers, the percentage as its rendered text.
func WriteXLSX(w io.Writer, rows []DateCourseRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "writing xlsx header")
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "resolving cell")
		}
		values := []interface{}{row.Date, row.Course, row.Present, row.Absent, FormatPercentage(row.Percentage)}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return errors.Wrapf(err, "writing xlsx row %d", i+1)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}

// Write dispatches to WriteCSV or WriteXLSX.
func Write(w io.Writer, format string, rows []DateCourseRow) error {
	switch format {
	case FormatCSV, "":
		return WriteCSV(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	default:
		return errors.Errorf("unsupported export format %q", format)
	}
}
