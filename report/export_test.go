package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var exportRows = []DateCourseRow{
	{Date: "2025-11-13", Course: "CS101", Present: 2, Absent: 1, Percentage: pct(67)},
	{Date: "2025-11-12", Course: "Data Structures, Part 1", Present: 0, Absent: 0},
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "67%", FormatPercentage(pct(67)))
	assert.Equal(t, "0%", FormatPercentage(pct(0)))
	assert.Equal(t, NoData, FormatPercentage(nil))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, exportRows))

	want := "Date,Course,Present,Absent,Percentage\n" +
		"2025-11-13,CS101,2,1,67%\n" +
		"2025-11-12,\"Data Structures, Part 1\",0,0,no data\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Date,Course,Present,Absent,Percentage\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, exportRows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		Header,
		{"2025-11-13", "CS101", "2", "1", "67%"},
		{"2025-11-12", "Data Structures, Part 1", "0", "0", "no data"},
	}, rows)
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, "pdf", exportRows))
	assert.NoError(t, Write(&buf, "", exportRows))
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2025, 11, 13, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "attendance-report-2025-11-13.csv", ExportFilename(now, FormatCSV))
	assert.Equal(t, "attendance-report-2025-11-13.xlsx", ExportFilename(now, FormatXLSX))
	assert.Equal(t, "text/csv", ContentType(FormatCSV))
}
