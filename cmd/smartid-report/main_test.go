package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"smartid-server-go/auth"
	"smartid-server-go/db"
	"smartid-server-go/handlers"
	"smartid-server-go/logger"
	"smartid-server-go/models"
	"smartid-server-go/report"
)

var now = time.Date(2025, 11, 13, 15, 0, 0, 0, time.Local)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr string
	}{
		{
			name: "defaults",
			args: []string{"--email", "a@b.c", "--password", "pw"},
			want: options{
				URL: "http://localhost:8080/api", Email: "a@b.c", Password: "pw",
				Filter: report.Filter{CourseID: report.AllCourses}, Format: report.FormatCSV,
			},
		},
		{
			name: "today overrides range",
			args: []string{"--email", "a@b.c", "--password", "pw", "--from", "2025-01-01", "--today", "--role", "admin", "--format", "XLSX", "-o", "r.xlsx", "--course", "2"},
			want: options{
				URL: "http://localhost:8080/api", Email: "a@b.c", Password: "pw", Role: models.RoleAdmin,
				Filter: report.Filter{CourseID: "2", StartDate: "2025-11-13", EndDate: "2025-11-13"},
				Today:  true, Format: report.FormatXLSX, Out: "r.xlsx",
			},
		},
		{name: "missing credentials", args: []string{"--email", "a@b.c"}, wantErr: "--email and --password are required"},
		{name: "bad format", args: []string{"--email", "a@b.c", "--password", "pw", "--format", "pdf"}, wantErr: "invalid format"},
		{name: "bad role", args: []string{"--email", "a@b.c", "--password", "pw", "--role", "dean"}, wantErr: "invalid role"},
		{name: "bad date", args: []string{"--email", "a@b.c", "--password", "pw", "--to", "13/11/2025"}, wantErr: "--to"},
		{name: "stray argument", args: []string{"--email", "a@b.c", "--password", "pw", "extra"}, wantErr: "unexpected arguments"},
		{name: "unknown flag", args: []string{"--verbose"}, wantErr: "unknown flag"},
	}

	t.Setenv("SMARTID_EMAIL", "")
	t.Setenv("SMARTID_PASSWORD", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, now)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewWithWriter(io.Discard, "API : ", logger.Options{})
	store := db.NewMemoryStore()
	require.NoError(t, db.Seed(context.Background(), store, log))

	router := gin.New()
	handlers.NewAPIHandler(store, auth.NewJWTService("secret", "smartid", time.Hour, 24*time.Hour), log).RegisterRoutes(router)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts.URL + "/api"
}

func TestRun_CSVToStdout(t *testing.T) {
	opts, err := parseFlags([]string{"--url", newServer(t), "--email", "admin@smartid.edu", "--password", "admin123", "--today"}, now)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &out, logger.NewWithWriter(io.Discard, "", logger.Options{})))
	assert.Equal(t,
		"Date,Course,Present,Absent,Percentage\n"+
			"2025-11-13,Computer Science 101,2,1,67%\n"+
			"2025-11-13,Data Structures,2,0,100%\n",
		out.String())
}

func TestRun_XLSXToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	opts, err := parseFlags([]string{
		"--url", newServer(t), "--email", "smith@professor.edu", "--password", "prof123",
		"--role", "professor", "--course", "1", "--format", "xlsx", "--out", path,
	}, now)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &stdout, logger.NewWithWriter(io.Discard, "", logger.Options{})))
	assert.Zero(t, stdout.Len())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	book, err := excelize.OpenReader(f)
	require.NoError(t, err)
	rows, err := book.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, report.Header, rows[0])
	assert.Equal(t, []string{"2025-11-13", "Computer Science 101", "2", "1", "67%"}, rows[1])
	assert.Equal(t, []string{"2025-11-12", "Computer Science 101", "3", "0", "100%"}, rows[2])
}

func TestRun_LoginFailure(t *testing.T) {
	opts, err := parseFlags([]string{"--url", newServer(t), "--email", "admin@smartid.edu", "--password", "nope"}, now)
	require.NoError(t, err)
	err = run(context.Background(), opts, io.Discard, logger.NewWithWriter(io.Discard, "", logger.Options{}))
	assert.ErrorContains(t, err, "login")
}
