// smartid-report logs in to a SmartID server, pulls courses, sessions and
// attendance, and writes the per-date, per-course attendance table as CSV
// or XLSX.
//
//	smartid-report --email admin@smartid.edu --password admin123 --today
//	smartid-report --course 1 --from 2025-11-01 --to 2025-11-30 --format xlsx --out nov.xlsx
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"smartid-server-go/client"
	"smartid-server-go/logger"
	"smartid-server-go/models"
	"smartid-server-go/report"
)

type options struct {
	URL      string
	Email    string
	Password string
	Role     models.Role
	Filter   report.Filter
	Today    bool
	Format   string
	Out      string
}

func main() {
	log := logger.NewWithWriter(os.Stderr, "REPORT : ", logger.Options{})

	opts, err := parseFlags(os.Args[1:], time.Now())
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout, log); err != nil {
		log.Error("report failed", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, now time.Time) (options, error) {
	var (
		opts options
		role string
	)
	fs := pflag.NewFlagSet("smartid-report", pflag.ContinueOnError)
	fs.StringVar(&opts.URL, "url", "http://localhost:8080/api", "base URL of the SmartID API")
	fs.StringVar(&opts.Email, "email", os.Getenv("SMARTID_EMAIL"), "login email (default $SMARTID_EMAIL)")
	fs.StringVar(&opts.Password, "password", os.Getenv("SMARTID_PASSWORD"), "login password (default $SMARTID_PASSWORD)")
	fs.StringVar(&role, "role", "", "role to log in as: ADMIN or PROFESSOR")
	fs.StringVar(&opts.Filter.CourseID, "course", report.AllCourses, "course id, or \"all\"")
	fs.StringVar(&opts.Filter.StartDate, "from", "", "first session date, YYYY-MM-DD")
	fs.StringVar(&opts.Filter.EndDate, "to", "", "last session date, YYYY-MM-DD")
	fs.BoolVar(&opts.Today, "today", false, "only sessions held today; overrides --from and --to")
	fs.StringVar(&opts.Format, "format", report.FormatCSV, "export format: csv or xlsx")
	fs.StringVarP(&opts.Out, "out", "o", "", "output file; stdout when empty or \"-\"")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, errors.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if opts.Email == "" || opts.Password == "" {
		return opts, errors.New("--email and --password are required")
	}
	opts.Role = models.Role(strings.ToUpper(role))
	if opts.Role != models.RoleNone && !opts.Role.Valid() {
		return opts, errors.Errorf("invalid role %q", role)
	}
	opts.Format = strings.ToLower(opts.Format)
	if opts.Format != report.FormatCSV && opts.Format != report.FormatXLSX {
		return opts, errors.Errorf("invalid format %q: must be csv or xlsx", opts.Format)
	}
	if opts.Today {
		today := report.Today(now)
		opts.Filter.StartDate, opts.Filter.EndDate = today.StartDate, today.EndDate
	}
	for flag, v := range map[string]string{"from": opts.Filter.StartDate, "to": opts.Filter.EndDate} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(report.DateLayout, v); err != nil {
			return opts, errors.Errorf("--%s: %q is not a YYYY-MM-DD date", flag, v)
		}
	}
	return opts, nil
}

func run(ctx context.Context, opts options, stdout io.Writer, log logger.Logger) error {
	c := client.New(opts.URL, log)
	user, err := c.Login(ctx, opts.Email, opts.Password, opts.Role)
	if err != nil {
		return err
	}
	log.Info("logged in as "+user.Name, logger.Person{ID: user.ID, Username: user.Username, Email: user.Email})

	data := c.FetchAll(ctx)
	for _, name := range []string{client.ResourceCourses, client.ResourceSessions, client.ResourceAttendance} {
		if err := data.Errors[name]; err != nil {
			return errors.Wrapf(err, "fetching %s", name)
		}
	}

	sessions, attendance := opts.Filter.Apply(data.Sessions, data.Attendance)
	res := report.Summarize(attendance, sessions, data.Courses)
	if len(res.Orphans) > 0 {
		log.Warn("attendance records left out of report", map[string]interface{}{"orphans": len(res.Orphans)})
	}
	rows := res.Rows
	log.Info(fmt.Sprintf("%d sessions, %d records, %d rows", len(sessions), len(attendance), len(rows)))

	out := stdout
	if opts.Out != "" && opts.Out != "-" {
		f, err := os.Create(opts.Out)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer f.Close()
		out = f
	}
	if err := report.Write(out, opts.Format, rows); err != nil {
		return err
	}
	if f, ok := out.(*os.File); ok && f != os.Stdout {
		return errors.Wrap(f.Close(), "closing output file")
	}
	return nil
}
