package logger

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/rollbar/rollbar-go"
)

// Logger is the application logger. args may hold errors, maps of extra
// fields and at most one Person identifying the user behind the event.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the authenticated user an event relates to.
type Person struct {
	ID       string
	Username string
	Email    string
}

// Options configure the Rollbar side of a RollbarLogger.
type Options struct {
	Token       string
	Environment string
	Host        string
	CodeVersion string
}

type RollbarLogger struct {
	std *log.Logger
}

var _ Logger = (*RollbarLogger)(nil)

// New returns a logger printing to stdout with the given prefix, e.g. "API : ".
func New(prefix string, opts Options) *RollbarLogger {
	return NewWithWriter(os.Stdout, prefix, opts)
}

// NewWithWriter is New with an explicit destination.
// Rollbar reporting is only enabled when opts.Token is set.
func NewWithWriter(w io.Writer, prefix string, opts Options) *RollbarLogger {
	rollbar.SetToken(opts.Token)
	rollbar.SetEnvironment(opts.Environment)
	rollbar.SetServerHost(opts.Host)
	rollbar.SetCodeVersion(opts.CodeVersion)
	rollbar.SetEnabled(opts.Token != "")
	return &RollbarLogger{
		std: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
	}
}

// Std exposes the underlying *log.Logger for libraries that want one.
func (l *RollbarLogger) Std() *log.Logger {
	return l.std
}

// Close flushes pending Rollbar items.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}

// prepare builds the Rollbar arguments for one event. The first Person in
// args travels in a context attached to this item only.
func (l *RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	ctx := context.Background()
	var personSet bool
	newArgs := make([]interface{}, 0, len(args)+2)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		if p, ok := arg.(Person); ok {
			if !personSet {
				ctx = rollbar.NewPersonContext(ctx, &rollbar.Person{Id: p.ID, Username: p.Username, Email: p.Email})
				personSet = true
			}
			continue
		}
		newArgs = append(newArgs, arg)
	}
	return append(newArgs, ctx)
}

func (l *RollbarLogger) print(level, msg string, args []interface{}) {
	_ = l.std.Output(3, level+" "+msg)
	for _, arg := range args {
		if _, ok := arg.(Person); ok {
			continue
		}
		l.std.Printf("  %+v", arg)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print("FATAL", msg, args)
	rollbar.Close()
	os.Exit(1)
}
