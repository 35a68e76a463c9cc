package logger

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollbarLogger_PrintsLocally(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "TEST : ", Options{Environment: "TEST"})

	l.Info("server started")
	l.Warn("orphaned records", map[string]interface{}{"count": 2}, Person{ID: "A001"})
	l.Error("store failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "TEST : ")
	assert.Contains(t, out, "INFO server started")
	assert.Contains(t, out, "WARN orphaned records")
	assert.Contains(t, out, "map[count:2]")
	assert.Contains(t, out, "ERROR store failed")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "A001")
}

func contextOf(t *testing.T, args []interface{}) context.Context {
	t.Helper()
	require.NotEmpty(t, args)
	ctx, ok := args[len(args)-1].(context.Context)
	require.True(t, ok, "last argument should be a context")
	return ctx
}

func TestRollbarLogger_PersonPerEvent(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, "", Options{})
	extra := map[string]interface{}{"count": 2}

	args := l.prepare("marked", []interface{}{extra, Person{ID: "S001", Email: "ahmed@student.edu"}, Person{ID: "S002"}})
	require.Len(t, args, 3)
	assert.Equal(t, "marked", args[0])
	assert.Equal(t, extra, args[1])
	p, ok := rollbar.PersonFromContext(contextOf(t, args))
	require.True(t, ok)
	assert.Equal(t, &rollbar.Person{Id: "S001", Email: "ahmed@student.edu"}, p)

	args = l.prepare("anonymous", nil)
	require.Len(t, args, 2)
	_, ok = rollbar.PersonFromContext(contextOf(t, args))
	assert.False(t, ok)
}

func TestRollbarLogger_ConcurrentPeopleStayApart(t *testing.T) {
	l := NewWithWriter(&bytes.Buffer{}, "", Options{})
	ids := []string{"A001", "P001", "S001", "S002", "S003", "S004"}

	got := make([]string, len(ids)*50)
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			args := l.prepare("event", []interface{}{Person{ID: ids[i%len(ids)]}})
			ctx, _ := args[len(args)-1].(context.Context)
			if p, ok := rollbar.PersonFromContext(ctx); ok {
				got[i] = p.Id
			}
		}(i)
	}
	wg.Wait()

	for i, id := range got {
		assert.Equal(t, ids[i%len(ids)], id)
	}
}
