package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/velmie/joboutbox"
)

type fakeResult struct {
	id  int64
	err error
}

func (r fakeResult) LastInsertId() (int64, error) { return r.id, r.err }
func (fakeResult) RowsAffected() (int64, error)   { return 1, nil }

type fakeExecutor struct {
	query  string
	args   []any
	result fakeResult
	err    error
}

func (f *fakeExecutor) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.query = query
	f.args = args
	if f.err != nil {
		return nil, f.err
	}

	return f.result, nil
}

func newTestStore(opts ...Option) *Store {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Store{
		cfg:     cfg.withDefaults(),
		queries: newQueries("jobs"),
		table:   "jobs",
	}
}

func TestNewStoreValidation(t *testing.T) {
	if _, err := NewStore(nil); err != ErrDBRequired {
		t.Fatalf("expected ErrDBRequired, got %v", err)
	}
	if _, err := NewStore(&sql.DB{}, WithTable("bad-name")); !errors.Is(err, ErrInvalidTableName) {
		t.Fatalf("expected ErrInvalidTableName, got %v", err)
	}

	store, err := NewStore(&sql.DB{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store.table != defaultTable {
		t.Fatalf("expected default table, got %s", store.table)
	}
	if !store.cfg.ValidateJSON {
		t.Fatalf("expected JSON validation enabled by default")
	}
	if store.cfg.Logger == nil {
		t.Fatalf("expected a default logger")
	}
}

func TestStoreEnqueueReturnsInsertID(t *testing.T) {
	store := newTestStore()
	exec := &fakeExecutor{result: fakeResult{id: 42}}

	id, err := store.Enqueue(context.Background(), exec, joboutbox.Entry{
		Type:   "billing.InvoiceMailer",
		Method: "Send",
		Args:   json.RawMessage(`[1,"a"]`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected id 42, got %d", id)
	}
	if !strings.HasPrefix(exec.query, "INSERT INTO jobs") {
		t.Fatalf("unexpected query: %s", exec.query)
	}
	if len(exec.args) != 6 {
		t.Fatalf("expected 6 args, got %d", len(exec.args))
	}
	if exec.args[2] != `[1,"a"]` {
		t.Fatalf("expected args as string, got %#v", exec.args[2])
	}
	if exec.args[3] != joboutbox.DefaultQueue {
		t.Fatalf("expected default queue, got %#v", exec.args[3])
	}
	if exec.args[4] != nil || exec.args[5] != nil {
		t.Fatalf("expected NULL schedule hints, got %#v %#v", exec.args[4], exec.args[5])
	}
}

func TestStoreEnqueueSchedulingHints(t *testing.T) {
	store := newTestStore()
	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	delay := 90 * time.Second

	exec := &fakeExecutor{}
	if _, err := store.Enqueue(context.Background(), exec, joboutbox.Entry{Type: "t", Method: "m", ScheduleAt: &at}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	got, ok := exec.args[4].(time.Time)
	if !ok || !got.Equal(at) || got.Location() != time.UTC {
		t.Fatalf("expected UTC schedule time, got %#v", exec.args[4])
	}

	exec = &fakeExecutor{}
	if _, err := store.Enqueue(context.Background(), exec, joboutbox.Entry{Type: "t", Method: "m", Delay: &delay}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if exec.args[5] != int64(90000) {
		t.Fatalf("expected delay in ms, got %#v", exec.args[5])
	}
}

func TestStoreEnqueueValidation(t *testing.T) {
	store := newTestStore()
	at := time.Now()
	delay := time.Second
	fractional := time.Millisecond + time.Nanosecond

	if _, err := store.Enqueue(context.Background(), nil, joboutbox.Entry{Type: "t", Method: "m"}); err != ErrExecutorRequired {
		t.Fatalf("expected ErrExecutorRequired, got %v", err)
	}

	cases := []struct {
		name  string
		entry joboutbox.Entry
		want  error
	}{
		{name: "type", entry: joboutbox.Entry{Method: "m"}, want: joboutbox.ErrTypeRequired},
		{name: "method", entry: joboutbox.Entry{Type: "t"}, want: joboutbox.ErrMethodRequired},
		{name: "args", entry: joboutbox.Entry{Type: "t", Method: "m", Args: json.RawMessage(`{}`)}, want: joboutbox.ErrInvalidArgs},
		{name: "delay precision", entry: joboutbox.Entry{Type: "t", Method: "m", Delay: &fractional}, want: joboutbox.ErrDelayPrecision},
		{name: "conflict", entry: joboutbox.Entry{Type: "t", Method: "m", ScheduleAt: &at, Delay: &delay}, want: joboutbox.ErrConflictingSchedule},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exec := &fakeExecutor{}
			if _, err := store.Enqueue(context.Background(), exec, tc.entry); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if exec.query != "" {
				t.Fatalf("expected no insert on invalid entry")
			}
		})
	}
}

func TestStoreEnqueueSkipsJSONValidation(t *testing.T) {
	store := newTestStore(WithValidateJSON(false))
	exec := &fakeExecutor{}

	if _, err := store.Enqueue(context.Background(), exec, joboutbox.Entry{
		Type:   "t",
		Method: "m",
		Args:   json.RawMessage(`{`),
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func TestStoreEnqueueWrapsErrors(t *testing.T) {
	store := newTestStore()
	boom := errors.New("boom")

	if _, err := store.Enqueue(context.Background(), &fakeExecutor{err: boom}, joboutbox.Entry{Type: "t", Method: "m"}); !errors.Is(err, boom) {
		t.Fatalf("expected insert error, got %v", err)
	}
	exec := &fakeExecutor{result: fakeResult{err: boom}}
	if _, err := store.Enqueue(context.Background(), exec, joboutbox.Entry{Type: "t", Method: "m"}); !errors.Is(err, boom) {
		t.Fatalf("expected insert id error, got %v", err)
	}
}

func TestStoreFetchInvalidBatchSize(t *testing.T) {
	store := newTestStore()
	if _, err := store.Fetch(context.Background(), joboutbox.FetchOptions{}); !errors.Is(err, joboutbox.ErrInvalidBatchSize) {
		t.Fatalf("expected ErrInvalidBatchSize, got %v", err)
	}
}

func TestQueries(t *testing.T) {
	q := newQueries("jobs")
	if !strings.Contains(q.selectPending, "processed = 0 AND last_error IS NULL") {
		t.Fatalf("select must skip processed and failed rows: %s", q.selectPending)
	}
	if !strings.Contains(q.selectPending, "ORDER BY created_at ASC, id ASC") {
		t.Fatalf("select must order by creation: %s", q.selectPending)
	}
	if !strings.HasSuffix(q.selectPending, "FOR UPDATE SKIP LOCKED") {
		t.Fatalf("select must lock rows: %s", q.selectPending)
	}
	if !strings.Contains(q.countPending, "processed = 0 AND last_error IS NULL") {
		t.Fatalf("count must match select: %s", q.countPending)
	}
}

func TestNullString(t *testing.T) {
	if nullString("") != nil {
		t.Fatalf("expected nil for empty string")
	}
	if nullString("x") != "x" {
		t.Fatalf("expected value to pass through")
	}
}

func TestTruncateError(t *testing.T) {
	long := strings.Repeat("é", maxErrorLen+10)
	msg := truncateError(long)
	if len([]rune(msg)) != maxErrorLen {
		t.Fatalf("expected truncated length %d, got %d", maxErrorLen, len([]rune(msg)))
	}
	if truncateError("short") != "short" {
		t.Fatalf("expected short message unchanged")
	}
}
