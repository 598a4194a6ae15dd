package mysql

import (
	"errors"
	"strings"
	"testing"
)

func TestSchema(t *testing.T) {
	schema, err := Schema("jobs.outbox")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS jobs.outbox") {
		t.Fatalf("expected qualified table name in schema")
	}
	for _, column := range []string{"processed TINYINT(1)", "scheduler_job_id VARCHAR(128)", "last_error VARCHAR(1024)", "delay_ms BIGINT"} {
		if !strings.Contains(schema, column) {
			t.Fatalf("expected %q in schema", column)
		}
	}
}

func TestSanitizeTableName(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{name: "outbox"},
		{name: "app.outbox_jobs"},
		{name: "", err: ErrTableNameRequired},
		{name: "app.", err: ErrInvalidTableName},
		{name: "out-box", err: ErrInvalidTableName},
		{name: "outbox;DROP TABLE x", err: ErrInvalidTableName},
	}

	for _, tc := range cases {
		_, err := sanitizeTableName(tc.name)
		if tc.err == nil && err != nil {
			t.Fatalf("%q: unexpected error %v", tc.name, err)
		}
		if tc.err != nil && !errors.Is(err, tc.err) {
			t.Fatalf("%q: expected %v, got %v", tc.name, tc.err, err)
		}
	}
}
