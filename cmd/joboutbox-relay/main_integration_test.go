//go:build integration

package main

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/velmie/joboutbox"
	"github.com/velmie/joboutbox/cmd/internal/testutil"
	"github.com/velmie/joboutbox/mysql"
)

func TestRelayCLIContainer(t *testing.T) {
	ctx := context.Background()
	env := testutil.StartMySQLContainer(t, ctx)
	rdb := testutil.StartRedisContainer(t, ctx, env.Network.Name)

	store, err := mysql.NewStore(env.DB, mysql.WithTable(testutil.Table))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	tx, err := env.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if _, err := store.Enqueue(ctx, tx, joboutbox.Entry{Type: "billing.InvoiceMailer", Method: "Send", Queue: "mail"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	bin := testutil.BuildBinary(t, ".")
	cli := testutil.StartCLIContainer(t, ctx, env.Network.Name, bin, []string{"-metrics-addr", "off"}, map[string]string{
		"JOBOUTBOX_MYSQL_DSN":     env.DSN,
		"JOBOUTBOX_REDIS_ADDR":    rdb.URL,
		"JOBOUTBOX_POLL_INTERVAL": "200ms",
		"JOBOUTBOX_LOG_LEVEL":     "debug",
	})

	deadline := time.Now().Add(90 * time.Second)
	for {
		var processed bool
		var jobID string
		err := env.DB.QueryRowContext(ctx, "SELECT processed, COALESCE(scheduler_job_id, '') FROM joboutbox LIMIT 1").Scan(&processed, &jobID)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if processed {
			queued, err := rdb.Client.LRange(ctx, "{joboutbox}:queue:mail", 0, -1).Result()
			if err != nil {
				t.Fatalf("lrange: %v", err)
			}
			if len(queued) != 1 || !strings.EqualFold(queued[0], jobID) {
				t.Fatalf("queue = %v, want [%s]", queued, jobID)
			}

			return
		}
		if time.Now().After(deadline) {
			logs, _ := cli.Logs(ctx)
			var out []byte
			if logs != nil {
				out, _ = io.ReadAll(logs)
				_ = logs.Close()
			}
			t.Fatalf("entry was not dispatched, relay logs: %s", out)
		}
		time.Sleep(500 * time.Millisecond)
	}
}
