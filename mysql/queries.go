package mysql

import "fmt"

type queries struct {
	insert        string
	selectPending string
	updateOutcome string
	countPending  string
}

func newQueries(table string) queries {
	cols := "id, job_type, method, arguments, queue, schedule_at, delay_ms, created_at"
	pending := "processed = 0 AND last_error IS NULL"

	return queries{
		insert: fmt.Sprintf(
			"INSERT INTO %s (job_type, method, arguments, queue, schedule_at, delay_ms) VALUES (?, ?, ?, ?, ?, ?)",
			table,
		),
		selectPending: fmt.Sprintf(
			"SELECT %s FROM %s WHERE %s ORDER BY created_at ASC, id ASC LIMIT ? FOR UPDATE SKIP LOCKED",
			cols,
			table,
			pending,
		),
		updateOutcome: fmt.Sprintf(
			"UPDATE %s SET processed = ?, scheduler_job_id = ?, last_error = ?, processed_at = ? WHERE id = ?",
			table,
		),
		countPending: fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table, pending),
	}
}
