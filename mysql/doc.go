// Package mysql provides a MySQL 8.0+ store for joboutbox.
//
// The store uses:
//   - READ COMMITTED isolation (to avoid gap locks)
//   - SELECT ... FOR UPDATE SKIP LOCKED over pending rows (processed = 0 AND last_error IS NULL)
//   - ORDER BY created_at ASC, id ASC with LIMIT for batching
//   - GET_LOCK/RELEASE_LOCK advisory locks for the relay lease
//
// The DSN must enable parseTime. See Schema for the table layout and CleanupMaintainer for
// periodic removal of processed rows.
package mysql
