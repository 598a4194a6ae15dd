// Package joboutbox hands transactional outbox entries to an external job scheduler exactly once.
//
// Typical flow:
//  1. Within a business transaction, persist an Entry using a storage-specific writer.
//  2. Run a Relay with a storage-specific Store and a Scheduler adapter.
//  3. The Relay takes a leased distributed lock (when the deployment supports one), fetches
//     pending entries oldest first, dispatches each to the scheduler and records the job id
//     or the dispatch error on the entry.
//
// Entries whose dispatch failed keep their error and are not fetched again until an operator
// clears it. A process-local Deduplicator remembers recent dispatches so that a batch whose
// store write never landed is recovered without scheduling the same work twice.
//
// For the MySQL store and advisory lock see the mysql package, for a Redis-backed scheduler
// and lock see the redis package.
package joboutbox
