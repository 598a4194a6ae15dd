// Package redis provides Redis-backed adapters for joboutbox.
//
// Scheduler stores each job as a hash under <prefix>job:<id> and either pushes the id onto
// the list <prefix>queue:<queue> or adds it to the sorted set <prefix>schedule scored by the
// due time in Unix milliseconds. PromoteDue moves due ids from the schedule onto their queues.
// The default prefix "{joboutbox}:" keeps all keys in one Redis Cluster slot; custom
// prefixes need their own hash tag on a cluster.
//
// Locker implements joboutbox.Locker with SET NX PX and a token-checked delete, so a lease
// that already expired never removes a lock taken by another instance.
package redis
