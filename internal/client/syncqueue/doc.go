// Package syncqueue drains the local mutation queue against the remote
// backend.
//
// The queue is replayed strictly in sequence order. An entry is removed only
// after the backend confirms it. A transient failure stops the drain at that
// entry so nothing later can overtake it; the entry waits for the next
// trigger. A permanent rejection cannot succeed on retry, so the entry is
// abandoned (logged, counted, removed) and the drain moves on.
//
// Drains run only when asked: after a local write while online, and when
// connectivity is restored. Concurrent requests share one in-flight drain.
package syncqueue
