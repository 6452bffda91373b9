// Package services implements the client's domain operations over the local
// store, the mutation queue and the remote backend.
//
// Reads are read-through: the in-memory projection (loaded from the local
// store) is served at once and a remote refresh overwrites the local copy
// when the backend answers. A failed refresh returns the cached data together
// with the error.
//
// Writes are write-through: the record and the queue entry describing it are
// committed in one local transaction, the projection is updated, and then, if
// online, the queue is drained as a best-effort attempt. Sync failures are
// logged and never returned; the queue entry is the durable record of intent.
//
// Secrets are never mirrored locally. KMSService talks to the backend
// directly and keeps plaintext only in the byte slices it returns.
package services
