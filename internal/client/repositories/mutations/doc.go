// Package mutations persists the durable local mutation queue.
//
// Entries get a store-assigned, strictly increasing sequence number and are
// listed in that order. An entry is removed only by an explicit Delete once
// its remote operation is confirmed or abandoned.
package mutations
