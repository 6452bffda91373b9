// Package preferences persists per-user key/value settings in the local
// store, such as the pinned page order.
package preferences
