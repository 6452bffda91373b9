// Package localstore owns the on-disk SQLite mirror of the user's data and
// the durable mutation queue.
//
// A Store is opened explicitly and passed to the services that need it.
// Open applies the embedded goose migrations from the stored schema version
// up to the current one; upgrades only add tables and indexes.
//
// All access goes through a single connection, so concurrent callers are
// serialized by database/sql. WithTx binds the four repositories to one
// transaction for writes that must land together, such as a record and the
// queue entry describing it.
package localstore
