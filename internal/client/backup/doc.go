// Package backup uploads passphrase-encrypted snapshots of the local store
// to object storage, on demand or on a cron schedule.
//
// Snapshots are age files (scrypt recipient) stored under
// <prefix>/<owner>/<UTC timestamp>.db.age.
package backup
