// Package remote is the client's view of the hosted relational backend.
//
// The backend is consumed as a per-table CRUD surface (select by id, ordered
// select by owner, insert, update by id, delete by id, upsert on a conflict
// key). Postgres talks to a real database through pgx's database/sql driver;
// Memory keeps everything in process and is used by tests and by the
// "memory://" DSN for offline demos.
//
// Every failure is classified as one of:
//
//   - ErrUnavailable: transient (network, connection, timeout); retry later.
//   - ErrRejected: the backend refused the statement (constraint, ownership,
//     missing row on update); retrying will not help.
//   - ErrNotFound: a select by id matched nothing.
package remote
