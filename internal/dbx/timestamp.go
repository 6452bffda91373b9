package dbx

import (
	"database/sql"
	"strings"
	"time"
)

// Micros encodes t as microseconds since the Unix epoch, the column format
// used for timestamps in the local store.
func Micros(t time.Time) int64 {
	return t.UnixMicro()
}

// FromMicros is the inverse of Micros. The result is in UTC.
func FromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}

// NullString maps an optional string to a nullable column value.
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// StringPtr maps a nullable column value back to an optional string.
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// Placeholders returns n comma separated "?" markers and the values as []any,
// for building IN lists.
func Placeholders(values []string) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(values)), ","), args
}
