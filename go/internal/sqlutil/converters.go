package sqlutil

import (
	"database/sql"
	"time"
)

// Helper functions for converting between Go types and sql.Null* types

// ToSqlString converts a Go string pointer to sql.NullString
func ToSqlString(val *string) sql.NullString {
	if val == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *val, Valid: true}
}

// FromSqlStringPtr converts sql.NullString to Go string pointer
func FromSqlStringPtr(val sql.NullString) *string {
	if !val.Valid {
		return nil
	}
	return &val.String
}

// ToSqlMillis converts a Go time pointer to nullable unix milliseconds
func ToSqlMillis(val *time.Time) sql.NullInt64 {
	if val == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: val.UnixMilli(), Valid: true}
}

// FromSqlMillis converts nullable unix milliseconds to a UTC time pointer
func FromSqlMillis(val sql.NullInt64) *time.Time {
	if !val.Valid {
		return nil
	}
	t := time.UnixMilli(val.Int64).UTC()
	return &t
}
