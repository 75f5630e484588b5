package sqlutil

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestMillisRoundTrip(t *testing.T) {
	assert.False(t, ToSqlMillis(nil).Valid)
	assert.Nil(t, FromSqlMillis(sql.NullInt64{}))

	at := time.Date(2026, 3, 2, 10, 0, 0, 123_000_000, time.UTC)
	got := FromSqlMillis(ToSqlMillis(&at))
	require.NotNil(t, got)
	assert.True(t, at.Equal(*got))
}

func TestStringConverters(t *testing.T) {
	assert.False(t, ToSqlString(nil).Valid)
	assert.Nil(t, FromSqlStringPtr(sql.NullString{}))

	name := "sam"
	got := FromSqlStringPtr(ToSqlString(&name))
	require.NotNil(t, got)
	assert.Equal(t, "sam", *got)
}

type queries struct{ tx *sql.Tx }

func TestRunCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	_, err = db.ExecContext(ctx, "CREATE TABLE t (n INTEGER)")
	require.NoError(t, err)

	newQueries := func(tx *sql.Tx) *queries { return &queries{tx: tx} }

	err = Run(ctx, db, newQueries, func(q *queries) error {
		_, err := q.tx.ExecContext(ctx, "INSERT INTO t (n) VALUES (1)")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = Run(ctx, db, newQueries, func(q *queries) error {
		if _, err := q.tx.ExecContext(ctx, "INSERT INTO t (n) VALUES (2)"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 1, count)
}
