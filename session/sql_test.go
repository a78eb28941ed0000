package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestSQLStore(t *testing.T) {
	db, err := OpenSQL("sqlite3", filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	// sqlite serialises writers; one connection keeps transactions from
	// tripping over each other.
	db.SetMaxOpenConns(1)

	suite.Run(t, &storeSuite{
		open: func(now func() time.Time) Store {
			s, err := NewSQL(db, WithSQLClock(now))
			require.NoError(t, err)
			require.NoError(t, s.EnsureSchema(context.Background()))
			return s
		},
	})
}

func TestNewSQLRejectsBadTableName(t *testing.T) {
	_, err := NewSQL(nil, WithTable("sessions; DROP TABLE users"))
	assert.Error(t, err)

	s, err := NewSQL(nil, WithTable("bot_sessions"))
	require.NoError(t, err)
	assert.Equal(t, "bot_sessions", s.table)
}

func TestOpenSQLUnsupportedDriver(t *testing.T) {
	_, err := OpenSQL("postgres", "dsn")
	assert.ErrorContains(t, err, "unsupported sql driver")
}
