package database

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klayza/Fractal/internal/logger"
)

func newTestDB(t *testing.T) *sqliteDB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(1)
	require.NoError(t, RunMigrations(db))
	return &sqliteDB{db: db, logger: logger.NewTestLogger()}
}

func TestUserLifecycle(t *testing.T) {
	s := newTestDB(t)

	t.Run("UnknownUser", func(t *testing.T) {
		_, err := s.GetUser(1)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("FirstContactMintsPublicID", func(t *testing.T) {
		require.NoError(t, s.SaveUser(User{ID: 1, FirstName: "Clay", Username: "clay"}))

		stored, err := s.GetUser(1)
		require.NoError(t, err)
		assert.Equal(t, "Clay", stored.FirstName)
		assert.Len(t, stored.PublicID, 4)
	})

	t.Run("PublicIDSurvivesRename", func(t *testing.T) {
		before, err := s.GetUser(1)
		require.NoError(t, err)

		require.NoError(t, s.SaveUser(User{ID: 1, FirstName: "Clayton", Username: "clay"}))

		after, err := s.GetUser(1)
		require.NoError(t, err)
		assert.Equal(t, "Clayton", after.FirstName)
		assert.Equal(t, before.PublicID, after.PublicID)
	})
}
